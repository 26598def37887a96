package vectorstore

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// CurrentSnapshotVersion is the on-disk format version. Increment when
// making breaking changes to the snapshot layout.
const CurrentSnapshotVersion = 1

// snapshotCollection mirrors the external snapshot shape: a fixed dimension
// plus a mapping from document id to {embedding, document, metadata}.
type snapshotCollection struct {
	Dimension int
	Entries   map[string]Entry
}

type snapshotFile struct {
	Version     int
	Collections map[string]snapshotCollection
}

// Save writes the whole store to its snapshot path. The snapshot is written
// to a temp file and renamed into place, so a crash mid-write never leaves a
// partial snapshot readable by a later Load.
func (s *Store) Save() error {
	s.mu.Lock()
	cur := s.state.Load()
	snap := snapshotFile{
		Version:     CurrentSnapshotVersion,
		Collections: make(map[string]snapshotCollection, len(cur.collections)),
	}
	for name, col := range cur.collections {
		snap.Collections[name] = snapshotCollection{Dimension: col.dimension, Entries: col.entries}
	}
	s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	tempPath := s.path + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}

	enc := gob.NewEncoder(f)
	if err := enc.Encode(snap); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("closing snapshot: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming snapshot: %w", err)
	}

	return nil
}

// Load replaces the in-memory state with the persisted snapshot. Every
// vector is validated against its collection's dimension; a mismatch is a
// configuration error and the snapshot is rejected wholesale, since
// mixed-dimension collections make similarity scores meaningless.
func (s *Store) Load() error {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrSnapshotNotFound
		}
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	var snap snapshotFile
	dec := gob.NewDecoder(f)
	if err := dec.Decode(&snap); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}

	if snap.Version != CurrentSnapshotVersion {
		return fmt.Errorf("%w: got %d, want %d (rebuild the index)",
			ErrUnsupportedVersion, snap.Version, CurrentSnapshotVersion)
	}

	next := &state{collections: make(map[string]*collection, len(snap.Collections))}
	for name, sc := range snap.Collections {
		if sc.Dimension <= 0 {
			return fmt.Errorf("%w: collection %q has dimension %d",
				ErrDimensionMismatch, name, sc.Dimension)
		}
		col := &collection{dimension: sc.Dimension, entries: make(map[string]Entry, len(sc.Entries))}
		for id, e := range sc.Entries {
			if len(e.Embedding) != sc.Dimension {
				return fmt.Errorf("%w: collection %q entry %q has %d, want %d",
					ErrDimensionMismatch, name, id, len(e.Embedding), sc.Dimension)
			}
			col.entries[id] = e
		}
		next.collections[name] = col
	}

	s.mu.Lock()
	s.state.Store(next)
	s.mu.Unlock()
	return nil
}

// SnapshotExists reports whether a snapshot file is present on disk.
func (s *Store) SnapshotExists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}
