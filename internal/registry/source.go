package registry

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/config"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/search"
	"github.com/runwhen-contrib/codecollection-registry-sub002/models"
)

// Source adapts the Mongo repository to the search pipeline's document feed.
// It also produces the documents the indexer embeds, so keyword search and
// vector search always see the same text.
type Source struct {
	repo      *Repository
	retrieval config.Retrieval
	hints     search.HintTable
}

func NewSource(repo *Repository, retrieval config.Retrieval) *Source {
	return &Source{repo: repo, retrieval: retrieval, hints: search.DefaultHints()}
}

func (s *Source) Documents(ctx context.Context, collections ...string) ([]search.Document, error) {
	wanted := map[string]bool{}
	for _, c := range collections {
		wanted[c] = true
	}
	all := len(wanted) == 0

	var docs []search.Document

	if all || wanted[search.CollectionBundles] {
		bundles, err := s.repo.ListCodeBundles(ctx, BundleFilter{})
		if err != nil {
			return nil, err
		}
		for _, b := range bundles {
			docs = append(docs, s.BundleDocument(b))
		}
	}
	if all || wanted[search.CollectionCollections] {
		cols, err := s.repo.ListCodeCollections(ctx)
		if err != nil {
			return nil, err
		}
		for _, c := range cols {
			docs = append(docs, CollectionDocument(c))
		}
	}
	if all || wanted[search.CollectionLibraries] {
		libs, err := s.repo.ListLibraries(ctx)
		if err != nil {
			return nil, err
		}
		for _, l := range libs {
			docs = append(docs, LibraryDocument(l))
		}
	}
	if all || wanted[search.CollectionDocPages] {
		pages, err := s.repo.ListDocPages(ctx)
		if err != nil {
			return nil, err
		}
		for _, p := range pages {
			docs = append(docs, s.PageDocument(p))
		}
	}
	return docs, nil
}

// Document loads a single record by collection and identifier, mapped the
// same way Documents maps it. Used for incremental reindexing.
func (s *Source) Document(ctx context.Context, collection, id string) (search.Document, error) {
	switch collection {
	case search.CollectionBundles:
		bundle, err := s.repo.GetCodeBundle(ctx, id)
		if err != nil {
			return search.Document{}, err
		}
		return s.BundleDocument(*bundle), nil
	case search.CollectionCollections:
		col, err := s.repo.GetCodeCollection(ctx, id)
		if err != nil {
			return search.Document{}, err
		}
		return CollectionDocument(*col), nil
	case search.CollectionLibraries:
		library, err := s.repo.GetLibrary(ctx, id)
		if err != nil {
			return search.Document{}, err
		}
		return LibraryDocument(*library), nil
	case search.CollectionDocPages:
		page, err := s.repo.GetDocPage(ctx, id)
		if err != nil {
			return search.Document{}, err
		}
		return s.PageDocument(*page), nil
	default:
		return search.Document{}, ErrNotFound
	}
}

// BundleDocument maps one bundle into a searchable document. Readme text is
// capped so a sprawling readme cannot dominate either search path.
func (s *Source) BundleDocument(b models.CodeBundle) search.Document {
	metadata := map[string]string{
		"type":           b.Type,
		"codecollection": b.CodeCollectionSlug,
	}
	if b.Platform != "" {
		metadata["platform"] = b.Platform
	}
	tagMetadata(metadata, b.SupportTags, s.hints)

	body := truncate(b.Readme, s.retrieval.BundleTextCap)
	return search.Document{
		ID:         b.Slug,
		Collection: search.CollectionBundles,
		Text:       truncate(joinNonEmpty(b.Description, b.Readme), s.retrieval.BundleTextCap),
		Fields: search.Fields{
			Name:        b.Name,
			DisplayName: b.DisplayName,
			Tags:        b.SupportTags,
			Description: b.Description,
			Body:        body,
		},
		Metadata: metadata,
	}
}

func CollectionDocument(c models.CodeCollection) search.Document {
	return search.Document{
		ID:         c.Slug,
		Collection: search.CollectionCollections,
		Text:       c.Description,
		Fields: search.Fields{
			Name:        c.Name,
			DisplayName: c.DisplayName,
			Description: c.Description,
		},
		Metadata: map[string]string{"type": "codecollection"},
	}
}

func LibraryDocument(l models.Library) search.Document {
	return search.Document{
		ID:         l.Slug,
		Collection: search.CollectionLibraries,
		Text:       l.Description,
		Fields: search.Fields{
			Name:        l.Name,
			DisplayName: l.DisplayName,
			Tags:        l.Keywords,
			Description: l.Description,
		},
		Metadata: map[string]string{"type": "library"},
	}
}

// PageDocument maps a crawled docs page. The page body was truncated at
// ingest time; the cap is applied again in case the limit was lowered since.
func (s *Source) PageDocument(p models.DocumentationPage) search.Document {
	text := truncate(p.Text, s.retrieval.PageTextCap)
	return search.Document{
		ID:         p.URL,
		Collection: search.CollectionDocPages,
		Text:       text,
		Fields: search.Fields{
			Name:        p.Title,
			DisplayName: p.Title,
			Description: p.Site,
			Body:        text,
		},
		Metadata: map[string]string{"type": "doc_page", "site": p.Site},
	}
}

// EmbeddingText is the canonical text embedded for a document: structured
// fields first so short records still produce a distinctive vector.
func EmbeddingText(doc search.Document) string {
	parts := []string{
		doc.Fields.Name,
		doc.Fields.DisplayName,
		strings.Join(doc.Fields.Tags, " "),
		doc.Fields.Description,
		doc.Fields.Body,
	}
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}

// tagMetadata promotes recognized support tags to filterable metadata, e.g.
// a "postgresql" tag becomes resource_type=postgres.
func tagMetadata(metadata map[string]string, tags []string, hints search.HintTable) {
	for _, tag := range tags {
		hint, ok := hints[strings.ToLower(strings.TrimSpace(tag))]
		if !ok {
			continue
		}
		if _, exists := metadata[hint.Key]; !exists {
			metadata[hint.Key] = hint.Value
		}
	}
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	// Back off to a rune boundary so the cut never splits a character.
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}
