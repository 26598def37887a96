package search

import (
	"sort"

	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/config"
)

// FilterAndRank applies the relevance floors and metadata heuristics to raw
// hits and produces the final capped, ordered list. The second return value
// is true when filtering removed every hit, which is a normal outcome, not
// an error.
//
// Filtering rules, in order:
//   - below MinScore the hit is dropped outright;
//   - between MinScore and StrongScore the hit must also satisfy any
//     resource hint derived from the query (a question naming postgres
//     should not surface untagged middling matches); at or above
//     StrongScore that requirement is waived;
//   - a platform conflict or resource exclusion drops the hit at any score
//     short of OverrideScore: only a high-confidence semantic match may
//     override the coarse metadata heuristic.
func FilterAndRank(hits []Hit, qctx QueryContext, cap int, r config.Retrieval) ([]RankedResult, bool) {
	best := map[string]Hit{}
	order := make([]string, 0, len(hits))

	for _, hit := range hits {
		if hit.Score < r.MinScore {
			continue
		}
		if hit.Score < r.StrongScore && !satisfiesHints(hit, qctx) {
			continue
		}
		if conflicts(hit, qctx) && hit.Score < r.OverrideScore {
			continue
		}
		if existing, ok := best[hit.ID]; ok {
			// Same document surfaced by both paths: keep the better score.
			if hit.Score > existing.Score {
				best[hit.ID] = hit
			}
			continue
		}
		best[hit.ID] = hit
		order = append(order, hit.ID)
	}

	if len(best) == 0 {
		return nil, true
	}

	survivors := make([]Hit, 0, len(best))
	for _, id := range order {
		survivors = append(survivors, best[id])
	}
	sort.Slice(survivors, func(i, j int) bool {
		if survivors[i].Score != survivors[j].Score {
			return survivors[i].Score > survivors[j].Score
		}
		return survivors[i].ID < survivors[j].ID
	})

	if cap <= 0 || cap > r.MaxResults {
		cap = r.MaxResults
	}
	if len(survivors) > cap {
		survivors = survivors[:cap]
	}

	results := make([]RankedResult, len(survivors))
	for i, hit := range survivors {
		results[i] = RankedResult{
			ID:         hit.ID,
			Collection: hit.Collection,
			Score:      hit.Score,
			Rank:       i + 1,
			Text:       hit.Text,
		}
	}
	return results, false
}

// satisfiesHints reports whether a hit carries the metadata a resource hint
// requires. Hits without the metadata key at all pass: the hint constrains
// tagged records, it does not demand tagging.
func satisfiesHints(hit Hit, qctx QueryContext) bool {
	for key, want := range qctx.ResourceHints {
		value, ok := hit.Metadata[key]
		if !ok || value == "" {
			continue
		}
		if value != want {
			return false
		}
	}
	return true
}

// conflicts reports whether a hit's metadata disagrees with the detected
// platform or falls under a resource exclusion.
func conflicts(hit Hit, qctx QueryContext) bool {
	if qctx.DetectedPlatform != "" {
		if platform, ok := hit.Metadata["platform"]; ok && platform != "" && platform != qctx.DetectedPlatform {
			return true
		}
	}
	for key, excluded := range qctx.ResourceExcludes {
		value, ok := hit.Metadata[key]
		if !ok {
			continue
		}
		for _, bad := range excluded {
			if value == bad {
				return true
			}
		}
	}
	return false
}
