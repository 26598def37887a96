package search

import "testing"

func TestRankerDropsBelowFloor(t *testing.T) {
	hits := []Hit{
		{ID: "weak", Score: 0.50, Source: SourceVector},
		{ID: "ok", Score: 0.60, Source: SourceVector},
	}
	results, noMatch := FilterAndRank(hits, QueryContext{}, 5, testRetrieval())
	if noMatch {
		t.Fatalf("unexpected no-match")
	}
	if len(results) != 1 || results[0].ID != "ok" {
		t.Errorf("expected only the hit above the floor, got %+v", results)
	}
}

func TestRankerCapAndOrder(t *testing.T) {
	hits := make([]Hit, 0, 8)
	ids := []string{"h", "g", "f", "e", "d", "c", "b", "a"}
	for i, id := range ids {
		hits = append(hits, Hit{ID: id, Score: 0.90 - float64(i)*0.01, Source: SourceVector})
	}

	results, _ := FilterAndRank(hits, QueryContext{}, 5, testRetrieval())
	if len(results) != 5 {
		t.Fatalf("cap must limit to 5 results, got %d", len(results))
	}
	for i, res := range results {
		if res.Rank != i+1 {
			t.Errorf("rank %d at position %d", res.Rank, i)
		}
		if i > 0 && results[i-1].Score < res.Score {
			t.Errorf("results not sorted descending")
		}
		if res.Score < 0.58 {
			t.Errorf("result %s below floor: %f", res.ID, res.Score)
		}
	}
}

func TestExclusionOverrideBoundary(t *testing.T) {
	qctx := QueryContext{
		ResourceExcludes: map[string][]string{"resource_type": {"mysql"}},
	}
	conflicting := map[string]string{"resource_type": "mysql"}

	// Below the override threshold the conflicting hit is dropped.
	results, noMatch := FilterAndRank(
		[]Hit{{ID: "low", Score: 0.60, Metadata: conflicting, Source: SourceVector}},
		qctx, 5, testRetrieval())
	if !noMatch || len(results) != 0 {
		t.Errorf("conflicting hit at 0.60 must be dropped, got %+v", results)
	}

	// A strong semantic match overrides the metadata heuristic.
	results, noMatch = FilterAndRank(
		[]Hit{{ID: "high", Score: 0.75, Metadata: conflicting, Source: SourceVector}},
		qctx, 5, testRetrieval())
	if noMatch || len(results) != 1 {
		t.Fatalf("conflicting hit at 0.75 must be kept, got %+v", results)
	}
	if results[0].Score < 0.70 {
		t.Errorf("an override survivor must clear the override floor")
	}
}

func TestPlatformConflict(t *testing.T) {
	qctx := QueryContext{DetectedPlatform: "gcp"}
	hits := []Hit{
		{ID: "azure-hit", Score: 0.62, Metadata: map[string]string{"platform": "azure"}, Source: SourceVector},
		{ID: "untagged", Score: 0.62, Source: SourceVector},
		{ID: "gcp-hit", Score: 0.60, Metadata: map[string]string{"platform": "gcp"}, Source: SourceVector},
	}

	results, _ := FilterAndRank(hits, qctx, 5, testRetrieval())
	for _, res := range results {
		if res.ID == "azure-hit" {
			t.Errorf("platform conflict at 0.62 must be dropped")
		}
	}
	if len(results) != 2 {
		t.Errorf("untagged and matching hits must survive, got %+v", results)
	}
}

func TestHintRequirementBelowStrongFloor(t *testing.T) {
	qctx := QueryContext{
		ResourceHints: map[string]string{"resource_type": "postgres"},
	}

	// Tagged with a different, non-excluded value: dropped below the strong
	// floor, kept at or above it.
	mismatch := map[string]string{"resource_type": "cassandra"}
	results, noMatch := FilterAndRank(
		[]Hit{{ID: "mid", Score: 0.60, Metadata: mismatch, Source: SourceVector}},
		qctx, 5, testRetrieval())
	if !noMatch {
		t.Errorf("hint mismatch below strong floor must drop, got %+v", results)
	}

	results, _ = FilterAndRank(
		[]Hit{{ID: "strong", Score: 0.65, Metadata: mismatch, Source: SourceVector}},
		qctx, 5, testRetrieval())
	if len(results) != 1 {
		t.Errorf("strong hit bypasses the hint requirement, got %+v", results)
	}
}

func TestDuplicateHitsKeepBestScore(t *testing.T) {
	hits := []Hit{
		{ID: "pg", Score: 0.60, Source: SourceKeyword},
		{ID: "pg", Score: 0.80, Source: SourceVector},
	}
	results, _ := FilterAndRank(hits, QueryContext{}, 5, testRetrieval())
	if len(results) != 1 {
		t.Fatalf("duplicates must merge, got %d results", len(results))
	}
	if results[0].Score != 0.80 {
		t.Errorf("merge must keep the better score, got %f", results[0].Score)
	}
}

func TestNoMatchFlag(t *testing.T) {
	results, noMatch := FilterAndRank(nil, QueryContext{}, 5, testRetrieval())
	if !noMatch {
		t.Errorf("empty survivors must set the no-match flag")
	}
	if results != nil {
		t.Errorf("no-match returns an explicit empty result, got %+v", results)
	}
}
