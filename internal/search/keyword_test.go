package search

import (
	"reflect"
	"testing"

	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/config"
)

func testRetrieval() config.Retrieval {
	return config.Retrieval{
		MinScore:          0.58,
		StrongScore:       0.64,
		OverrideScore:     0.70,
		MaxResults:        5,
		NameWeight:        4,
		DisplayNameWeight: 3,
		TagWeight:         3,
		DescriptionWeight: 1,
		BodyWeight:        1,
	}
}

func bundleDoc(id, name, display string, tags []string, description string) Document {
	return Document{
		ID:         id,
		Collection: CollectionBundles,
		Fields: Fields{
			Name:        name,
			DisplayName: display,
			Tags:        tags,
			Description: description,
		},
	}
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("How do I check Postgres replication lag?")
	want := []string{"check", "postgres", "replication", "lag"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("got %v, want %v", tokens, want)
	}
}

func TestTokenizeDropsShortTokens(t *testing.T) {
	tokens := Tokenize("x + y = z k8s")
	want := []string{"k8s"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("got %v, want %v", tokens, want)
	}
}

func TestShortQueryRequiresAllTokens(t *testing.T) {
	docs := []Document{
		bundleDoc("pg-replication", "postgres-replication-check", "Postgres Replication Check", []string{"postgres"}, "checks replication lag"),
		bundleDoc("pg-backup", "postgres-backup", "Postgres Backup", []string{"postgres"}, "runs a backup"),
	}

	// Two tokens: a record missing either one anywhere must not appear.
	hits := KeywordSearch(docs, "postgres replication", testRetrieval())
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].ID != "pg-replication" {
		t.Errorf("expected pg-replication, got %s", hits[0].ID)
	}
}

func TestLongQueryMatchesAnyToken(t *testing.T) {
	docs := []Document{
		bundleDoc("pg-backup", "postgres-backup", "Postgres Backup", nil, "runs a backup"),
		bundleDoc("unrelated", "nginx-restart", "Nginx Restart", nil, "restarts nginx"),
	}

	hits := KeywordSearch(docs, "troubleshoot failing postgres backups tonight", testRetrieval())
	found := false
	for _, h := range hits {
		if h.ID == "pg-backup" {
			found = true
		}
		if h.ID == "unrelated" {
			t.Errorf("record matching no token should be dropped")
		}
	}
	if !found {
		t.Errorf("record matching one of >=3 tokens must appear")
	}
}

func TestFieldWeightsSum(t *testing.T) {
	doc := bundleDoc("pg", "postgres-check", "Postgres Check", []string{"postgres"}, "postgres health")
	hits := KeywordSearch([]Document{doc}, "postgres", testRetrieval())
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	// name(4) + display_name(3) + tags(3) + description(1) = 11
	if hits[0].Score != 11 {
		t.Errorf("expected score 11, got %f", hits[0].Score)
	}
	if len(hits[0].MatchedFields) != 4 {
		t.Errorf("expected 4 matched fields, got %v", hits[0].MatchedFields)
	}
}

func TestExactNameLookupScoresFull(t *testing.T) {
	r := testRetrieval()
	docs := []Document{
		bundleDoc("mysql-check", "mysql-check", "MySQL Check", nil, "verifies connectivity"),
		bundleDoc("mysql-backup", "mysql-backup", "MySQL Backup", []string{"mysql"}, "runs a backup"),
	}

	hits := KeywordSearch(docs, "mysql-check", r)
	if len(hits) == 0 || hits[0].ID != "mysql-check" {
		t.Fatalf("expected mysql-check first, got %+v", hits)
	}
	if got := NormalizeKeywordScore(hits[0].Score, r); got != 1.0 {
		t.Errorf("exact name lookup must normalize to 1.0, got %f", got)
	}

	// Display names resolve the same way.
	hits = KeywordSearch(docs, "MySQL Backup", r)
	if len(hits) == 0 || hits[0].ID != "mysql-backup" {
		t.Fatalf("expected mysql-backup first, got %+v", hits)
	}
	if got := NormalizeKeywordScore(hits[0].Score, r); got != 1.0 {
		t.Errorf("exact display name lookup must normalize to 1.0, got %f", got)
	}
}

func TestEmptyQueryAfterStopWords(t *testing.T) {
	docs := []Document{bundleDoc("pg", "postgres", "Postgres", nil, "")}
	if hits := KeywordSearch(docs, "how do i get the", testRetrieval()); hits != nil {
		t.Errorf("stop-word-only query should match nothing, got %v", hits)
	}
}

func TestDeterministicTieBreak(t *testing.T) {
	docs := []Document{
		bundleDoc("b-check", "b-check-postgres", "", nil, ""),
		bundleDoc("a-check", "a-check-postgres", "", nil, ""),
	}
	hits := KeywordSearch(docs, "postgres", testRetrieval())
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != "a-check" || hits[1].ID != "b-check" {
		t.Errorf("ties must break by name ascending, got [%s %s]", hits[0].ID, hits[1].ID)
	}
}

func TestNormalizeKeywordScore(t *testing.T) {
	r := testRetrieval()
	if got := NormalizeKeywordScore(r.MaxFieldScore(), r); got != 1.0 {
		t.Errorf("full score should normalize to 1.0, got %f", got)
	}
	if got := NormalizeKeywordScore(6, r); got != 0.5 {
		t.Errorf("expected 0.5, got %f", got)
	}
}
