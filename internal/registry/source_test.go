package registry

import (
	"strings"
	"testing"

	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/config"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/search"
	"github.com/runwhen-contrib/codecollection-registry-sub002/models"
)

func testSource() *Source {
	return NewSource(nil, config.Retrieval{BundleTextCap: 2000, PageTextCap: 12000})
}

func TestBundleDocumentPromotesTagsToMetadata(t *testing.T) {
	doc := testSource().BundleDocument(models.CodeBundle{
		Slug:               "postgres-replication-check",
		CodeCollectionSlug: "rw-public-codecollection",
		Name:               "postgres-replication-check",
		DisplayName:        "Postgres Replication Check",
		Type:               models.BundleTypeTask,
		Platform:           "kubernetes",
		SupportTags:        []string{"PostgreSQL", "monitoring"},
		Description:        "checks replication lag",
	})

	if doc.Collection != search.CollectionBundles || doc.ID != "postgres-replication-check" {
		t.Fatalf("unexpected identity: %+v", doc)
	}
	if doc.Metadata["platform"] != "kubernetes" {
		t.Errorf("platform metadata missing: %v", doc.Metadata)
	}
	if doc.Metadata["resource_type"] != "postgres" {
		t.Errorf("postgresql tag must normalize to resource_type=postgres, got %v", doc.Metadata)
	}
	if doc.Metadata["codecollection"] != "rw-public-codecollection" {
		t.Errorf("codecollection metadata missing: %v", doc.Metadata)
	}
}

func TestBundleDocumentCapsReadme(t *testing.T) {
	src := NewSource(nil, config.Retrieval{BundleTextCap: 10})
	doc := src.BundleDocument(models.CodeBundle{
		Slug:   "big-readme",
		Name:   "big-readme",
		Readme: strings.Repeat("x", 100),
	})
	if len(doc.Fields.Body) != 10 {
		t.Errorf("readme must be capped at 10 bytes, got %d", len(doc.Fields.Body))
	}
}

func TestTruncatePreservesRuneBoundary(t *testing.T) {
	s := "aé" // 'é' is two bytes; cutting at 2 would split it
	got := truncate(s, 2)
	if got != "a" {
		t.Errorf("truncate(%q, 2) = %q, want %q", s, got, "a")
	}
	if got := truncate("short", 100); got != "short" {
		t.Errorf("strings under the cap must pass through, got %q", got)
	}
}

func TestPageDocumentIdentity(t *testing.T) {
	doc := testSource().PageDocument(models.DocumentationPage{
		URL:   "https://docs.example.com/guides/tasks",
		Site:  "docs.example.com",
		Title: "Writing Tasks",
		Text:  "Guide body.",
	})
	if doc.ID != "https://docs.example.com/guides/tasks" {
		t.Errorf("page documents are keyed by URL, got %q", doc.ID)
	}
	if doc.Fields.Name != "Writing Tasks" || doc.Metadata["site"] != "docs.example.com" {
		t.Errorf("unexpected mapping: %+v", doc)
	}
}

func TestEmbeddingTextSkipsEmptyFields(t *testing.T) {
	text := EmbeddingText(search.Document{Fields: search.Fields{
		Name:        "nginx-restart",
		Description: "restarts nginx pods",
	}})
	if text != "nginx-restart\nrestarts nginx pods" {
		t.Errorf("unexpected embedding text: %q", text)
	}
}
