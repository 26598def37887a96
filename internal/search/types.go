// Package search implements the retrieval pipeline behind the assistant:
// query classification, keyword and vector search, and relevance ranking.
package search

import "encoding/json"

// Vector/registry collection names. Each is a named partition of the vector
// store with a fixed embedding dimension, mirroring the Mongo collections.
const (
	CollectionBundles     = "codebundles"
	CollectionCollections = "codecollections"
	CollectionLibraries   = "libraries"
	CollectionDocPages    = "doc_pages"
)

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one prior conversation turn, caller-supplied per request. The
// pipeline never stores history; it is pure input.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Fields are the independently weighted searchable fields of a record.
type Fields struct {
	Name        string
	DisplayName string
	Tags        []string
	Description string
	Body        string
}

// Document is one retrievable unit as fed by the registry.
type Document struct {
	ID         string
	Collection string
	Text       string
	Fields     Fields
	Metadata   map[string]string
}

// Hit sources.
const (
	SourceKeyword = "keyword"
	SourceVector  = "vector"
)

// Hit is a raw result from one search path. Score is already normalized to
// [0,1]: keyword scores against the maximum possible field weight, vector
// scores are cosine similarity.
type Hit struct {
	ID            string
	Collection    string
	Score         float64
	Source        string
	MatchedFields []string
	Text          string
	Metadata      map[string]string
}

// RankedResult is one entry of the final capped, ordered result list.
type RankedResult struct {
	ID         string  `json:"id"`
	Collection string  `json:"collection"`
	Score      float64 `json:"score"`
	Rank       int     `json:"rank"`
	Text       string  `json:"text,omitempty"`
}

// Mode is the closed set of query classifications. Downstream switches over
// Mode are exhaustive; there is no string re-testing past the classifier.
type Mode int

const (
	// ModeFresh is a self-contained question.
	ModeFresh Mode = iota
	// ModeFollowUp depends on an entity from prior turns.
	ModeFollowUp
	// ModeMeta asks about the registry itself rather than its contents.
	ModeMeta
	// ModeLibraryHelp asks how to use a shared library.
	ModeLibraryHelp
)

// MarshalJSON emits the mode name so API clients never see the enum value.
func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m Mode) String() string {
	switch m {
	case ModeFresh:
		return "fresh"
	case ModeFollowUp:
		return "follow-up"
	case ModeMeta:
		return "meta"
	case ModeLibraryHelp:
		return "library-help"
	default:
		return "unknown"
	}
}

// QueryContext is the per-request derived state produced once by Classify
// and consumed read-only downstream.
type QueryContext struct {
	Mode             Mode                `json:"mode"`
	FocusEntity      string              `json:"focus_entity,omitempty"`
	DetectedPlatform string              `json:"detected_platform,omitempty"`
	ResourceHints    map[string]string   `json:"resource_hints,omitempty"`
	ResourceExcludes map[string][]string `json:"resource_excludes,omitempty"`
	// AugmentedQuery replaces the raw question in the search paths when the
	// question itself is a vague back-reference.
	AugmentedQuery string `json:"augmented_query,omitempty"`
}

// Response is the structured result of the end-to-end search entry point.
// NoMatch distinguishes "nothing relevant" from a pipeline fault; Degraded
// flags that vector search was skipped because the embedder was unavailable.
type Response struct {
	Results  []RankedResult `json:"results"`
	NoMatch  bool           `json:"no_match"`
	Degraded bool           `json:"degraded"`
	Context  QueryContext   `json:"context"`
}
