package search

import (
	"sort"
	"strings"
	"unicode"

	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/config"
)

// stopWords are dropped before matching; they carry no signal against the
// short curated fields this scorer runs over.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "can": {}, "do": {}, "does": {},
	"for": {}, "get": {}, "have": {}, "how": {}, "i": {}, "in": {}, "is": {},
	"it": {}, "me": {}, "my": {}, "of": {}, "on": {}, "or": {}, "show": {},
	"some": {}, "that": {}, "the": {}, "there": {}, "to": {}, "want": {},
	"what": {}, "where": {}, "which": {}, "with": {}, "you": {},
}

// Tokenize lowercases the query, splits on non-alphanumeric runs, and drops
// stop words and tokens shorter than 2 characters (stray punctuation
// artifacts). An empty result means the query matches nothing.
func Tokenize(query string) []string {
	raw := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_'
	})
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		tok = strings.Trim(tok, "-_")
		if len(tok) < 2 {
			continue
		}
		if _, ok := stopWords[tok]; ok {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

type weightedField struct {
	name   string
	value  string
	weight float64
}

func recordFields(f Fields, w config.Retrieval) []weightedField {
	return []weightedField{
		{"name", f.Name, w.NameWeight},
		{"display_name", f.DisplayName, w.DisplayNameWeight},
		{"tags", strings.Join(f.Tags, " "), w.TagWeight},
		{"description", f.Description, w.DescriptionWeight},
		{"body", f.Body, w.BodyWeight},
	}
}

// KeywordSearch scans every document and scores it by weighted field
// presence. Short queries (1-2 tokens) require every token to appear
// somewhere in the record (AND); longer natural-language questions match on
// any token (OR), since short fields rarely contain every keyword of a full
// sentence. Non-matching documents are dropped, not scored zero.
//
// The returned hits carry raw scores; NormalizeKeywordScore maps them into
// [0,1] for the ranker. There is no term frequency weighting: the corpus is
// small enough that presence plus field weight is the whole signal.
func KeywordSearch(docs []Document, query string, w config.Retrieval) []Hit {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}
	requireAll := len(tokens) <= 2
	exact := strings.ToLower(strings.TrimSpace(query))

	hits := make([]Hit, 0)
	for _, doc := range docs {
		fields := recordFields(doc.Fields, w)

		if requireAll && !allTokensPresent(tokens, fields) {
			continue
		}

		var score float64
		var matched []string
		for _, field := range fields {
			if field.value == "" {
				continue
			}
			lower := strings.ToLower(field.value)
			for _, tok := range tokens {
				if strings.Contains(lower, tok) {
					score += field.weight
					matched = append(matched, field.name)
					break
				}
			}
		}
		if score == 0 {
			continue
		}

		// A query that is exactly a record's name or display name is a
		// direct lookup and scores the full field budget, so it survives
		// the relevance floor even when no other field matches.
		if exact == strings.ToLower(doc.Fields.Name) || exact == strings.ToLower(doc.Fields.DisplayName) {
			score = w.MaxFieldScore()
		}

		hits = append(hits, Hit{
			ID:            doc.ID,
			Collection:    doc.Collection,
			Score:         score,
			Source:        SourceKeyword,
			MatchedFields: matched,
			Text:          doc.Text,
			Metadata:      doc.Metadata,
		})
	}

	// Deterministic output: score descending, then record name ascending.
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	return hits
}

// allTokensPresent reports whether every token appears in at least one field.
func allTokensPresent(tokens []string, fields []weightedField) bool {
	for _, tok := range tokens {
		found := false
		for _, field := range fields {
			if field.value != "" && strings.Contains(strings.ToLower(field.value), tok) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// NormalizeKeywordScore maps a raw keyword score into [0,1] by dividing by
// the maximum achievable field score, so keyword and vector hits share one
// threshold scale.
func NormalizeKeywordScore(raw float64, w config.Retrieval) float64 {
	max := w.MaxFieldScore()
	if max == 0 {
		return 0
	}
	normalized := raw / max
	if normalized > 1 {
		normalized = 1
	}
	return normalized
}
