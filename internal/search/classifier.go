package search

import (
	"regexp"
	"sort"
	"strings"
)

// followUpTriggers are phrases that refer to something discussed in prior
// turns. Matched case-insensitively as substrings.
var followUpTriggers = []string{
	"tell me more",
	"more about",
	"more details",
	"more information",
	"the link",
	"how to use this",
	"how do i use this",
	"how do i use it",
	"about it",
	"about that",
	"this one",
	"that one",
	"this bundle",
	"that bundle",
	"does it",
	"can it",
}

// metaTriggers mark questions about the registry itself.
var metaTriggers = []string{
	"how many",
	"what collections",
	"which collections",
	"list all",
	"list the",
	"what can you",
	"what do you know",
}

// libraryTriggers mark questions about shared libraries rather than bundles.
var libraryTriggers = []string{
	"library",
	"libraries",
	"keyword import",
	"shared keyword",
}

// vagueTriggers are back-references with no subject of their own; the
// classifier recovers the subject from the first user turn.
var vagueTriggers = []string{
	"something else",
	"a different one",
	"another one",
	"any other",
	"anything else",
	"other options",
}

// slugPattern matches registry identifiers in assistant prose, e.g.
// "k8s-deployment-healthcheck".
var slugPattern = regexp.MustCompile(`\b[a-z][a-z0-9]*(?:-[a-z0-9]+)+\b`)

// Classifier turns a question plus conversation history into a QueryContext.
type Classifier struct {
	hints HintTable
}

// NewClassifier builds a classifier over the given hint table; pass
// DefaultHints() unless the deployment overrides the heuristics.
func NewClassifier(hints HintTable) *Classifier {
	return &Classifier{hints: hints}
}

// Classify runs once per request. The resulting context is read-only for
// the rest of the pipeline.
func (c *Classifier) Classify(question string, history []Turn) QueryContext {
	lower := strings.ToLower(question)

	qctx := QueryContext{Mode: ModeFresh}
	c.detectPlatform(lower, &qctx)
	c.detectResources(lower, &qctx)

	switch {
	case containsAny(lower, metaTriggers):
		qctx.Mode = ModeMeta
	case containsAny(lower, libraryTriggers):
		qctx.Mode = ModeLibraryHelp
	case containsAny(lower, followUpTriggers) && len(history) > 0:
		// Follow-up needs a resolvable focus entity; without one the
		// question is unanswerable in follow-up mode, so degrade to fresh
		// rather than searching for nothing.
		if focus := extractFocusEntity(history); focus != "" {
			qctx.Mode = ModeFollowUp
			qctx.FocusEntity = focus
		}
	}

	if containsAny(lower, vagueTriggers) {
		if subject := firstUserTurn(history); subject != "" {
			qctx.AugmentedQuery = subject + " " + question
		}
	}

	return qctx
}

func (c *Classifier) detectPlatform(lower string, qctx *QueryContext) {
	// Deterministic scan order so overlapping keywords resolve stably.
	keywords := make([]string, 0, len(platformKeywords))
	for kw := range platformKeywords {
		keywords = append(keywords, kw)
	}
	sort.Strings(keywords)
	for _, kw := range keywords {
		if containsWord(lower, kw) {
			qctx.DetectedPlatform = platformKeywords[kw]
			return
		}
	}
}

func (c *Classifier) detectResources(lower string, qctx *QueryContext) {
	keywords := make([]string, 0, len(c.hints))
	for kw := range c.hints {
		keywords = append(keywords, kw)
	}
	sort.Strings(keywords)

	mentioned := map[string]map[string]bool{}
	excluded := map[string]map[string]bool{}
	for _, kw := range keywords {
		if !containsWord(lower, kw) {
			continue
		}
		hint := c.hints[kw]
		if qctx.ResourceHints == nil {
			qctx.ResourceHints = map[string]string{}
			qctx.ResourceExcludes = map[string][]string{}
		}
		qctx.ResourceHints[hint.Key] = hint.Value
		if mentioned[hint.Key] == nil {
			mentioned[hint.Key] = map[string]bool{}
			excluded[hint.Key] = map[string]bool{}
		}
		mentioned[hint.Key][hint.Value] = true
		for _, ex := range hint.Exclude {
			excluded[hint.Key][ex] = true
		}
	}

	// A question naming several siblings of one group wants all of them:
	// no value the user mentioned may end up excluded.
	for key, values := range excluded {
		out := make([]string, 0, len(values))
		for value := range values {
			if !mentioned[key][value] {
				out = append(out, value)
			}
		}
		sort.Strings(out)
		if len(out) > 0 {
			qctx.ResourceExcludes[key] = out
		}
	}
}

// extractFocusEntity scans assistant turns newest-first for a slug-like
// identifier; the most recently mentioned entity is the likeliest referent.
func extractFocusEntity(history []Turn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != RoleAssistant {
			continue
		}
		if match := slugPattern.FindString(strings.ToLower(history[i].Content)); match != "" {
			return match
		}
	}
	return ""
}

func firstUserTurn(history []Turn) string {
	for _, turn := range history {
		if turn.Role == RoleUser {
			return strings.TrimSpace(turn.Content)
		}
	}
	return ""
}

func containsAny(s string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(s, phrase) {
			return true
		}
	}
	return false
}

// containsWord matches kw as a whole token, not a substring, so "redis"
// does not fire on "rediscover".
func containsWord(s, kw string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], kw)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(kw)
		beforeOK := start == 0 || !isWordByte(s[start-1])
		afterOK := end == len(s) || !isWordByte(s[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
