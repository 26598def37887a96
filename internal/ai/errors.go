package ai

import "errors"

// Adapter error classes. Callers branch on these: upstream failures degrade
// search to keyword-only, malformed input is a caller bug and propagates.
var (
	ErrUpstreamUnavailable = errors.New("embedding service unavailable")
	ErrMalformedInput      = errors.New("malformed embedding input")
)
