// Package errs defines the sentinel errors shared across the enrichment
// core. Call sites wrap these with fmt.Errorf("...: %w", ErrX) to attach
// context; callers match with errors.Is.
package errs

import "errors"

var (
	// ErrRuntimeUnavailable means the local/remote model runtime could not
	// be reached at all (connection refused, DNS failure, transport error).
	ErrRuntimeUnavailable = errors.New("enrich: runtime unavailable")

	// ErrRuntimeTimeout means the runtime was reached but did not respond
	// within the caller's deadline.
	ErrRuntimeTimeout = errors.New("enrich: runtime timeout")

	// ErrInvalidResponse means the runtime responded but the payload did
	// not match the expected shape (wrong count, malformed JSON, missing
	// fields).
	ErrInvalidResponse = errors.New("enrich: invalid runtime response")

	// ErrCorpusUnavailable means a corpus source could not be read during
	// a vector index (re)load.
	ErrCorpusUnavailable = errors.New("enrich: corpus unavailable")

	// ErrCacheInvariantViolated guards cache bookkeeping that should be
	// unreachable in correct code (size exceeding its bound after an
	// eviction pass, for instance). Seeing this means a bug, not bad input.
	ErrCacheInvariantViolated = errors.New("enrich: cache invariant violated")

	// ErrConfigInvalid means a configuration value was present but outside
	// its valid domain (negative timeout, unknown backend name, ...).
	ErrConfigInvalid = errors.New("enrich: invalid configuration")
)
