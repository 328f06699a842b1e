// Package resolver wraps the external media search/extraction engine.
// Search turns a free-text query into an ordered candidate list; Fetch turns
// a chosen candidate into a transcoded MP3 on disk.
package resolver

import (
	"context"
	"errors"
	"fmt"
)

// Candidate is one searchable result from the external index, not yet
// downloaded. Immutable once produced.
type Candidate struct {
	ID       string // opaque source identifier
	Title    string
	Uploader string
	Duration int // seconds; 0 = unknown
	URL      string
}

// ErrUnavailable means the external index could not be reached or returned a
// malformed response. An empty result set is NOT this error: a query with
// zero matches returns an empty slice and nil.
var ErrUnavailable = errors.New("resolver unavailable")

// FetchError reports a failed download/extract/transcode with a
// human-readable reason.
type FetchError struct {
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Reason != "" {
		return "fetch failed: " + e.Reason
	}
	return fmt.Sprintf("fetch failed: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Resolver is the boundary to the search/extraction engine.
// Both calls may take seconds to tens of seconds; callers must not hold
// locks across them.
type Resolver interface {
	// Search returns up to limit candidates in the index's relevance order
	// (never re-sorted). Entries without a usable id and age-restricted
	// entries are filtered out after retrieval.
	Search(ctx context.Context, query string, limit int) ([]Candidate, error)
	// Fetch downloads and transcodes the candidate, returning a local path.
	Fetch(ctx context.Context, c Candidate) (string, error)
}
