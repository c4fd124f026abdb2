// Package track provides the track request and resolved track domain entities.
package track

import (
	"strings"
	"time"
)

// Request represents a user's request to play something.
// Query is a search string or a link understood by the track resolver.
type Request struct {
	Query        string // Search string or link
	DisplayTitle string // Title shown to users (optional)
}

// NewRequest creates a request with no display title.
func NewRequest(query string) Request {
	return Request{Query: strings.TrimSpace(query)}
}

// Title returns the display title, falling back to the query.
func (r Request) Title() string {
	if r.DisplayTitle != "" {
		return r.DisplayTitle
	}
	return r.Query
}

// StreamHandle is an opaque playable reference returned by the resolver.
// Handles may expire, so they are re-fetched on every replay.
type StreamHandle struct {
	URL     string            // Direct media URL
	Headers map[string]string // HTTP headers required to open the URL (optional)
	Source  string            // Page URL the handle was resolved from
}

// Resolved represents a track that is ready to play.
type Resolved struct {
	Handle   StreamHandle  // Playable stream
	Title    string        // Title reported by the resolver
	Duration time.Duration // Track duration (zero if unknown)
}

// HasDuration reports whether the duration is known.
func (r *Resolved) HasDuration() bool {
	return r != nil && r.Duration > 0
}
