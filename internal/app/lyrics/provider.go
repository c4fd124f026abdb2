// Package lyrics resolves time-coded lyrics for a playing track from an
// ordered list of providers, verifying each candidate by title similarity.
package lyrics

import (
	"context"

	domain "github.com/EndBlue418/Spark-Discord-BOT/internal/domain/lyrics"
)

// Provider is the interface for lyric database clients.
type Provider interface {
	// Name returns the provider name (used in config and logs).
	Name() string

	// Search returns the best match for query, or nil when nothing matched.
	Search(ctx context.Context, query string) (*domain.Candidate, error)

	// FetchBody returns the time-coded lyrics for a candidate reference.
	FetchBody(ctx context.Context, ref string) (*domain.Body, error)
}
