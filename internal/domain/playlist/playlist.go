// Package playlist provides the expanded collection domain entity.
package playlist

import "github.com/EndBlue418/Spark-Discord-BOT/internal/domain/track"

// Kind identifies what a shared link pointed to.
type Kind string

const (
	KindTrack    Kind = "track"
	KindAlbum    Kind = "album"
	KindPlaylist Kind = "playlist"
)

// Playlist represents a collection expanded from a shareable link.
type Playlist struct {
	Kind    Kind            // What the link pointed to
	ID      string          // Source-specific ID
	Name    string          // Collection name (optional)
	URL     string          // Original link
	Entries []track.Request // Ordered requests
}

// Queries returns the query of every entry in order.
func (p *Playlist) Queries() []string {
	queries := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		queries[i] = e.Query
	}
	return queries
}

// Len returns the number of entries.
func (p *Playlist) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Entries)
}
