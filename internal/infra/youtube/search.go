package youtube

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"
)

// ErrNoResults is returned when a search yields no videos.
var ErrNoResults = errors.New("no search results")

// hit is a single search result.
type hit struct {
	VideoID string
	Title   string
}

// searcher finds the best video for a free-text query.
type searcher interface {
	name() string
	search(ctx context.Context, query string) (hit, error)
}

// musicSearcher searches YouTube Music tracks.
type musicSearcher struct{}

func (musicSearcher) name() string { return "ytmusic" }

func (musicSearcher) search(ctx context.Context, query string) (hit, error) {
	type result struct {
		h   hit
		err error
	}
	ch := make(chan result, 1)

	// The client has no context support, so the lookup is abandoned on cancel.
	go func() {
		r, err := ytmusic.TrackSearch(query).Next()
		if err != nil {
			ch <- result{err: errors.Wrap(err, "ytmusic search failed")}
			return
		}
		for _, t := range r.Tracks {
			if t.VideoID == "" {
				continue
			}
			title := t.Title
			if len(t.Artists) > 0 && t.Artists[0].Name != "" {
				title = t.Artists[0].Name + " - " + t.Title
			}
			ch <- result{h: hit{VideoID: t.VideoID, Title: title}}
			return
		}
		ch <- result{err: ErrNoResults}
	}()

	select {
	case <-ctx.Done():
		return hit{}, ctx.Err()
	case r := <-ch:
		return r.h, r.err
	}
}

// videoSearcher searches regular YouTube videos.
type videoSearcher struct{}

func (videoSearcher) name() string { return "ytsearch" }

func (videoSearcher) search(ctx context.Context, query string) (hit, error) {
	c := ytsearch.NewClient(nil)
	res, err := c.Search(ctx, query)
	if err != nil {
		return hit{}, errors.Wrap(err, "youtube search failed")
	}
	for _, r := range res.Results {
		if r.VideoID == "" {
			continue
		}
		return hit{VideoID: r.VideoID, Title: r.Title}, nil
	}
	return hit{}, ErrNoResults
}

// normalizeQuery collapses whitespace in a search query.
func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(q), " ")
}
