package lyricsrc

import (
	"context"
	"net/url"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/EndBlue418/Spark-Discord-BOT/internal/domain/lyrics"
)

const lrclibBaseURL = "https://lrclib.net"

type lrclibRecord struct {
	ID           int64   `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// LRCLib is a client for the LRCLIB open lyrics database.
type LRCLib struct {
	c *client
}

// NewLRCLib creates an LRCLIB source.
func NewLRCLib(settings map[string]any) (*LRCLib, error) {
	var s Settings
	if err := decodeSettings(settings, &s); err != nil {
		return nil, err
	}
	return &LRCLib{c: newClient("lrclib", lrclibBaseURL, s, nil)}, nil
}

// Name returns the source name.
func (l *LRCLib) Name() string { return "lrclib" }

// Search returns the first result that carries synced lyrics.
func (l *LRCLib) Search(ctx context.Context, query string) (*lyrics.Candidate, error) {
	params := url.Values{}
	params.Set("q", query)

	var res []lrclibRecord
	if err := l.c.getJSON(ctx, "/api/search", params, &res); err != nil {
		return nil, errors.Wrap(err, "lrclib search failed")
	}
	for _, rec := range res {
		if rec.SyncedLyrics == "" || rec.Instrumental {
			continue
		}
		return &lyrics.Candidate{
			Title:  rec.TrackName,
			Artist: rec.ArtistName,
			Ref:    strconv.FormatInt(rec.ID, 10),
		}, nil
	}
	return nil, nil
}

// FetchBody returns the synced lyrics for a record id.
func (l *LRCLib) FetchBody(ctx context.Context, ref string) (*lyrics.Body, error) {
	if _, err := strconv.ParseInt(ref, 10, 64); err != nil {
		return nil, errors.Wrapf(err, "invalid lrclib id %q", ref)
	}

	var rec lrclibRecord
	if err := l.c.getJSON(ctx, "/api/get/"+ref, nil, &rec); err != nil {
		return nil, errors.Wrap(err, "lrclib fetch failed")
	}
	if rec.SyncedLyrics == "" {
		return nil, ErrNotFound
	}
	return &lyrics.Body{Original: rec.SyncedLyrics}, nil
}
