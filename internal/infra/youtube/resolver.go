package youtube

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/EndBlue418/Spark-Discord-BOT/internal/domain/track"
)

// Errors
var (
	ErrEmptyQuery = errors.New("empty query")
	ErrNoStream   = errors.New("no playable stream")
)

const resolvePrint = "%(url)s\t%(title)s\t%(duration)s\t%(webpage_url)s"

// Resolver turns queries and links into playable streams.
type Resolver struct {
	config    Config
	searchers []searcher
	run       runner
}

// NewResolver creates a new resolver.
func NewResolver(cfg Config) *Resolver {
	if cfg.Format == "" {
		cfg.Format = "bestaudio/best"
	}

	var searchers []searcher
	if cfg.UseMusic {
		searchers = append(searchers, musicSearcher{})
	}
	searchers = append(searchers, videoSearcher{})

	return &Resolver{
		config:    cfg,
		searchers: searchers,
		run:       newRunner(cfg),
	}
}

// Resolve returns a fresh stream handle for query. Links are resolved
// directly; anything else is searched first.
func (r *Resolver) Resolve(ctx context.Context, query string) (*track.Resolved, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	target := query
	if !IsURL(query) {
		target = r.searchTarget(ctx, query)
	}

	out, err := r.run(ctx, ytdlpRequest{
		Target: target,
		Print:  resolvePrint,
		Format: r.config.Format,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %q", query)
	}

	resolved, err := parseResolveOutput(out)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %q", query)
	}
	if resolved.Handle.Source == "" {
		resolved.Handle.Source = target
	}

	zlog.Debug().Msgf("youtube: resolved: query=%q title=%q duration=%s", query, resolved.Title, resolved.Duration)
	return resolved, nil
}

// searchTarget runs the search chain and returns a watch link, falling back
// to a yt-dlp search expression when every searcher fails.
func (r *Resolver) searchTarget(ctx context.Context, query string) string {
	q := normalizeQuery(query)
	for _, s := range r.searchers {
		h, err := s.search(ctx, q)
		if err != nil {
			zlog.Debug().Msgf("youtube: search failed: searcher=%s query=%q err=%v", s.name(), q, err)
			continue
		}
		zlog.Debug().Msgf("youtube: search hit: searcher=%s query=%q video=%s title=%q", s.name(), q, h.VideoID, h.Title)
		return WatchURL(h.VideoID)
	}
	return "ytsearch1:" + q
}

// parseResolveOutput reads the first usable line printed with resolvePrint.
func parseResolveOutput(out string) (*track.Resolved, error) {
	for _, f := range splitFields(out, 3) {
		streamURL := naToEmpty(f[0])
		if streamURL == "" {
			continue
		}
		res := &track.Resolved{
			Handle:   track.StreamHandle{URL: streamURL},
			Title:    naToEmpty(f[1]),
			Duration: parseSeconds(f[2]),
		}
		if len(f) > 3 {
			res.Handle.Source = naToEmpty(f[3])
		}
		return res, nil
	}
	return nil, ErrNoStream
}

// parseSeconds parses yt-dlp's duration field. Unknown durations are zero.
func parseSeconds(s string) time.Duration {
	v, err := strconv.ParseFloat(naToEmpty(s), 64)
	if err != nil || v <= 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}
