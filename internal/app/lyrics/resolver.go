package lyrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/EndBlue418/Spark-Discord-BOT/internal/app/workpool"
	domain "github.com/EndBlue418/Spark-Discord-BOT/internal/domain/lyrics"
)

// Errors
var (
	ErrLyricsUnavailable = errors.New("no matching lyrics found")
	ErrProviderTimeout   = errors.New("lyric provider timed out")
)

// Config holds resolver configuration.
type Config struct {
	ProviderTimeout time.Duration // Budget for each provider call
	ResolveTimeout  time.Duration // Budget for the whole resolution
}

// Resolver queries providers in order and returns the first verified match.
type Resolver struct {
	providers []Provider
	pool      *workpool.Pool
	romaji    Transliterator
	config    Config
}

// NewResolver creates a new resolver. romaji may be nil.
func NewResolver(providers []Provider, pool *workpool.Pool, romaji Transliterator, config Config) *Resolver {
	if config.ProviderTimeout <= 0 {
		config.ProviderTimeout = 3 * time.Second
	}
	if config.ResolveTimeout <= 0 {
		config.ResolveTimeout = 8 * time.Second
	}
	if pool == nil {
		pool = workpool.New(workpool.DefaultSize)
	}
	return &Resolver{
		providers: providers,
		pool:      pool,
		romaji:    romaji,
		config:    config,
	}
}

// Resolve looks up lyrics for primary, then for fallback when primary finds nothing.
// The returned log describes every attempt whether or not a track was found.
func (r *Resolver) Resolve(ctx context.Context, primary, fallback string) domain.Result {
	ctx, cancel := context.WithTimeout(ctx, r.config.ResolveTimeout)
	defer cancel()

	var logs []string
	logf := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		logs = append(logs, msg)
		zlog.Debug().Msg("lyrics: " + msg)
	}

	queries := roundQueries(primary, fallback)
	for round, query := range queries {
		logf("round %d: query=%q", round+1, query)
		for _, p := range r.providers {
			if err := ctx.Err(); err != nil {
				logf("resolution aborted: %v", err)
				return domain.Result{Log: logs, Err: errors.Mark(errors.Wrap(err, "lyrics resolution aborted"), ErrLyricsUnavailable)}
			}

			track, err := r.tryProvider(ctx, p, query, logf)
			if err != nil {
				continue
			}
			logf("accepted: provider=%s lines=%d", p.Name(), track.Len())
			return domain.Result{Track: track, Provider: p.Name(), Log: logs}
		}
	}

	logf("no provider returned matching lyrics")
	return domain.Result{Log: logs, Err: ErrLyricsUnavailable}
}

// tryProvider runs one provider attempt. Any error counts as a rejection.
func (r *Resolver) tryProvider(ctx context.Context, p Provider, query string, logf func(string, ...any)) (*domain.CaptionTrack, error) {
	cand, err := callProvider(ctx, r, func(ctx context.Context) (*domain.Candidate, error) {
		return p.Search(ctx, query)
	})
	if err != nil {
		logf("provider=%s search failed: %v", p.Name(), err)
		return nil, err
	}
	if cand == nil {
		logf("provider=%s no result", p.Name())
		return nil, ErrLyricsUnavailable
	}

	score, ok := Accept(query, cand.Display())
	verdict := "reject"
	if ok {
		verdict = "accept"
	}
	logf("provider=%s candidate=%q score=%.2f threshold=%.1f %s", p.Name(), cand.Display(), score, Threshold(query), verdict)
	if !ok {
		return nil, ErrLyricsUnavailable
	}

	body, err := callProvider(ctx, r, func(ctx context.Context) (*domain.Body, error) {
		return p.FetchBody(ctx, cand.Ref)
	})
	if err != nil {
		logf("provider=%s fetch failed: %v", p.Name(), err)
		return nil, err
	}

	track, err := Merge(ctx, r.pool, r.romaji, body)
	if err != nil {
		logf("provider=%s unusable body: %v", p.Name(), err)
		return nil, err
	}
	return track, nil
}

// callProvider runs fn on the worker pool under the per-provider timeout.
func callProvider[T any](ctx context.Context, r *Resolver, fn func(ctx context.Context) (T, error)) (T, error) {
	pctx, cancel := context.WithTimeout(ctx, r.config.ProviderTimeout)
	defer cancel()

	v, err := workpool.Run(pctx, r.pool, fn)
	if err != nil && errors.Is(pctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return v, errors.Mark(errors.Wrap(err, "provider call"), ErrProviderTimeout)
	}
	return v, err
}

// roundQueries returns the normalized queries to try, skipping an empty or
// duplicate fallback.
func roundQueries(primary, fallback string) []string {
	var out []string
	add := func(title string) {
		q := NormalizeTitle(title)
		if q == "" {
			q = strings.TrimSpace(title)
		}
		if q == "" {
			return
		}
		for _, existing := range out {
			if strings.EqualFold(existing, q) {
				return
			}
		}
		out = append(out, q)
	}
	add(primary)
	add(fallback)
	return out
}
