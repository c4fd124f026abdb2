// Package render drives the clock-based caption loop for one playback.
package render

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/EndBlue418/Spark-Discord-BOT/internal/domain/lyrics"
)

// Target receives rendered captions. An error ends the loop.
type Target interface {
	Emit(ctx context.Context, caption Caption) error
}

// Probe reports the state of the playback the renderer is bound to.
type Probe interface {
	IsPlaying() bool
	IsPaused() bool
	IsConnected() bool
}

// Clock abstracts wall-clock time for the loop.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type wallClock struct{}

func (wallClock) Now() time.Time {
	return toWallTime(time.Now())
}

func (wallClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// toWallTime returns the time with the monotonic clock reading stripped.
func toWallTime(t time.Time) time.Time {
	return time.Unix(t.Unix(), int64(t.Nanosecond()))
}

// Config holds renderer configuration.
type Config struct {
	Tick          time.Duration // Loop interval
	Lead          time.Duration // Added to elapsed time to offset display latency
	DefaultSpan   time.Duration // Progress span when the duration is unknown
	MaxUpdatesSec float64       // Emit rate limit
	Burst         int           // Emit burst size
}

// Job binds one run of the loop to a playback.
type Job struct {
	Title    string
	Duration time.Duration        // Zero when unknown
	Probe    Probe
	Target   Target
	Lyrics   <-chan lyrics.Result // Delivers at most one result; nil means no lyrics
}

// Renderer runs caption loops. One Renderer can serve any number of jobs.
type Renderer struct {
	config Config
	clock  Clock
}

// NewRenderer creates a renderer using the wall clock.
func NewRenderer(config Config) *Renderer {
	return NewRendererWithClock(config, wallClock{})
}

// NewRendererWithClock creates a renderer with a custom clock.
func NewRendererWithClock(config Config, clock Clock) *Renderer {
	if config.Tick <= 0 {
		config.Tick = 100 * time.Millisecond
	}
	if config.DefaultSpan <= 0 {
		config.DefaultSpan = 240 * time.Second
	}
	if config.MaxUpdatesSec <= 0 {
		config.MaxUpdatesSec = 2
	}
	if config.Burst <= 0 {
		config.Burst = 2
	}
	return &Renderer{config: config, clock: clock}
}

// renderKey is what must change for a new frame to be emitted.
type renderKey struct {
	line        int
	placeholder Placeholder
	second      int64
}

// Run loops until ctx ends, the probe reports the playback gone, or the
// target fails. It never returns an error.
func (r *Renderer) Run(ctx context.Context, job Job) {
	limiter := rate.NewLimiter(rate.Limit(r.config.MaxUpdatesSec), r.config.Burst)

	var (
		track     *lyrics.CaptionTrack
		resolved  bool
		failed    bool
		lastKey   = renderKey{line: -2}
		anchor    = r.clock.Now()
		lastTick  = anchor
		lyricsCh  = job.Lyrics
		emitCount int
	)

	defer func() {
		zlog.Debug().Msgf("renderer stopped: title=%q frames=%d", job.Title, emitCount)
	}()

	for {
		if ctx.Err() != nil || !job.Probe.IsConnected() {
			return
		}
		paused := job.Probe.IsPaused()
		if !paused && !job.Probe.IsPlaying() {
			return
		}

		now := r.clock.Now()
		if paused {
			// shift the anchor so elapsed time freezes
			anchor = anchor.Add(now.Sub(lastTick))
			lastTick = now
			if r.clock.Sleep(ctx, r.config.Tick) != nil {
				return
			}
			continue
		}
		lastTick = now

		if !resolved && lyricsCh != nil {
			select {
			case res, ok := <-lyricsCh:
				resolved = true
				if ok && res.Found() {
					track = res.Track
				} else {
					failed = true
				}
			default:
			}
		}
		if lyricsCh == nil && !resolved {
			resolved, failed = true, true
		}

		caption, key := r.frame(job, now.Sub(anchor)+r.config.Lead, track, resolved, failed)
		if key != lastKey && limiter.AllowN(now, 1) {
			if err := job.Target.Emit(ctx, caption); err != nil {
				zlog.Debug().Msgf("render target unavailable: title=%q error=%v", job.Title, err)
				return
			}
			lastKey = key
			emitCount++
		}

		if r.clock.Sleep(ctx, r.config.Tick) != nil {
			return
		}
	}
}

// frame builds the caption for elapsed and the key used to detect changes.
func (r *Renderer) frame(job Job, elapsed time.Duration, track *lyrics.CaptionTrack, resolved, failed bool) (Caption, renderKey) {
	shown := elapsed
	if shown < 0 {
		shown = 0
	}
	span := job.Duration
	if span <= 0 {
		span = r.config.DefaultSpan
	}
	progress := float64(shown) / float64(span)
	if progress > 1 {
		progress = 1
	}

	caption := Caption{
		Title:    job.Title,
		Elapsed:  shown,
		Duration: job.Duration,
		Progress: progress,
	}
	key := renderKey{line: -1, second: int64(shown / time.Second)}

	switch {
	case !resolved:
		caption.Placeholder = PlaceholderPreparing
	case failed:
		caption.Placeholder = PlaceholderNoLyrics
	default:
		idx, line, ok := track.ActiveAt(elapsed)
		if ok {
			caption.Line = line
			key.line = idx
		} else {
			caption.Placeholder = PlaceholderInstrumental
		}
	}
	key.placeholder = caption.Placeholder
	return caption, key
}
