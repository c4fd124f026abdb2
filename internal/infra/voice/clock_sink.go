// Package voice provides a virtual voice output that plays tracks against the
// wall clock. It stands in for a real voice transport and reports the same
// lifecycle: playing, paused, stopped and end-of-track.
package voice

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	zlog "github.com/rs/zerolog/log"

	"github.com/EndBlue418/Spark-Discord-BOT/internal/domain/track"
)

// Errors
var (
	ErrNotConnected = errors.New("voice output not connected")
	ErrNoStream     = errors.New("stream handle has no URL")
	ErrNotPlaying   = errors.New("not playing")
	ErrNotPaused    = errors.New("not paused")
)

type sinkState int

const (
	sinkIdle sinkState = iota
	sinkPlaying
	sinkPaused
)

// ClockSink plays a track by waiting out its duration.
type ClockSink struct {
	mu sync.Mutex

	sessionID snowflake.ID
	connected bool
	state     sinkState

	title     string
	remaining time.Duration
	resumedAt time.Time
	timer     func()
	onEnd     func()
	gen       uint64

	defaultSpan time.Duration
	tick        time.Duration
}

// Play starts t and arranges for onEnd to be called once when it ends or is stopped.
func (s *ClockSink) Play(t *track.Resolved, onEnd func()) error {
	if t == nil || t.Handle.URL == "" {
		return ErrNoStream
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return ErrNotConnected
	}
	s.endLocked()

	s.title = t.Title
	s.remaining = t.Duration
	if s.remaining <= 0 {
		s.remaining = s.defaultSpan
	}
	s.onEnd = onEnd
	s.gen++
	s.state = sinkPlaying
	s.resumedAt = toWallTime(time.Now())
	s.timer = s.startWallClockTimer(s.remaining, s.expireFunc(s.gen))

	zlog.Debug().Msgf("voice: playing: session=%s title=%q duration=%s", s.sessionID, t.Title, s.remaining)
	return nil
}

// Pause freezes the remaining time.
func (s *ClockSink) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != sinkPlaying {
		return ErrNotPlaying
	}
	s.cancelTimerLocked()
	s.remaining -= toWallTime(time.Now()).Sub(s.resumedAt)
	s.state = sinkPaused
	return nil
}

// Resume continues a paused track.
func (s *ClockSink) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != sinkPaused {
		return ErrNotPaused
	}
	s.state = sinkPlaying
	s.resumedAt = toWallTime(time.Now())
	s.timer = s.startWallClockTimer(s.remaining, s.expireFunc(s.gen))
	return nil
}

// Stop ends the current track. Its end callback runs asynchronously.
func (s *ClockSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endLocked()
	return nil
}

// Disconnect stops playback and releases the output.
func (s *ClockSink) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endLocked()
	s.connected = false
	zlog.Debug().Msgf("voice: disconnected: session=%s", s.sessionID)
	return nil
}

// IsPlaying reports whether a track is playing.
func (s *ClockSink) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == sinkPlaying
}

// IsPaused reports whether a track is paused.
func (s *ClockSink) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == sinkPaused
}

// IsConnected reports whether the output is usable.
func (s *ClockSink) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// expireFunc returns the timer callback for play generation gen.
func (s *ClockSink) expireFunc(gen uint64) func() {
	return func() {
		s.mu.Lock()
		if s.gen != gen || s.state != sinkPlaying {
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.state = sinkIdle
		end := s.onEnd
		s.onEnd = nil
		title := s.title
		s.mu.Unlock()

		zlog.Debug().Msgf("voice: track finished: session=%s title=%q", s.sessionID, title)
		if end != nil {
			end()
		}
	}
}

// endLocked stops any running track and fires its callback on a new goroutine.
func (s *ClockSink) endLocked() {
	s.cancelTimerLocked()
	s.state = sinkIdle
	if end := s.onEnd; end != nil {
		s.onEnd = nil
		go end()
	}
}

func (s *ClockSink) cancelTimerLocked() {
	if s.timer != nil {
		s.timer()
		s.timer = nil
	}
}

// startWallClockTimer calls callback once duration of wall-clock time has passed.
// It returns a cancel function.
func (s *ClockSink) startWallClockTimer(duration time.Duration, callback func()) func() {
	ctx, cancel := context.WithCancel(context.Background())

	fn := func() {
		endTime := toWallTime(time.Now()).Add(duration)
		ticker := time.NewTicker(s.tick)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !toWallTime(time.Now()).Before(endTime) {
					callback()
					return
				}
			}
		}
	}

	go fn()

	return cancel
}

// toWallTime returns the time with monotonic clock stripped.
func toWallTime(t time.Time) time.Time {
	return time.Unix(t.Unix(), int64(t.Nanosecond()))
}
