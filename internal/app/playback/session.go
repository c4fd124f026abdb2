package playback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	zlog "github.com/rs/zerolog/log"

	"github.com/EndBlue418/Spark-Discord-BOT/internal/app/history"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/app/queue"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/app/render"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/domain/lyrics"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/domain/track"
)

// playing is the state of one playback instance.
type playing struct {
	gen      uint64
	entry    track.Request
	resolved *track.Resolved

	startedAt     time.Time
	pausedAt      *time.Time
	pausedElapsed time.Duration

	cancel     context.CancelFunc // Stops lyrics and renderer
	renderDone chan struct{}      // Closed when the renderer exits (nil if none)
}

func (p *playing) elapsed(now time.Time) time.Duration {
	end := now
	if p.pausedAt != nil {
		end = *p.pausedAt
	}
	return end.Sub(p.startedAt) - p.pausedElapsed
}

// session is one voice context. The fields from queue down are owned by the
// session goroutine.
type session struct {
	id    snowflake.ID
	sched *Scheduler

	ctx    context.Context // Ends the session goroutine
	cancel context.CancelFunc
	cmds   chan func()
	done   chan struct{}

	// work is the parent of all background work: resolution, lyrics, captions.
	// It can be cancelled from any goroutine.
	work     context.Context
	stopWork context.CancelFunc

	queue   *queue.Store
	history *history.Tracker
	loop    track.LoopMode
	state   State
	sink    Sink
	current *playing
	gen     uint64
}

func newSession(id snowflake.ID, sched *Scheduler) *session {
	ctx, cancel := context.WithCancel(context.Background())
	work, stopWork := context.WithCancel(ctx)
	sess := &session{
		id:       id,
		sched:    sched,
		ctx:      ctx,
		cancel:   cancel,
		work:     work,
		stopWork: stopWork,
		cmds:     make(chan func(), sched.config.CommandBuffer),
		done:     make(chan struct{}),
		queue:    queue.NewStore(),
		history:  history.NewTracker(),
		loop:     track.LoopOff,
		state:    StateIdle,
	}
	go sess.loopCommands()
	return sess
}

func (s *session) loopCommands() {
	defer close(s.done)
	for {
		select {
		case fn := <-s.cmds:
			fn()
		case <-s.ctx.Done():
			return
		}
	}
}

// do runs fn on the session goroutine and waits for its result.
func (s *session) do(ctx context.Context, fn func() error) error {
	errCh := make(chan error, 1)
	cmd := func() {
		defer func() {
			if r := recover(); r != nil {
				zlog.Error().Msgf("session command panicked: session=%s panic=%v", s.id, r)
				errCh <- errors.Newf("internal error: %v", r)
			}
		}()
		errCh <- fn()
	}

	select {
	case s.cmds <- cmd:
	case <-s.done:
		return errors.Wrapf(ErrSessionClosed, "session %s", s.id)
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-errCh:
		return err
	case <-s.done:
		select {
		case err := <-errCh:
			return err
		default:
			return errors.Wrapf(ErrSessionClosed, "session %s", s.id)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// submit queues fn without waiting. Used for sink callbacks.
func (s *session) submit(fn func()) {
	select {
	case s.cmds <- fn:
	case <-s.done:
	}
}

func (s *session) publish(t EventType, err error) {
	e := Event{
		Type:      t,
		SessionID: s.id,
		State:     s.state,
		Err:       err,
	}
	if s.current != nil {
		entry := s.current.entry
		e.Entry = &entry
		e.Track = s.current.resolved
	}
	s.sched.sendEvent(e)
}

func (s *session) record(format string, args ...any) {
	if s.sched.deps.Log == nil {
		return
	}
	s.sched.deps.Log.Record(s.id, fmt.Sprintf(format, args...))
}

func (s *session) enqueue(reqs []track.Request) (EnqueueResult, error) {
	res := EnqueueResult{Added: len(reqs), Position: s.queue.Len() + 1}
	s.queue.EnqueueMany(reqs)
	if s.state != StateIdle {
		return res, nil
	}
	err := s.playNext(nil)
	res.Started = s.state.Active()
	if res.Started {
		res.Position = 0
	}
	return res, err
}

func (s *session) toggle() (State, error) {
	switch s.state {
	case StatePlaying:
		if err := s.sink.Pause(); err != nil {
			return s.state, errors.Mark(errors.Wrap(err, "failed to pause"), ErrSinkUnavailable)
		}
		now := time.Now()
		s.current.pausedAt = &now
		s.state = StatePaused
	case StatePaused:
		if err := s.sink.Resume(); err != nil {
			return s.state, errors.Mark(errors.Wrap(err, "failed to resume"), ErrSinkUnavailable)
		}
		if s.current.pausedAt != nil {
			s.current.pausedElapsed += time.Since(*s.current.pausedAt)
			s.current.pausedAt = nil
		}
		s.state = StatePlaying
	default:
		return s.state, ErrNotPlaying
	}
	s.publish(EventStateChanged, nil)
	return s.state, nil
}

func (s *session) skip() error {
	if s.current == nil {
		return ErrNotPlaying
	}
	return s.advance(endSkip)
}

func (s *session) skipTo(n int) error {
	if n < 1 || n > s.queue.Len() {
		return errors.Wrapf(ErrInvalidIndex, "position %d of %d", n, s.queue.Len())
	}
	s.queue.RemoveFront(n - 1)
	if s.current == nil {
		return s.playNext(nil)
	}
	return s.advance(endSkipTo)
}

func (s *session) previous() error {
	last, ok := s.history.LastPlayed()
	if !ok {
		return ErrNoHistory
	}
	if s.current != nil {
		s.queue.PushFront(last, s.current.entry)
		return s.advance(endPrevious)
	}
	s.queue.PushFront(last)
	return s.playNext(nil)
}

func (s *session) status() Status {
	st := Status{
		SessionID:   s.id,
		State:       s.state,
		Loop:        s.loop,
		QueueLength: s.queue.Len(),
	}
	if s.current != nil {
		entry := s.current.entry
		st.Current = &entry
		st.Title = s.current.resolved.Title
		st.Duration = s.current.resolved.Duration
		st.Elapsed = s.current.elapsed(time.Now())
	}
	return st
}

func (s *session) leave() {
	n := s.queue.Clear()
	s.stopCurrent()
	s.history.Reset()
	if s.sink != nil {
		if err := s.sink.Disconnect(); err != nil {
			zlog.Warn().Msgf("failed to disconnect sink: session=%s error=%v", s.id, err)
		}
		s.sink = nil
	}
	s.state = StateStopped
	zlog.Info().Msgf("session left: session=%s cleared=%d", s.id, n)
	s.publish(EventSessionClosed, nil)
	s.stopWork()
	s.cancel()
}

// onTrackEnd handles a sink end notification for playback gen.
func (s *session) onTrackEnd(gen uint64) {
	if s.current == nil || s.current.gen != gen {
		zlog.Debug().Msgf("ignoring stale end notification: session=%s gen=%d", s.id, gen)
		return
	}
	if err := s.advance(endNatural); err != nil {
		zlog.Warn().Msgf("playback stopped: session=%s error=%v", s.id, err)
	}
}

// advance ends the current playback and picks the next entry per loop mode.
func (s *session) advance(reason endReason) error {
	prev := s.current
	s.stopCurrent()

	zlog.Debug().Msgf("dispatching next track: session=%s reason=%s loop=%s queue=%d", s.id, reason, s.loop, s.queue.Len())

	var replay *track.Request
	if prev != nil {
		switch s.loop {
		case track.LoopSingle:
			// skip, skipTo and previous move on
			if reason == endNatural {
				replay = &prev.entry
			}
		case track.LoopQueue:
			if reason != endPrevious {
				s.queue.Enqueue(prev.entry)
			}
		case track.LoopOff:
		}
	}
	return s.playNext(replay)
}

// stopCurrent stops the sink and the renderer of the current playback.
// The sink's end notification for it becomes stale.
func (s *session) stopCurrent() {
	cur := s.current
	if cur == nil {
		return
	}
	s.current = nil
	if cur.cancel != nil {
		cur.cancel()
	}
	if s.sink != nil && (s.sink.IsPlaying() || s.sink.IsPaused()) {
		if err := s.sink.Stop(); err != nil {
			zlog.Warn().Msgf("failed to stop sink: session=%s error=%v", s.id, err)
		}
	}
	if cur.renderDone != nil {
		<-cur.renderDone
	}
}

// playNext starts first, or the queue head, retrying resolution failures up
// to the configured cap. The session is idle when nothing could start; the
// returned error says why.
func (s *session) playNext(first *track.Request) error {
	var failures int
	var lastErr error

	for failures < s.sched.config.MaxResolveAttempts {
		var entry track.Request
		if first != nil {
			entry, first = *first, nil
		} else {
			next, err := s.queue.DequeueFront()
			if err != nil {
				break
			}
			entry = next
		}

		err := s.start(entry)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrSinkUnavailable) {
			s.queue.PushFront(entry)
			zlog.Warn().Msgf("voice output unavailable: session=%s error=%v", s.id, err)
			s.record("voice output unavailable: %v", err)
			s.goIdle(EventStateChanged, err)
			return err
		}
		if s.work.Err() != nil {
			// leaving
			s.queue.PushFront(entry)
			s.goIdle(EventStateChanged, nil)
			return errors.Wrap(ErrSessionClosed, "session is leaving")
		}
		failures++
		lastErr = err
		zlog.Warn().Msgf("skipping unresolvable track: session=%s query=%q error=%v", s.id, entry.Query, err)
		s.record("skipped %q: %v", entry.Title(), err)
	}

	if failures > 0 {
		err := errors.Mark(errors.Wrapf(lastErr, "%d consecutive failures", failures), ErrQueueExhausted)
		err = errors.Mark(err, ErrResolutionFailed)
		s.goIdle(EventQueueExhausted, err)
		return err
	}
	s.goIdle(EventQueueEmpty, nil)
	return nil
}

func (s *session) goIdle(t EventType, err error) {
	s.current = nil
	s.history.Stop()
	if s.state == StateIdle && t == EventStateChanged {
		return
	}
	s.state = StateIdle
	s.publish(t, err)
}

// start resolves entry and begins playing it.
func (s *session) start(entry track.Request) error {
	resolved, err := s.resolve(entry)
	if err != nil {
		return err
	}

	sink, err := s.ensureSink()
	if err != nil {
		return err
	}

	s.gen++
	gen := s.gen
	onEnd := func() {
		s.submit(func() { s.onTrackEnd(gen) })
	}
	if err := sink.Play(resolved, onEnd); err != nil {
		return errors.Mark(errors.Wrap(err, "failed to start playback"), ErrSinkUnavailable)
	}

	s.history.Transition(entry)
	s.current = &playing{
		gen:       gen,
		entry:     entry,
		resolved:  resolved,
		startedAt: time.Now(),
	}
	s.state = StatePlaying
	zlog.Info().Msgf("track started: session=%s title=%q duration=%s", s.id, resolved.Title, resolved.Duration)
	s.publish(EventTrackStarted, nil)
	s.startCaptions(s.current)
	return nil
}

func (s *session) resolve(entry track.Request) (resolved *track.Resolved, err error) {
	ctx, cancel := context.WithTimeout(s.work, s.sched.config.ResolveTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = errors.Mark(errors.Newf("resolver panic: %v", r), ErrResolutionFailed)
		}
	}()

	resolved, err = s.sched.deps.Resolver.Resolve(ctx, entry.Query)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "failed to resolve %q", entry.Query), ErrResolutionFailed)
	}
	if resolved == nil {
		return nil, errors.Wrapf(ErrResolutionFailed, "no result for %q", entry.Query)
	}
	return resolved, nil
}

func (s *session) ensureSink() (Sink, error) {
	if s.sink != nil && s.sink.IsConnected() {
		return s.sink, nil
	}
	if s.sched.deps.Connector == nil {
		return nil, errors.Wrap(ErrSinkUnavailable, "no voice connector")
	}
	sink, err := s.sched.deps.Connector.Connect(s.work, s.id)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to connect voice output"), ErrSinkUnavailable)
	}
	s.sink = sink
	return sink, nil
}

// startCaptions launches lyric resolution and the caption loop for p.
func (s *session) startCaptions(p *playing) {
	deps := s.sched.deps
	if deps.Renderer == nil || deps.Targets == nil {
		return
	}
	ctx, cancel := context.WithCancel(s.work)
	p.cancel = cancel

	var lyricsCh chan lyrics.Result
	if deps.Lyrics != nil {
		lyricsCh = make(chan lyrics.Result, 1)
		primary := p.entry.DisplayTitle
		if primary == "" {
			primary = p.resolved.Title
		}
		fallback := p.resolved.Title
		go func() {
			res := deps.Lyrics.Resolve(ctx, primary, fallback)
			if ctx.Err() != nil {
				// playback already ended
				return
			}
			lyricsCh <- res
			if len(res.Log) > 0 {
				s.record("lyrics for %q:\n%s", primary, strings.Join(res.Log, "\n"))
			}
			s.submit(func() {
				if s.current == p {
					s.publish(EventLyricsResolved, res.Err)
				}
			})
		}()
	}

	target, err := deps.Targets.Open(ctx, s.id, p.resolved.Title)
	if err != nil {
		zlog.Warn().Msgf("caption target unavailable: session=%s error=%v", s.id, err)
		return
	}

	p.renderDone = make(chan struct{})
	job := render.Job{
		Title:    p.resolved.Title,
		Duration: p.resolved.Duration,
		Probe:    s.sink,
		Target:   target,
		Lyrics:   lyricsCh,
	}
	go func() {
		defer close(p.renderDone)
		deps.Renderer.Run(ctx, job)
	}()
}
