package playback

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	zlog "github.com/rs/zerolog/log"

	"github.com/EndBlue418/Spark-Discord-BOT/internal/domain/track"
)

// Config holds scheduler configuration.
type Config struct {
	MaxResolveAttempts int           // Resolution failures tolerated per dispatch
	ResolveTimeout     time.Duration // Budget for one track resolution
	CommandBuffer      int           // Per-session command queue size
	EventBuffer        int           // Scheduler event channel size
}

// Deps holds the collaborators used by every session.
// Lyrics, Renderer, Targets and Log are optional.
type Deps struct {
	Resolver  TrackResolver
	Connector SinkConnector
	Lyrics    LyricsResolver
	Renderer  CaptionRunner
	Targets   TargetOpener
	Log       LogSink
}

// Scheduler owns the registry of sessions. Every operation on a session is
// executed by that session's own goroutine, in submission order.
type Scheduler struct {
	mu       sync.Mutex
	sessions map[snowflake.ID]*session
	closed   bool

	config Config
	deps   Deps

	eventCh chan Event
}

// EnqueueResult reports the outcome of an enqueue.
type EnqueueResult struct {
	Position int  // 1-based queue position of the first added entry (0 if it started playing)
	Added    int  // Number of entries added
	Started  bool // Whether playback started as a result
}

// Status is a snapshot of one session.
type Status struct {
	SessionID   snowflake.ID
	State       State
	Loop        track.LoopMode
	Current     *track.Request
	Title       string
	Elapsed     time.Duration
	Duration    time.Duration
	QueueLength int
}

// NewScheduler creates a new scheduler.
func NewScheduler(config Config, deps Deps) *Scheduler {
	if config.MaxResolveAttempts <= 0 {
		config.MaxResolveAttempts = 5
	}
	if config.ResolveTimeout <= 0 {
		config.ResolveTimeout = 30 * time.Second
	}
	if config.CommandBuffer <= 0 {
		config.CommandBuffer = 64
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = 64
	}
	return &Scheduler{
		sessions: make(map[snowflake.ID]*session),
		config:   config,
		deps:     deps,
		eventCh:  make(chan Event, config.EventBuffer),
	}
}

// Events returns the event channel.
func (s *Scheduler) Events() <-chan Event {
	return s.eventCh
}

func (s *Scheduler) sendEvent(e Event) {
	select {
	case s.eventCh <- e:
	default:
		zlog.Warn().Msgf("event channel full, dropping event: type=%s session=%s", e.Type, e.SessionID)
	}
}

// lookup returns the session for id, creating it when create is set.
func (s *Scheduler) lookup(id snowflake.ID, create bool) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}
	if !create || s.closed {
		return nil, errors.Wrapf(ErrSessionNotFound, "session %s", id)
	}
	sess := newSession(id, s)
	s.sessions[id] = sess
	zlog.Info().Msgf("session created: session=%s", id)
	return sess, nil
}

func (s *Scheduler) remove(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.sessions[sess.id]; ok && cur == sess {
		delete(s.sessions, sess.id)
	}
}

// sessionIDs returns the IDs of all registered sessions.
func (s *Scheduler) sessionIDs() []snowflake.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]snowflake.ID, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Enqueue adds a request, creating the session if needed.
// An idle session starts playing immediately.
func (s *Scheduler) Enqueue(ctx context.Context, id snowflake.ID, req track.Request) (EnqueueResult, error) {
	return s.EnqueueMany(ctx, id, []track.Request{req})
}

// EnqueueMany adds requests in order, creating the session if needed.
func (s *Scheduler) EnqueueMany(ctx context.Context, id snowflake.ID, reqs []track.Request) (EnqueueResult, error) {
	if len(reqs) == 0 {
		return EnqueueResult{}, errors.Wrap(ErrEmptyQueue, "nothing to enqueue")
	}
	sess, err := s.lookup(id, true)
	if err != nil {
		return EnqueueResult{}, err
	}
	var res EnqueueResult
	err = sess.do(ctx, func() error {
		var err error
		res, err = sess.enqueue(reqs)
		return err
	})
	return res, err
}

// Toggle switches between playing and paused and returns the new state.
func (s *Scheduler) Toggle(ctx context.Context, id snowflake.ID) (State, error) {
	var state State
	err := s.run(ctx, id, func(sess *session) error {
		var err error
		state, err = sess.toggle()
		return err
	})
	return state, err
}

// Skip stops the current track and plays the next one.
func (s *Scheduler) Skip(ctx context.Context, id snowflake.ID) error {
	return s.run(ctx, id, func(sess *session) error {
		return sess.skip()
	})
}

// SkipTo discards the entries before 1-based position n and plays entry n.
func (s *Scheduler) SkipTo(ctx context.Context, id snowflake.ID, n int) error {
	return s.run(ctx, id, func(sess *session) error {
		return sess.skipTo(n)
	})
}

// Shuffle randomly reorders the pending entries.
func (s *Scheduler) Shuffle(ctx context.Context, id snowflake.ID) error {
	return s.run(ctx, id, func(sess *session) error {
		if !sess.queue.Shuffle() {
			return ErrNothingToShuffle
		}
		return nil
	})
}

// Clear removes all pending entries and returns how many were removed.
func (s *Scheduler) Clear(ctx context.Context, id snowflake.ID) (int, error) {
	var n int
	err := s.run(ctx, id, func(sess *session) error {
		n = sess.queue.Clear()
		return nil
	})
	return n, err
}

// SetLoopMode sets the loop mode.
func (s *Scheduler) SetLoopMode(ctx context.Context, id snowflake.ID, mode track.LoopMode) error {
	return s.run(ctx, id, func(sess *session) error {
		sess.loop = mode
		return nil
	})
}

// CycleLoopMode advances the loop mode off, single, queue, off and returns
// the mode now in effect.
func (s *Scheduler) CycleLoopMode(ctx context.Context, id snowflake.ID) (track.LoopMode, error) {
	var mode track.LoopMode
	err := s.run(ctx, id, func(sess *session) error {
		sess.loop = sess.loop.Next()
		mode = sess.loop
		return nil
	})
	return mode, err
}

// Previous replays the last played track.
func (s *Scheduler) Previous(ctx context.Context, id snowflake.ID) error {
	return s.run(ctx, id, func(sess *session) error {
		return sess.previous()
	})
}

// PeekQueue returns up to n pending entries without modifying the queue.
func (s *Scheduler) PeekQueue(ctx context.Context, id snowflake.ID, n int) ([]track.Request, error) {
	var entries []track.Request
	err := s.run(ctx, id, func(sess *session) error {
		entries = sess.queue.Peek(n)
		return nil
	})
	return entries, err
}

// Status returns a snapshot of the session.
func (s *Scheduler) Status(ctx context.Context, id snowflake.ID) (Status, error) {
	var st Status
	err := s.run(ctx, id, func(sess *session) error {
		st = sess.status()
		return nil
	})
	return st, err
}

// Leave tears the session down and removes it from the registry.
func (s *Scheduler) Leave(ctx context.Context, id snowflake.ID) error {
	sess, err := s.lookup(id, false)
	if err != nil {
		return err
	}
	// a resolution blocking the session goroutine must not delay leaving
	sess.stopWork()
	// once work is stopped the teardown has to run, so the caller's
	// cancellation no longer applies
	err = sess.do(context.WithoutCancel(ctx), func() error {
		sess.leave()
		return nil
	})
	s.remove(sess)
	return err
}

// Close leaves every session. The scheduler rejects new sessions afterwards.
func (s *Scheduler) Close(ctx context.Context) {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	ids := s.sessionIDs()
	if len(ids) > 0 {
		zlog.Info().Msgf("closing sessions: count=%d", len(ids))
	}
	for _, id := range ids {
		if err := s.Leave(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
			zlog.Warn().Msgf("failed to leave session on close: session=%s error=%v", id, err)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, id snowflake.ID, fn func(sess *session) error) error {
	sess, err := s.lookup(id, false)
	if err != nil {
		return err
	}
	return sess.do(ctx, func() error {
		return fn(sess)
	})
}
