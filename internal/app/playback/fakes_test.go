package playback

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"

	"github.com/EndBlue418/Spark-Discord-BOT/internal/app/render"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/domain/lyrics"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/domain/track"
)

type fakeResolver struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls []string
}

func newFakeResolver(failing ...string) *fakeResolver {
	r := &fakeResolver{fail: make(map[string]bool)}
	for _, q := range failing {
		r.fail[q] = true
	}
	return r
}

func (r *fakeResolver) Resolve(ctx context.Context, query string) (*track.Resolved, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, query)
	if r.fail[query] {
		return nil, errors.Newf("no stream for %s", query)
	}
	return &track.Resolved{
		Handle:   track.StreamHandle{URL: "https://media.example/" + query},
		Title:    "title:" + query,
		Duration: 3 * time.Minute,
	}, nil
}

func (r *fakeResolver) callCount(query string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == query {
			n++
		}
	}
	return n
}

type fakeSink struct {
	mu        sync.Mutex
	playing   bool
	paused    bool
	connected bool
	onEnd     func()
	played    []string
	stops     int
}

func (s *fakeSink) Play(t *track.Resolved, onEnd func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing, s.paused = true, false
	s.onEnd = onEnd
	s.played = append(s.played, t.Title)
	return nil
}

func (s *fakeSink) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing, s.paused = false, true
	return nil
}

func (s *fakeSink) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing, s.paused = true, false
	return nil
}

// Stop fires the end callback asynchronously, like a real audio pipeline.
func (s *fakeSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing, s.paused = false, false
	s.stops++
	if end := s.onEnd; end != nil {
		s.onEnd = nil
		go end()
	}
	return nil
}

func (s *fakeSink) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *fakeSink) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *fakeSink) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *fakeSink) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

// Finish simulates the natural end of the current track. The end
// notification is queued before Finish returns.
func (s *fakeSink) Finish() {
	s.mu.Lock()
	end := s.onEnd
	s.onEnd = nil
	s.playing, s.paused = false, false
	s.mu.Unlock()
	if end != nil {
		end()
	}
}

// currentOnEnd returns the callback of the current playback.
func (s *fakeSink) currentOnEnd() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onEnd
}

func (s *fakeSink) history() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.played...)
}

type fakeConnector struct {
	mu    sync.Mutex
	sink  *fakeSink
	err   error
	calls int
}

func (c *fakeConnector) Connect(ctx context.Context, id snowflake.ID) (Sink, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	c.sink.mu.Lock()
	c.sink.connected = true
	c.sink.mu.Unlock()
	return c.sink, nil
}

// blockingRunner runs until its job is cancelled and tracks concurrency.
type blockingRunner struct {
	active int32
	peak   int32
	runs   int32
}

func (r *blockingRunner) Run(ctx context.Context, job render.Job) {
	atomic.AddInt32(&r.runs, 1)
	cur := atomic.AddInt32(&r.active, 1)
	for {
		old := atomic.LoadInt32(&r.peak)
		if cur <= old || atomic.CompareAndSwapInt32(&r.peak, old, cur) {
			break
		}
	}
	<-ctx.Done()
	atomic.AddInt32(&r.active, -1)
}

type nopTarget struct{}

func (nopTarget) Emit(context.Context, render.Caption) error { return nil }

type nopOpener struct{}

func (nopOpener) Open(context.Context, snowflake.ID, string) (render.Target, error) {
	return nopTarget{}, nil
}

type stubLyrics struct {
	mu      sync.Mutex
	queries [][2]string
}

func (l *stubLyrics) Resolve(ctx context.Context, primary, fallback string) lyrics.Result {
	l.mu.Lock()
	l.queries = append(l.queries, [2]string{primary, fallback})
	l.mu.Unlock()
	return lyrics.Result{Log: []string{"stub"}, Err: ErrLyricsUnavailable}
}

type memoryLog struct {
	mu    sync.Mutex
	lines []string
}

func (m *memoryLog) Record(id snowflake.ID, event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, event)
}
