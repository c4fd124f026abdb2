package playback

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EndBlue418/Spark-Discord-BOT/internal/domain/track"
)

const testSession = snowflake.ID(1234567890)

type harness struct {
	sched    *Scheduler
	resolver *fakeResolver
	sink     *fakeSink
	conn     *fakeConnector
}

func newHarness(t *testing.T, config Config, failing ...string) *harness {
	t.Helper()
	h := &harness{
		resolver: newFakeResolver(failing...),
		sink:     &fakeSink{},
	}
	h.conn = &fakeConnector{sink: h.sink}
	h.sched = NewScheduler(config, Deps{Resolver: h.resolver, Connector: h.conn})
	t.Cleanup(func() {
		h.sched.Close(context.Background())
	})
	return h
}

func reqs(names ...string) []track.Request {
	out := make([]track.Request, len(names))
	for i, n := range names {
		out[i] = track.NewRequest(n)
	}
	return out
}

func (h *harness) enqueue(t *testing.T, names ...string) EnqueueResult {
	t.Helper()
	res, err := h.sched.EnqueueMany(context.Background(), testSession, reqs(names...))
	require.NoError(t, err)
	return res
}

func (h *harness) status(t *testing.T) Status {
	t.Helper()
	st, err := h.sched.Status(context.Background(), testSession)
	require.NoError(t, err)
	return st
}

func (h *harness) currentQuery(t *testing.T) string {
	t.Helper()
	st := h.status(t)
	if st.Current == nil {
		return ""
	}
	return st.Current.Query
}

func (h *harness) queue(t *testing.T) []string {
	t.Helper()
	entries, err := h.sched.PeekQueue(context.Background(), testSession, 0)
	require.NoError(t, err)
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Query
	}
	return out
}

func TestScheduler_EnqueueStartsWhenIdle(t *testing.T) {
	h := newHarness(t, Config{})

	res := h.enqueue(t, "A")
	assert.True(t, res.Started)
	assert.Equal(t, 0, res.Position)

	res = h.enqueue(t, "B", "C")
	assert.False(t, res.Started)
	assert.Equal(t, 1, res.Position)
	assert.Equal(t, 2, res.Added)

	st := h.status(t)
	assert.Equal(t, StatePlaying, st.State)
	assert.Equal(t, "A", st.Current.Query)
	assert.Equal(t, "title:A", st.Title)
	assert.Equal(t, 2, st.QueueLength)
}

func TestScheduler_PeekQueueKeepsInsertionOrder(t *testing.T) {
	h := newHarness(t, Config{})
	h.enqueue(t, "A")
	for i := 0; i < 10; i++ {
		_, err := h.sched.Enqueue(context.Background(), testSession, track.NewRequest(fmt.Sprintf("q%d", i)))
		require.NoError(t, err)
	}

	expected := make([]string, 10)
	for i := range expected {
		expected[i] = fmt.Sprintf("q%d", i)
	}
	assert.Equal(t, expected, h.queue(t))

	entries, err := h.sched.PeekQueue(context.Background(), testSession, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Len(t, h.queue(t), 10)
}

func TestScheduler_SkipTo(t *testing.T) {
	h := newHarness(t, Config{})
	h.enqueue(t, "A", "B", "C", "D", "E")
	require.Equal(t, []string{"B", "C", "D", "E"}, h.queue(t))

	require.NoError(t, h.sched.SkipTo(context.Background(), testSession, 2))

	// L=4, n=2: L-n entries remain and the nth entry plays
	assert.Equal(t, "C", h.currentQuery(t))
	assert.Equal(t, []string{"D", "E"}, h.queue(t))
}

func TestScheduler_SkipToOutOfRange(t *testing.T) {
	h := newHarness(t, Config{})
	h.enqueue(t, "A", "B", "C")

	for _, n := range []int{0, -1, 3, 100} {
		err := h.sched.SkipTo(context.Background(), testSession, n)
		assert.True(t, errors.Is(err, ErrInvalidIndex), "n=%d", n)
	}
	assert.Equal(t, []string{"B", "C"}, h.queue(t))
	assert.Equal(t, "A", h.currentQuery(t))
}

func TestScheduler_Skip(t *testing.T) {
	h := newHarness(t, Config{})
	h.enqueue(t, "A", "B")

	require.NoError(t, h.sched.Skip(context.Background(), testSession))
	assert.Equal(t, "B", h.currentQuery(t))

	require.NoError(t, h.sched.Skip(context.Background(), testSession))
	st := h.status(t)
	assert.Equal(t, StateIdle, st.State)
	assert.Nil(t, st.Current)

	err := h.sched.Skip(context.Background(), testSession)
	assert.True(t, errors.Is(err, ErrNotPlaying))
}

func TestScheduler_StaleEndNotificationIsIgnored(t *testing.T) {
	h := newHarness(t, Config{})
	h.enqueue(t, "A", "B", "C")

	staleEnd := h.sink.currentOnEnd()
	require.NotNil(t, staleEnd)

	require.NoError(t, h.sched.Skip(context.Background(), testSession))
	// a natural end for A racing the skip must not advance again
	staleEnd()

	assert.Equal(t, "B", h.currentQuery(t))
	assert.Equal(t, []string{"C"}, h.queue(t))

	// give the asynchronous end fired by Stop a chance to arrive
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, "B", h.currentQuery(t))
	assert.Equal(t, []string{"C"}, h.queue(t))
}

func TestScheduler_NaturalEndAdvances(t *testing.T) {
	h := newHarness(t, Config{})
	h.enqueue(t, "A", "B")

	h.sink.Finish()
	assert.Equal(t, "B", h.currentQuery(t))

	h.sink.Finish()
	st := h.status(t)
	assert.Equal(t, StateIdle, st.State)
	assert.Equal(t, []string{"title:A", "title:B"}, h.sink.history())
}

func TestScheduler_LoopSingleReplays(t *testing.T) {
	h := newHarness(t, Config{})
	h.enqueue(t, "A", "B")
	require.NoError(t, h.sched.SetLoopMode(context.Background(), testSession, track.LoopSingle))

	const n = 4
	for i := 0; i < n; i++ {
		h.sink.Finish()
		assert.Equal(t, "A", h.currentQuery(t))
	}
	assert.Equal(t, []string{"B"}, h.queue(t))
	// stream handles are re-resolved for each replay
	assert.Equal(t, n+1, h.resolver.callCount("A"))

	// skipping leaves the loop
	require.NoError(t, h.sched.Skip(context.Background(), testSession))
	assert.Equal(t, "B", h.currentQuery(t))
}

func TestScheduler_LoopSingleSkipToMovesOn(t *testing.T) {
	h := newHarness(t, Config{})
	h.enqueue(t, "A", "B", "C", "D")
	require.NoError(t, h.sched.SetLoopMode(context.Background(), testSession, track.LoopSingle))

	require.NoError(t, h.sched.SkipTo(context.Background(), testSession, 2))
	assert.Equal(t, "C", h.currentQuery(t))
	assert.Equal(t, []string{"D"}, h.queue(t))
	assert.Equal(t, 1, h.resolver.callCount("A"))

	// the loop still applies to the new track
	h.sink.Finish()
	assert.Equal(t, "C", h.currentQuery(t))
	assert.Equal(t, track.LoopSingle, h.status(t).Loop)
}

func TestScheduler_LoopQueueCycles(t *testing.T) {
	h := newHarness(t, Config{})
	h.enqueue(t, "A", "B")
	require.NoError(t, h.sched.SetLoopMode(context.Background(), testSession, track.LoopQueue))

	h.sink.Finish()
	assert.Equal(t, "B", h.currentQuery(t))
	assert.Equal(t, []string{"A"}, h.queue(t))

	h.sink.Finish()
	h.sink.Finish()
	h.sink.Finish()

	assert.Equal(t, []string{"title:A", "title:B", "title:A", "title:B", "title:A"}, h.sink.history())
}

func TestScheduler_Shuffle(t *testing.T) {
	h := newHarness(t, Config{})
	h.enqueue(t, "A", "B")

	err := h.sched.Shuffle(context.Background(), testSession)
	assert.True(t, errors.Is(err, ErrNothingToShuffle))

	h.enqueue(t, "C", "D", "E")
	require.NoError(t, h.sched.Shuffle(context.Background(), testSession))
	assert.ElementsMatch(t, []string{"B", "C", "D", "E"}, h.queue(t))
}

func TestScheduler_Clear(t *testing.T) {
	h := newHarness(t, Config{})
	h.enqueue(t, "A", "B", "C")

	n, err := h.sched.Clear(context.Background(), testSession)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, h.queue(t))
	assert.Equal(t, "A", h.currentQuery(t))
}

func TestScheduler_Previous(t *testing.T) {
	h := newHarness(t, Config{})
	h.enqueue(t, "A", "B", "C")

	err := h.sched.Previous(context.Background(), testSession)
	assert.True(t, errors.Is(err, ErrNoHistory))

	h.sink.Finish()
	require.Equal(t, "B", h.currentQuery(t))

	require.NoError(t, h.sched.Previous(context.Background(), testSession))
	assert.Equal(t, "A", h.currentQuery(t))
	assert.Equal(t, []string{"B", "C"}, h.queue(t))
}

func TestScheduler_PreviousBypassesLoopQueue(t *testing.T) {
	h := newHarness(t, Config{})
	h.enqueue(t, "A", "B")
	require.NoError(t, h.sched.SetLoopMode(context.Background(), testSession, track.LoopQueue))

	h.sink.Finish()
	require.Equal(t, "B", h.currentQuery(t))
	require.Equal(t, []string{"A"}, h.queue(t))

	require.NoError(t, h.sched.Previous(context.Background(), testSession))
	assert.Equal(t, "A", h.currentQuery(t))
	assert.Equal(t, []string{"B", "A"}, h.queue(t))
}

func TestScheduler_PreviousWhenIdle(t *testing.T) {
	h := newHarness(t, Config{})
	h.enqueue(t, "A")
	h.sink.Finish()
	require.Equal(t, StateIdle, h.status(t).State)

	require.NoError(t, h.sched.Previous(context.Background(), testSession))
	assert.Equal(t, "A", h.currentQuery(t))
}

func TestScheduler_ResolutionFailureSkipsEntry(t *testing.T) {
	h := newHarness(t, Config{}, "bad1", "bad2")
	h.enqueue(t, "A", "bad1", "bad2", "good")

	h.sink.Finish()
	assert.Equal(t, "good", h.currentQuery(t))
	assert.Empty(t, h.queue(t))
}

func TestScheduler_QueueExhaustedByFailures(t *testing.T) {
	h := newHarness(t, Config{MaxResolveAttempts: 2}, "bad1", "bad2", "bad3")

	_, err := h.sched.EnqueueMany(context.Background(), testSession, reqs("bad1", "bad2", "bad3"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQueueExhausted))
	assert.True(t, errors.Is(err, ErrResolutionFailed))
	assert.Equal(t, "queue_exhausted", ErrorCode(err))

	st := h.status(t)
	assert.Equal(t, StateIdle, st.State)
	assert.Equal(t, []string{"bad3"}, h.queue(t), "entries past the retry cap stay queued")

	var exhausted bool
	for len(h.sched.Events()) > 0 {
		if e := <-h.sched.Events(); e.Type == EventQueueExhausted {
			exhausted = true
			assert.True(t, errors.Is(e.Err, ErrQueueExhausted))
		}
	}
	assert.True(t, exhausted)
}

func TestScheduler_SinkUnavailable(t *testing.T) {
	h := newHarness(t, Config{})
	h.conn.err = errors.New("not in a voice channel")

	res, err := h.sched.Enqueue(context.Background(), testSession, track.NewRequest("A"))
	assert.True(t, errors.Is(err, ErrSinkUnavailable))
	assert.False(t, res.Started)
	assert.Equal(t, StateIdle, h.status(t).State)
	assert.Equal(t, []string{"A"}, h.queue(t), "entry is kept for the next attempt")
}

func TestScheduler_Toggle(t *testing.T) {
	h := newHarness(t, Config{})
	h.enqueue(t, "A")
	h.sink.Finish()

	_, err := h.sched.Toggle(context.Background(), testSession)
	assert.True(t, errors.Is(err, ErrNotPlaying))

	h.enqueue(t, "B")
	state, err := h.sched.Toggle(context.Background(), testSession)
	require.NoError(t, err)
	assert.Equal(t, StatePaused, state)
	assert.True(t, h.sink.IsPaused())

	state, err = h.sched.Toggle(context.Background(), testSession)
	require.NoError(t, err)
	assert.Equal(t, StatePlaying, state)
	assert.True(t, h.sink.IsPlaying())
}

func TestScheduler_Leave(t *testing.T) {
	h := newHarness(t, Config{})
	h.enqueue(t, "A", "B")

	require.NoError(t, h.sched.Leave(context.Background(), testSession))
	assert.False(t, h.sink.IsConnected())
	assert.False(t, h.sink.IsPlaying())

	_, err := h.sched.Status(context.Background(), testSession)
	assert.True(t, errors.Is(err, ErrSessionNotFound))

	err = h.sched.Leave(context.Background(), testSession)
	assert.True(t, errors.Is(err, ErrSessionNotFound))

	// a new enqueue starts a fresh session
	res := h.enqueue(t, "C")
	assert.True(t, res.Started)
	assert.Empty(t, h.queue(t))
}

func TestScheduler_LeaveWithCanceledContext(t *testing.T) {
	h := newHarness(t, Config{})
	h.enqueue(t, "A", "B")
	require.True(t, h.sink.IsPlaying())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.sched.Leave(ctx, testSession))
	assert.False(t, h.sink.IsPlaying())
	assert.False(t, h.sink.IsConnected())
	assert.Empty(t, h.sched.sessionIDs())

	// a new session with the same id is not disturbed by the old one
	res := h.enqueue(t, "C")
	assert.True(t, res.Started)
	assert.Equal(t, "C", h.currentQuery(t))
}

func TestScheduler_CycleLoopMode(t *testing.T) {
	h := newHarness(t, Config{})
	h.enqueue(t, "A")

	want := []track.LoopMode{track.LoopSingle, track.LoopQueue, track.LoopOff}
	for _, w := range want {
		mode, err := h.sched.CycleLoopMode(context.Background(), testSession)
		require.NoError(t, err)
		assert.Equal(t, w, mode)
	}
	assert.Equal(t, track.LoopOff, h.status(t).Loop)
}

func TestScheduler_CycleLoopModeConcurrent(t *testing.T) {
	h := newHarness(t, Config{})
	h.enqueue(t, "A")

	var wg sync.WaitGroup
	modes := make([]track.LoopMode, 2)
	for i := range modes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mode, err := h.sched.CycleLoopMode(context.Background(), testSession)
			assert.NoError(t, err)
			modes[i] = mode
		}(i)
	}
	wg.Wait()

	assert.ElementsMatch(t, []track.LoopMode{track.LoopSingle, track.LoopQueue}, modes)
	assert.Equal(t, track.LoopQueue, h.status(t).Loop)
}

func TestScheduler_CycleLoopModeUnknownSession(t *testing.T) {
	h := newHarness(t, Config{})
	_, err := h.sched.CycleLoopMode(context.Background(), snowflake.ID(42))
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestScheduler_UnknownSession(t *testing.T) {
	h := newHarness(t, Config{})
	err := h.sched.Skip(context.Background(), snowflake.ID(42))
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestScheduler_SessionsAreIndependent(t *testing.T) {
	h := newHarness(t, Config{})
	other := snowflake.ID(99)

	h.enqueue(t, "A", "B")
	_, err := h.sched.EnqueueMany(context.Background(), other, reqs("X", "Y", "Z"))
	require.NoError(t, err)

	_, err = h.sched.Clear(context.Background(), other)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, h.queue(t))
	assert.Len(t, h.sched.sessionIDs(), 2)
}

func TestScheduler_OneRendererPerSession(t *testing.T) {
	resolver := newFakeResolver()
	sink := &fakeSink{}
	runner := &blockingRunner{}
	lyr := &stubLyrics{}
	logs := &memoryLog{}

	sched := NewScheduler(Config{}, Deps{
		Resolver:  resolver,
		Connector: &fakeConnector{sink: sink},
		Lyrics:    lyr,
		Renderer:  runner,
		Targets:   nopOpener{},
		Log:       logs,
	})
	defer sched.Close(context.Background())

	_, err := sched.EnqueueMany(context.Background(), testSession, []track.Request{
		{Query: "a", DisplayTitle: "Artist - A"},
		track.NewRequest("b"),
		track.NewRequest("c"),
	})
	require.NoError(t, err)

	require.NoError(t, sched.Skip(context.Background(), testSession))
	sink.Finish()
	_, err = sched.Status(context.Background(), testSession)
	require.NoError(t, err)

	assert.Equal(t, int32(3), atomic.LoadInt32(&runner.runs))
	assert.Equal(t, int32(1), atomic.LoadInt32(&runner.peak))

	require.NoError(t, sched.Leave(context.Background(), testSession))
	assert.Equal(t, int32(0), atomic.LoadInt32(&runner.active))

	// the display title is the primary lyric query, the resolved title the fallback
	assert.Eventually(t, func() bool {
		lyr.mu.Lock()
		defer lyr.mu.Unlock()
		for _, q := range lyr.queries {
			if q == [2]string{"Artist - A", "title:a"} {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestScheduler_ConcurrentOperations(t *testing.T) {
	h := newHarness(t, Config{})
	h.enqueue(t, "seed")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				ctx := context.Background()
				switch j % 4 {
				case 0:
					_, _ = h.sched.Enqueue(ctx, testSession, track.NewRequest(fmt.Sprintf("%d-%d", i, j)))
				case 1:
					_ = h.sched.Skip(ctx, testSession)
				case 2:
					h.sink.Finish()
				case 3:
					_, _ = h.sched.Toggle(ctx, testSession)
				}
			}
		}(i)
	}
	wg.Wait()

	st := h.status(t)
	if st.State.Active() {
		require.NotNil(t, st.Current)
	} else {
		assert.Nil(t, st.Current)
	}
	// every start consumed exactly one queue entry
	started := len(h.sink.history())
	assert.Equal(t, 1+8*5, started+st.QueueLength)
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{err: nil, expected: "success"},
		{err: ErrEmptyQueue, expected: "empty_queue"},
		{err: errors.Wrap(ErrNoHistory, "ctx"), expected: "no_history"},
		{err: ErrInvalidIndex, expected: "invalid_index"},
		{err: errors.Mark(errors.New("x"), ErrSinkUnavailable), expected: "sink_unavailable"},
		{err: ErrNotPlaying, expected: "not_playing"},
		{err: ErrSessionNotFound, expected: "session_not_found"},
		{err: errors.New("boom"), expected: "default_error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ErrorCode(tt.err))
	}
}
