package lyrics

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EndBlue418/Spark-Discord-BOT/internal/app/workpool"
	domain "github.com/EndBlue418/Spark-Discord-BOT/internal/domain/lyrics"
)

type fakeProvider struct {
	name    string
	results map[string]*domain.Candidate
	bodies  map[string]*domain.Body
	delay   time.Duration
	err     error

	mu       sync.Mutex
	searched []string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(ctx context.Context, query string) (*domain.Candidate, error) {
	f.mu.Lock()
	f.searched = append(f.searched, query)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

func (f *fakeProvider) FetchBody(ctx context.Context, ref string) (*domain.Body, error) {
	body, ok := f.bodies[ref]
	if !ok {
		return nil, errors.Newf("no body for %s", ref)
	}
	return body, nil
}

func (f *fakeProvider) queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searched...)
}

func newTestResolver(providers ...Provider) *Resolver {
	return NewResolver(providers, workpool.New(2), nil, Config{
		ProviderTimeout: 50 * time.Millisecond,
		ResolveTimeout:  time.Second,
	})
}

func TestResolver_FirstAcceptedProviderWins(t *testing.T) {
	first := &fakeProvider{
		name:    "first",
		results: map[string]*domain.Candidate{"Lemon": {Title: "Lemon", Ref: "1"}},
		bodies:  map[string]*domain.Body{"1": {Original: "[00:01.00]yume narab"}},
	}
	second := &fakeProvider{name: "second"}

	res := newTestResolver(first, second).Resolve(context.Background(), "Lemon (Official Video)", "")
	require.NoError(t, res.Err)
	require.True(t, res.Found())
	assert.Equal(t, "first", res.Provider)
	assert.Empty(t, second.queries(), "second provider must not be queried")
	assert.NotEmpty(t, res.Log)
}

func TestResolver_RejectsDissimilarCandidate(t *testing.T) {
	liar := &fakeProvider{
		name:    "liar",
		results: map[string]*domain.Candidate{"Up": {Title: "Up (Live)", Ref: "x"}},
		bodies:  map[string]*domain.Body{"x": {Original: "[00:01.00]wrong"}},
	}
	honest := &fakeProvider{
		name:    "honest",
		results: map[string]*domain.Candidate{"Up": {Title: "UP", Ref: "y"}},
		bodies:  map[string]*domain.Body{"y": {Original: "[00:01.00]right"}},
	}

	res := newTestResolver(liar, honest).Resolve(context.Background(), "Up", "")
	require.True(t, res.Found())
	assert.Equal(t, "honest", res.Provider)
	assert.Equal(t, "right", res.Track.Lines()[0].Original)

	joined := strings.Join(res.Log, "\n")
	assert.Contains(t, joined, "provider=liar")
	assert.Contains(t, joined, "reject")
	assert.Contains(t, joined, "accept")
}

func TestResolver_TimeoutCountsAsRejection(t *testing.T) {
	slow := &fakeProvider{name: "slow", delay: time.Second}
	fast := &fakeProvider{
		name:    "fast",
		results: map[string]*domain.Candidate{"Idol": {Title: "Idol", Artist: "", Ref: "1"}},
		bodies:  map[string]*domain.Body{"1": {Original: "[00:00.50]line"}},
	}

	start := time.Now()
	res := newTestResolver(slow, fast).Resolve(context.Background(), "Idol", "")
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	require.True(t, res.Found())
	assert.Equal(t, "fast", res.Provider)
	assert.Contains(t, strings.Join(res.Log, "\n"), "provider=slow search failed")
}

func TestResolver_FallbackRound(t *testing.T) {
	p := &fakeProvider{
		name: "p",
		results: map[string]*domain.Candidate{
			"Yoru ni Kakeru": {Title: "夜に駆ける", Artist: "YOASOBI", Ref: "1"},
		},
		bodies: map[string]*domain.Body{"1": {Original: "[00:01.00]沈むように"}},
	}

	res := newTestResolver(p).Resolve(context.Background(), "Unknown Track", "Yoru ni Kakeru [MV]")
	// the fallback candidate title differs too much from the query to pass
	assert.False(t, res.Found())
	assert.Equal(t, []string{"Unknown Track", "Yoru ni Kakeru"}, p.queries())

	p.results["Yoru ni Kakeru"] = &domain.Candidate{Title: "Yoru ni Kakeru", Ref: "1"}
	res = newTestResolver(p).Resolve(context.Background(), "Unknown Track", "Yoru ni Kakeru [MV]")
	require.True(t, res.Found())
}

func TestResolver_SkipsDuplicateFallback(t *testing.T) {
	p := &fakeProvider{name: "p"}
	res := newTestResolver(p).Resolve(context.Background(), "Lemon", "Lemon (MV)")

	assert.False(t, res.Found())
	assert.True(t, errors.Is(res.Err, ErrLyricsUnavailable))
	assert.Equal(t, []string{"Lemon"}, p.queries())
}

func TestResolver_AcceptedButEmptyBodyTriesNext(t *testing.T) {
	empty := &fakeProvider{
		name:    "empty",
		results: map[string]*domain.Candidate{"Lemon": {Title: "Lemon", Ref: "1"}},
		bodies:  map[string]*domain.Body{"1": {Original: "no timestamps here"}},
	}
	good := &fakeProvider{
		name:    "good",
		results: map[string]*domain.Candidate{"Lemon": {Title: "Lemon", Ref: "2"}},
		bodies:  map[string]*domain.Body{"2": {Original: "[00:02.00]ok"}},
	}

	res := newTestResolver(empty, good).Resolve(context.Background(), "Lemon", "")
	require.True(t, res.Found())
	assert.Equal(t, "good", res.Provider)
}

func TestResolver_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newTestResolver(&fakeProvider{name: "p"}).Resolve(ctx, "Lemon", "")
	assert.False(t, res.Found())
	assert.True(t, errors.Is(res.Err, ErrLyricsUnavailable))
}

func TestCallProvider_MarksTimeout(t *testing.T) {
	r := newTestResolver()
	_, err := callProvider(context.Background(), r, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.True(t, errors.Is(err, ErrProviderTimeout))
}

func TestRoundQueries(t *testing.T) {
	assert.Equal(t, []string{"A"}, roundQueries("A", ""))
	assert.Equal(t, []string{"A", "B"}, roundQueries("A (MV)", "B"))
	assert.Equal(t, []string{"MV"}, roundQueries("MV", "mv"))
	assert.Empty(t, roundQueries("", " "))
}
