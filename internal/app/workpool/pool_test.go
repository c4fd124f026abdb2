package workpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultSize(t *testing.T) {
	assert.Equal(t, DefaultSize, New(0).Size())
	assert.Equal(t, 2, New(2).Size())
}

func TestRun_ReturnsValue(t *testing.T) {
	p := New(1)
	v, err := Run(context.Background(), p, func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestRun_TimeoutDoesNotWaitForJob(t *testing.T) {
	p := New(1)
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Run(ctx, p, func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), time.Second)
}

func TestRun_RecoversPanic(t *testing.T) {
	p := New(1)
	_, err := Run(context.Background(), p, func(ctx context.Context) (int, error) {
		panic("boom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	// slot must be released after the panic
	v, err := Run(context.Background(), p, func(ctx context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestMap_BoundsConcurrencyAndKeepsOrder(t *testing.T) {
	p := New(2)
	var running, peak int32

	out, err := Map(context.Background(), p, []int{1, 2, 3, 4, 5, 6}, func(ctx context.Context, n int) (int, error) {
		cur := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return n * 10, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{10, 20, 30, 40, 50, 60}, out)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestMap_PropagatesError(t *testing.T) {
	p := New(2)
	sentinel := errors.New("bad item")
	_, err := Map(context.Background(), p, []int{1, 2, 3}, func(ctx context.Context, n int) (int, error) {
		if n == 2 {
			return 0, sentinel
		}
		return n, nil
	})
	assert.True(t, errors.Is(err, sentinel))
}
