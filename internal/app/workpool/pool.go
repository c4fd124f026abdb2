// Package workpool provides a process-wide bounded pool for blocking work
// such as lyric provider calls and transliteration.
package workpool

import (
	"context"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultSize is the pool size used when a non-positive size is given.
const DefaultSize = 4

// Pool bounds the number of concurrently running jobs.
// It holds no per-session state and is safe for concurrent use.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// New creates a pool with the given number of slots.
func New(size int) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	return &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: size,
	}
}

// Size returns the number of slots.
func (p *Pool) Size() int {
	return p.size
}

// Run executes fn on a pool slot and waits for its result.
// If ctx ends first, Run returns ctx.Err() immediately; the slot is released
// once fn returns.
func Run[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, errors.Wrap(err, "failed to acquire worker")
	}

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: errors.Newf("worker panic: %v", r)}
			}
		}()
		v, err := fn(ctx)
		done <- result{val: v, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Map applies fn to every item on the pool and returns results in input order.
// The first error cancels the remaining jobs.
func Map[In, Out any](ctx context.Context, p *Pool, items []In, fn func(ctx context.Context, item In) (Out, error)) ([]Out, error) {
	out := make([]Out, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		g.Go(func() error {
			v, err := Run(gctx, p, func(ctx context.Context) (Out, error) {
				return fn(ctx, item)
			})
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
