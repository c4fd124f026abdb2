package queue

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EndBlue418/Spark-Discord-BOT/internal/domain/track"
)

func requests(names ...string) []track.Request {
	out := make([]track.Request, len(names))
	for i, n := range names {
		out[i] = track.NewRequest(n)
	}
	return out
}

func queries(entries []track.Request) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Query
	}
	return out
}

func TestStore_PeekPreservesInsertionOrder(t *testing.T) {
	s := NewStore()
	for i := 0; i < 20; i++ {
		s.Enqueue(track.NewRequest(fmt.Sprintf("song-%02d", i)))
	}

	peeked := s.Peek(0)
	require.Len(t, peeked, 20)
	for i, e := range peeked {
		assert.Equal(t, fmt.Sprintf("song-%02d", i), e.Query)
	}
	assert.Equal(t, 20, s.Len(), "peek must not mutate")
}

func TestStore_PeekLimit(t *testing.T) {
	s := NewStore()
	s.EnqueueMany(requests("a", "b", "c"))

	assert.Equal(t, []string{"a", "b"}, queries(s.Peek(2)))
	assert.Equal(t, []string{"a", "b", "c"}, queries(s.Peek(10)))

	peeked := s.Peek(1)
	peeked[0].Query = "mutated"
	assert.Equal(t, "a", s.Peek(1)[0].Query)
}

func TestStore_DequeueFront(t *testing.T) {
	s := NewStore()
	_, err := s.DequeueFront()
	assert.True(t, errors.Is(err, ErrEmptyQueue))

	s.EnqueueMany(requests("a", "b"))
	e, err := s.DequeueFront()
	require.NoError(t, err)
	assert.Equal(t, "a", e.Query)
	assert.Equal(t, 1, s.Len())
}

func TestStore_RemoveFront(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		removed   int
		remaining []string
	}{
		{name: "zero", n: 0, removed: 0, remaining: []string{"a", "b", "c"}},
		{name: "two", n: 2, removed: 2, remaining: []string{"c"}},
		{name: "more than length", n: 9, removed: 3, remaining: []string{}},
		{name: "negative", n: -1, removed: 0, remaining: []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			s.EnqueueMany(requests("a", "b", "c"))
			assert.Equal(t, tt.removed, s.RemoveFront(tt.n))
			assert.Equal(t, tt.remaining, queries(s.Peek(0)))
		})
	}
}

func TestStore_PushFront(t *testing.T) {
	s := NewStore()
	s.EnqueueMany(requests("c", "d"))
	s.PushFront(requests("a", "b")...)
	assert.Equal(t, []string{"a", "b", "c", "d"}, queries(s.Peek(0)))
}

func TestStore_ShuffleSmallQueueIsNoop(t *testing.T) {
	s := NewStore()
	assert.False(t, s.Shuffle())

	s.Enqueue(track.NewRequest("only"))
	assert.False(t, s.Shuffle())
	assert.Equal(t, []string{"only"}, queries(s.Peek(0)))
}

func TestStore_ShuffleIsPermutation(t *testing.T) {
	s := NewStore()
	names := []string{"a", "b", "c", "d", "e", "a"}
	s.EnqueueMany(requests(names...))

	require.True(t, s.Shuffle())
	assert.ElementsMatch(t, names, queries(s.Peek(0)))
}

func TestStore_ShuffleUsesSwapper(t *testing.T) {
	s := NewStore()
	s.shuffle = func(n int, swap func(i, j int)) {
		for i := 0; i < n/2; i++ {
			swap(i, n-1-i)
		}
	}
	s.EnqueueMany(requests("a", "b", "c"))

	require.True(t, s.Shuffle())
	assert.Equal(t, []string{"c", "b", "a"}, queries(s.Peek(0)))
}

func TestStore_Clear(t *testing.T) {
	s := NewStore()
	s.EnqueueMany(requests("a", "b", "c"))
	assert.Equal(t, 3, s.Clear())
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Clear())
}
