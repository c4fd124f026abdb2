// Package queue provides the per-session queue of pending track requests.
package queue

import (
	"math/rand/v2"

	"github.com/cockroachdb/errors"

	"github.com/EndBlue418/Spark-Discord-BOT/internal/domain/track"
)

// ErrEmptyQueue is returned when dequeuing from an empty queue.
var ErrEmptyQueue = errors.New("queue is empty")

// Store is an ordered list of pending requests for one session.
// It is not safe for concurrent use; the owning session serializes access.
type Store struct {
	entries []track.Request
	shuffle func(n int, swap func(i, j int))
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		entries: make([]track.Request, 0),
		shuffle: rand.Shuffle,
	}
}

// Enqueue appends an entry to the tail.
func (s *Store) Enqueue(entry track.Request) {
	s.entries = append(s.entries, entry)
}

// EnqueueMany appends entries to the tail in order.
func (s *Store) EnqueueMany(entries []track.Request) {
	s.entries = append(s.entries, entries...)
}

// PushFront inserts entries at the head, keeping their relative order.
func (s *Store) PushFront(entries ...track.Request) {
	if len(entries) == 0 {
		return
	}
	merged := make([]track.Request, 0, len(entries)+len(s.entries))
	merged = append(merged, entries...)
	merged = append(merged, s.entries...)
	s.entries = merged
}

// DequeueFront removes and returns the head entry.
func (s *Store) DequeueFront() (track.Request, error) {
	if len(s.entries) == 0 {
		return track.Request{}, ErrEmptyQueue
	}
	entry := s.entries[0]
	s.entries[0] = track.Request{}
	s.entries = s.entries[1:]
	return entry, nil
}

// RemoveFront discards up to n entries from the head and returns how many were removed.
func (s *Store) RemoveFront(n int) int {
	if n <= 0 {
		return 0
	}
	if n > len(s.entries) {
		n = len(s.entries)
	}
	s.entries = append(make([]track.Request, 0, len(s.entries)-n), s.entries[n:]...)
	return n
}

// Shuffle randomly permutes the remaining entries.
// It returns false without changes when there are fewer than two entries.
func (s *Store) Shuffle() bool {
	if len(s.entries) < 2 {
		return false
	}
	s.shuffle(len(s.entries), func(i, j int) {
		s.entries[i], s.entries[j] = s.entries[j], s.entries[i]
	})
	return true
}

// Clear removes all entries and returns the number removed.
func (s *Store) Clear() int {
	n := len(s.entries)
	s.entries = make([]track.Request, 0)
	return n
}

// Peek returns a copy of up to n entries from the head.
// A non-positive n returns every entry.
func (s *Store) Peek(n int) []track.Request {
	if n <= 0 || n > len(s.entries) {
		n = len(s.entries)
	}
	out := make([]track.Request, n)
	copy(out, s.entries[:n])
	return out
}

// Len returns the number of pending entries.
func (s *Store) Len() int {
	return len(s.entries)
}
