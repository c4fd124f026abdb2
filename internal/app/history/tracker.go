// Package history records the current and last played entries of a session.
package history

import "github.com/EndBlue418/Spark-Discord-BOT/internal/domain/track"

// Tracker holds the current and last played entry.
// It is not safe for concurrent use.
type Tracker struct {
	current    *track.Request
	lastPlayed *track.Request
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Transition records entry as current.
// A different previous current becomes the last played entry.
func (t *Tracker) Transition(entry track.Request) {
	if t.current != nil && *t.current != entry {
		prev := *t.current
		t.lastPlayed = &prev
	}
	t.current = &entry
}

// Stop clears current, remembering it as last played.
func (t *Tracker) Stop() {
	if t.current != nil {
		prev := *t.current
		t.lastPlayed = &prev
	}
	t.current = nil
}

// Current returns the current entry.
func (t *Tracker) Current() (track.Request, bool) {
	if t.current == nil {
		return track.Request{}, false
	}
	return *t.current, true
}

// LastPlayed returns the last played entry.
func (t *Tracker) LastPlayed() (track.Request, bool) {
	if t.lastPlayed == nil {
		return track.Request{}, false
	}
	return *t.lastPlayed, true
}

// Reset forgets everything.
func (t *Tracker) Reset() {
	t.current = nil
	t.lastPlayed = nil
}
