// Package playback provides the per-session playback scheduler.
package playback

// State represents the playback state of a session.
type State int

const (
	StateIdle    State = iota // Nothing playing
	StatePlaying              // Track is playing
	StatePaused               // Track is paused
	StateStopped              // Session left
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Active reports whether a track is loaded (playing or paused).
func (s State) Active() bool {
	return s == StatePlaying || s == StatePaused
}

// endReason tells the dispatcher why a playback ended.
type endReason int

const (
	endNatural  endReason = iota // Sink reported the end of the track
	endSkip                      // User skipped
	endSkipTo                    // User skipped to a queue position
	endPrevious                  // User went back in history
)

func (r endReason) String() string {
	switch r {
	case endNatural:
		return "natural"
	case endSkip:
		return "skip"
	case endSkipTo:
		return "skip_to"
	case endPrevious:
		return "previous"
	default:
		return "unknown"
	}
}
