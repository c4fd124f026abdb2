package playback

import (
	"github.com/disgoorg/snowflake/v2"

	"github.com/EndBlue418/Spark-Discord-BOT/internal/domain/track"
)

// EventType represents a playback event type.
type EventType int

const (
	EventTrackStarted   EventType = iota // Track started playing
	EventStateChanged                    // Playback state changed (pause/resume/idle)
	EventQueueEmpty                      // Queue ran out
	EventQueueExhausted                  // Queue drained by resolution failures
	EventLyricsResolved                  // Lyric resolution finished (Err set on failure)
	EventSessionClosed                   // Session left
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackStarted:
		return "track_started"
	case EventStateChanged:
		return "state_changed"
	case EventQueueEmpty:
		return "queue_empty"
	case EventQueueExhausted:
		return "queue_exhausted"
	case EventLyricsResolved:
		return "lyrics_resolved"
	case EventSessionClosed:
		return "session_closed"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type      EventType
	SessionID snowflake.ID
	Entry     *track.Request  // Current entry (nil for some events)
	Track     *track.Resolved // Resolved current track (nil for some events)
	State     State           // State after the event
	Err       error           // Failure detail (optional)
}
