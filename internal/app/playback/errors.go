package playback

import (
	"github.com/cockroachdb/errors"

	"github.com/EndBlue418/Spark-Discord-BOT/internal/app/lyrics"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/app/queue"
)

// Errors
var (
	ErrEmptyQueue        = queue.ErrEmptyQueue
	ErrNoHistory         = errors.New("no previous track remembered")
	ErrInvalidIndex      = errors.New("queue position out of range")
	ErrResolutionFailed  = errors.New("track could not be resolved")
	ErrLyricsUnavailable = lyrics.ErrLyricsUnavailable
	ErrSinkUnavailable   = errors.New("voice output unavailable")
	ErrProviderTimeout   = lyrics.ErrProviderTimeout
	ErrNotPlaying        = errors.New("nothing is playing")
	ErrNothingToShuffle  = errors.New("nothing to shuffle")
	ErrQueueExhausted    = errors.New("queue exhausted by resolution failures")
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionClosed     = errors.New("session closed")
)

// ErrorCode maps an error to a short code used to look up user-facing messages.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrEmptyQueue):
		return "empty_queue"
	case errors.Is(err, ErrNoHistory):
		return "no_history"
	case errors.Is(err, ErrInvalidIndex):
		return "invalid_index"
	case errors.Is(err, ErrQueueExhausted):
		return "queue_exhausted"
	case errors.Is(err, ErrResolutionFailed):
		return "resolution_failed"
	case errors.Is(err, ErrLyricsUnavailable):
		return "lyrics_unavailable"
	case errors.Is(err, ErrSinkUnavailable):
		return "sink_unavailable"
	case errors.Is(err, ErrProviderTimeout):
		return "provider_timeout"
	case errors.Is(err, ErrNotPlaying):
		return "not_playing"
	case errors.Is(err, ErrNothingToShuffle):
		return "nothing_to_shuffle"
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrSessionClosed):
		return "session_not_found"
	default:
		return "default_error"
	}
}
