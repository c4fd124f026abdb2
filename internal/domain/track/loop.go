package track

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// LoopMode represents how the scheduler picks the next track.
type LoopMode int

const (
	LoopOff    LoopMode = iota // Play each entry once
	LoopSingle                 // Repeat the current track
	LoopQueue                  // Cycle the whole queue
)

// ErrUnknownLoopMode is returned when a loop mode name cannot be parsed.
var ErrUnknownLoopMode = errors.New("unknown loop mode")

// String returns the string representation of the loop mode.
func (m LoopMode) String() string {
	switch m {
	case LoopOff:
		return "off"
	case LoopSingle:
		return "single"
	case LoopQueue:
		return "queue"
	default:
		return "unknown"
	}
}

// Next returns the mode that follows m when cycling through modes.
func (m LoopMode) Next() LoopMode {
	switch m {
	case LoopOff:
		return LoopSingle
	case LoopSingle:
		return LoopQueue
	default:
		return LoopOff
	}
}

// ParseLoopMode parses a loop mode name.
func ParseLoopMode(s string) (LoopMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none", "0":
		return LoopOff, nil
	case "single", "track", "one", "1":
		return LoopSingle, nil
	case "queue", "all", "2":
		return LoopQueue, nil
	default:
		return LoopOff, errors.Wrapf(ErrUnknownLoopMode, "%q", s)
	}
}
