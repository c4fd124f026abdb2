package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/EndBlue418/Spark-Discord-BOT/internal/domain/lyrics"
)

// Placeholder identifies what to show when no lyric line is active.
type Placeholder int

const (
	PlaceholderNone         Placeholder = iota // A lyric line is active
	PlaceholderPreparing                       // Lyrics are still being resolved
	PlaceholderInstrumental                    // Before the first cue
	PlaceholderNoLyrics                        // Resolution failed
)

// String returns the string representation of the placeholder.
func (p Placeholder) String() string {
	switch p {
	case PlaceholderNone:
		return "none"
	case PlaceholderPreparing:
		return "preparing"
	case PlaceholderInstrumental:
		return "instrumental"
	case PlaceholderNoLyrics:
		return "no_lyrics"
	default:
		return "unknown"
	}
}

// Text returns the user-facing text for the placeholder.
func (p Placeholder) Text() string {
	switch p {
	case PlaceholderPreparing:
		return "Preparing lyrics..."
	case PlaceholderInstrumental:
		return "♪ (instrumental) ♪"
	case PlaceholderNoLyrics:
		return "No synced lyrics found"
	default:
		return ""
	}
}

// Caption is one rendered frame sent to a target.
type Caption struct {
	Title       string
	Line        lyrics.Line // Valid when Placeholder is PlaceholderNone
	Placeholder Placeholder
	Elapsed     time.Duration
	Duration    time.Duration // Zero when unknown
	Progress    float64       // 0..1
}

// ProgressBar renders the progress as a fixed-width bar.
func (c Caption) ProgressBar(width int) string {
	if width <= 0 {
		width = 20
	}
	pos := int(c.Progress * float64(width-1))
	var b strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i == pos:
			b.WriteString("●")
		case i < pos:
			b.WriteString("━")
		default:
			b.WriteString("─")
		}
	}
	return b.String()
}

// Timestamp renders "elapsed / duration", or only elapsed when duration is unknown.
func (c Caption) Timestamp() string {
	if c.Duration <= 0 {
		return clock(c.Elapsed)
	}
	return clock(c.Elapsed) + " / " + clock(c.Duration)
}

// Text renders the lyric part of the caption as up to three lines.
func (c Caption) Text() string {
	if c.Placeholder != PlaceholderNone {
		return c.Placeholder.Text()
	}
	parts := []string{c.Line.Original}
	if c.Line.Transliteration != "" {
		parts = append(parts, c.Line.Transliteration)
	}
	if c.Line.Translation != "" {
		parts = append(parts, c.Line.Translation)
	}
	return strings.Join(parts, "\n")
}

func clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
