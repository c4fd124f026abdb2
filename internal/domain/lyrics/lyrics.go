// Package lyrics provides the time-coded caption domain entities.
package lyrics

import (
	"sort"
	"time"
)

// Line represents one cue of a caption track.
type Line struct {
	At              time.Duration // Cue timestamp from track start
	Original        string        // Lyric text as published
	Transliteration string        // Latin-script reading (optional)
	Translation     string        // Translated text (optional)
}

// CaptionTrack is an immutable, ascending sequence of cues.
type CaptionTrack struct {
	lines []Line
}

// NewCaptionTrack builds a caption track from lines in any order.
// Negative timestamps are dropped and later duplicates of a timestamp are ignored.
func NewCaptionTrack(lines []Line) *CaptionTrack {
	sorted := make([]Line, 0, len(lines))
	for _, l := range lines {
		if l.At < 0 {
			continue
		}
		sorted = append(sorted, l)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].At < sorted[j].At
	})

	out := sorted[:0]
	for i, l := range sorted {
		if i > 0 && l.At == sorted[i-1].At {
			continue
		}
		out = append(out, l)
	}
	return &CaptionTrack{lines: out}
}

// Len returns the number of cues.
func (c *CaptionTrack) Len() int {
	if c == nil {
		return 0
	}
	return len(c.lines)
}

// Lines returns a copy of the cues in ascending order.
func (c *CaptionTrack) Lines() []Line {
	if c == nil {
		return nil
	}
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// ActiveAt returns the index and line of the greatest cue at or before elapsed.
// ok is false when elapsed precedes the first cue.
func (c *CaptionTrack) ActiveAt(elapsed time.Duration) (idx int, line Line, ok bool) {
	if c == nil || len(c.lines) == 0 {
		return -1, Line{}, false
	}
	// first index whose cue is strictly after elapsed
	i := sort.Search(len(c.lines), func(i int) bool {
		return c.lines[i].At > elapsed
	})
	if i == 0 {
		return -1, Line{}, false
	}
	return i - 1, c.lines[i-1], true
}
