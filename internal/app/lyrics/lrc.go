package lyrics

import (
	"bufio"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	lrcLinePattern = regexp.MustCompile(`^((?:\[\d{1,3}:\d{2}(?:[.:]\d{1,3})?\])+)(.*)$`)
	lrcTagPattern  = regexp.MustCompile(`\[(\d{1,3}):(\d{2})(?:[.:](\d{1,3}))?\]`)
)

// Cue is a single parsed (timestamp, text) pair.
type Cue struct {
	At   time.Duration
	Text string
}

// ParseLRC parses an LRC document into cues in document order.
// Metadata tags and lines without text are skipped. A line carrying several
// leading time tags produces one cue per tag.
func ParseLRC(doc string) []Cue {
	var cues []Cue
	sc := bufio.NewScanner(strings.NewReader(html.UnescapeString(doc)))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		m := lrcLinePattern.FindStringSubmatch(strings.TrimSpace(sc.Text()))
		if m == nil {
			continue
		}
		text := strings.TrimSpace(m[2])
		if text == "" {
			continue
		}
		for _, tag := range lrcTagPattern.FindAllStringSubmatch(m[1], -1) {
			cues = append(cues, Cue{At: tagDuration(tag[1], tag[2], tag[3]), Text: text})
		}
	}
	return cues
}

func tagDuration(minutes, seconds, frac string) time.Duration {
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)
	d := time.Duration(m)*time.Minute + time.Duration(s)*time.Second
	if frac != "" {
		f, _ := strconv.Atoi(frac)
		switch len(frac) {
		case 1:
			d += time.Duration(f) * 100 * time.Millisecond
		case 2:
			d += time.Duration(f) * 10 * time.Millisecond
		default:
			d += time.Duration(f) * time.Millisecond
		}
	}
	return d
}

// cueMap indexes cues by timestamp, keeping the first text seen.
func cueMap(cues []Cue) map[time.Duration]string {
	out := make(map[time.Duration]string, len(cues))
	for _, c := range cues {
		if _, ok := out[c.At]; !ok {
			out[c.At] = c.Text
		}
	}
	return out
}
