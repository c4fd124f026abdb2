package lyrics

// Candidate represents a provider's best search match.
type Candidate struct {
	Title  string // Title as reported by the provider
	Artist string // Primary artist (optional)
	Ref    string // Provider-specific reference used to fetch the body
}

// Display returns "Artist Title", or just the title when the artist is unknown.
func (c *Candidate) Display() string {
	if c.Artist == "" {
		return c.Title
	}
	return c.Artist + " " + c.Title
}

// Body holds raw time-coded lyric documents for one candidate.
type Body struct {
	Original    string // LRC document of the original lyrics
	Translation string // LRC document of a translation (optional)
}

// IsEmpty reports whether the body carries no original lyrics.
func (b *Body) IsEmpty() bool {
	return b == nil || b.Original == ""
}

// Result represents the outcome of one lyric resolution.
type Result struct {
	Track    *CaptionTrack // Nil when no candidate was accepted
	Provider string        // Provider that supplied the track
	Log      []string      // One entry per attempt
	Err      error         // Set when Track is nil
}

// Found reports whether a caption track was resolved.
func (r Result) Found() bool {
	return r.Track != nil && r.Track.Len() > 0
}
