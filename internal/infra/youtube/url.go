package youtube

import (
	"net/url"
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// IsURL reports whether s looks like an http(s) link.
func IsURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsPlaylistLink reports whether s is a link carrying a playlist id.
func IsPlaylistLink(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || !IsURL(s) {
		return false
	}
	return u.Query().Get("list") != ""
}

// VideoID extracts the video id from a YouTube link, or returns "".
func VideoID(s string) string {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return ""
	}

	var id string
	host := strings.TrimPrefix(u.Hostname(), "www.")
	switch {
	case host == "youtu.be":
		id = strings.Trim(u.Path, "/")
	case strings.HasSuffix(host, "youtube.com"):
		if v := u.Query().Get("v"); v != "" {
			id = v
		} else if rest, ok := strings.CutPrefix(u.Path, "/shorts/"); ok {
			id = rest
		} else if rest, ok := strings.CutPrefix(u.Path, "/embed/"); ok {
			id = rest
		}
	}

	id = strings.SplitN(id, "/", 2)[0]
	if !videoIDPattern.MatchString(id) {
		return ""
	}
	return id
}

// WatchURL returns the canonical watch link for a video id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}
