// Package youtube resolves search queries and links to playable streams with
// yt-dlp, and expands playlist links into ordered requests.
package youtube

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/lrstanley/go-ytdlp"
	zlog "github.com/rs/zerolog/log"
)

// Config holds yt-dlp configuration.
type Config struct {
	YtdlpPath     string // yt-dlp executable (empty uses PATH)
	Format        string // Format selector for playback
	Proxy         string // Proxy URL (optional)
	UseMusic      bool   // Search YouTube Music before YouTube
	PlaylistLimit int    // Maximum entries taken from a playlist
}

// ytdlpRequest describes one yt-dlp invocation.
type ytdlpRequest struct {
	Target string // URL or "ytsearchN:" query
	Print  string // --print template
	Format string // -f selector (empty for none)
	Flat   bool   // --flat-playlist
	Items  string // --playlist-items
}

// runner executes yt-dlp and returns its standard output.
type runner func(ctx context.Context, req ytdlpRequest) (string, error)

// newRunner returns a runner backed by go-ytdlp.
func newRunner(cfg Config) runner {
	return func(ctx context.Context, req ytdlpRequest) (string, error) {
		cmd := ytdlp.New().
			Quiet().
			NoWarnings().
			IgnoreConfig().
			Print(req.Print)

		if cfg.YtdlpPath != "" {
			cmd.SetExecutable(cfg.YtdlpPath)
		}
		if cfg.Proxy != "" {
			cmd.Proxy(cfg.Proxy)
		}
		if req.Format != "" {
			cmd.Format(req.Format)
		}
		if req.Flat {
			cmd.FlatPlaylist()
		} else {
			cmd.NoPlaylist()
		}
		if req.Items != "" {
			cmd.PlaylistItems(req.Items)
		}

		zlog.Debug().Msgf("yt-dlp: target=%s flat=%t items=%s", req.Target, req.Flat, req.Items)

		res, err := cmd.Run(ctx, req.Target)
		if err != nil {
			if res != nil && res.Stderr != "" {
				return "", errors.Wrapf(err, "yt-dlp failed: %s", lastLine(res.Stderr))
			}
			return "", errors.Wrap(err, "yt-dlp failed")
		}
		return res.Stdout, nil
	}
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// splitFields splits tab-separated yt-dlp output lines. Lines with fewer than
// n fields are dropped.
func splitFields(stdout string, n int) [][]string {
	var rows [][]string
	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
		fields := strings.Split(strings.TrimRight(line, "\r"), "\t")
		if len(fields) < n {
			continue
		}
		rows = append(rows, fields)
	}
	return rows
}

// naToEmpty converts yt-dlp's "NA" placeholder to an empty string.
func naToEmpty(s string) string {
	s = strings.TrimSpace(s)
	if s == "NA" || s == "None" {
		return ""
	}
	return s
}
