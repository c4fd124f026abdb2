package youtube

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/EndBlue418/Spark-Discord-BOT/internal/domain/playlist"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/domain/track"
)

// ErrEmptyPlaylist is returned when a playlist has no playable entries.
var ErrEmptyPlaylist = errors.New("playlist has no entries")

const playlistPrint = "%(url)s\t%(title)s\t%(id)s\t%(playlist_title)s"

// Expander expands playlist links into ordered requests.
type Expander struct {
	limit int
	run   runner
}

// NewExpander creates a new playlist expander.
func NewExpander(cfg Config) *Expander {
	limit := cfg.PlaylistLimit
	if limit <= 0 {
		limit = 100
	}
	return &Expander{limit: limit, run: newRunner(cfg)}
}

// Expand lists the entries of a playlist link without resolving streams.
func (e *Expander) Expand(ctx context.Context, link string) (*playlist.Playlist, error) {
	if !IsPlaylistLink(link) {
		return nil, errors.Newf("not a playlist link: %s", link)
	}

	out, err := e.run(ctx, ytdlpRequest{
		Target: link,
		Print:  playlistPrint,
		Flat:   true,
		Items:  fmt.Sprintf("1-%d", e.limit),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to expand playlist %s", link)
	}

	pl := parsePlaylistOutput(out, e.limit)
	if pl.Len() == 0 {
		return nil, ErrEmptyPlaylist
	}
	pl.URL = link
	if u, err := url.Parse(link); err == nil {
		pl.ID = u.Query().Get("list")
	}

	zlog.Info().Msgf("youtube: expanded playlist: id=%s name=%q entries=%d", pl.ID, pl.Name, pl.Len())
	return pl, nil
}

// parsePlaylistOutput builds a playlist from lines printed with playlistPrint.
func parsePlaylistOutput(out string, limit int) *playlist.Playlist {
	pl := &playlist.Playlist{Kind: playlist.KindPlaylist}
	for _, f := range splitFields(out, 2) {
		if limit > 0 && len(pl.Entries) >= limit {
			break
		}

		link := naToEmpty(f[0])
		if len(f) > 2 && !strings.HasPrefix(link, "http") {
			if id := naToEmpty(f[2]); id != "" {
				link = WatchURL(id)
			}
		}
		if link == "" {
			continue
		}

		title := naToEmpty(f[1])
		if title == "[Deleted video]" || title == "[Private video]" {
			continue
		}

		pl.Entries = append(pl.Entries, track.Request{Query: link, DisplayTitle: title})
		if pl.Name == "" && len(f) > 3 {
			pl.Name = naToEmpty(f[3])
		}
	}
	return pl
}
