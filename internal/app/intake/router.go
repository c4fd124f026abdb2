// Package intake turns user input into ordered track requests.
package intake

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/EndBlue418/Spark-Discord-BOT/internal/domain/playlist"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/domain/track"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/infra/spotify"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/infra/youtube"
)

// Errors
var (
	ErrEmptyInput      = errors.New("empty input")
	ErrSpotifyDisabled = errors.New("spotify links are not enabled")
)

// Route identifies how an input was handled.
type Route int

const (
	RouteSingle   Route = iota // Passed through as one request
	RouteSpotify               // Expanded from a Spotify link
	RoutePlaylist              // Expanded from a playlist link
)

// String returns the string representation of the route.
func (r Route) String() string {
	switch r {
	case RouteSingle:
		return "single"
	case RouteSpotify:
		return "spotify"
	case RoutePlaylist:
		return "playlist"
	default:
		return "unknown"
	}
}

// Expander expands a collection link.
type Expander interface {
	Expand(ctx context.Context, link string) (*playlist.Playlist, error)
}

// Result holds the requests produced for one input.
type Result struct {
	Route    Route
	Name     string // Collection name (empty for single requests)
	Requests []track.Request
}

// Router classifies input and expands collection links.
type Router struct {
	spotify   Expander
	playlists Expander
}

// NewRouter creates a router. spotifyExpander may be nil when Spotify is not configured.
func NewRouter(spotifyExpander, playlistExpander Expander) *Router {
	return &Router{spotify: spotifyExpander, playlists: playlistExpander}
}

// Route resolves input into requests without touching any queue.
func (r *Router) Route(ctx context.Context, input string) (Result, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Result{}, ErrEmptyInput
	}

	switch {
	case spotify.IsLink(input):
		if r.spotify == nil {
			return Result{}, ErrSpotifyDisabled
		}
		return r.expand(ctx, RouteSpotify, r.spotify, input)

	case youtube.IsPlaylistLink(input) && r.playlists != nil:
		res, err := r.expand(ctx, RoutePlaylist, r.playlists, input)
		if err == nil {
			return res, nil
		}
		// A watch link inside a playlist still plays on its own.
		if youtube.VideoID(input) == "" {
			return Result{}, err
		}
		zlog.Warn().Msgf("intake: playlist expansion failed, playing single video: input=%s err=%v", input, err)
	}

	return Result{Route: RouteSingle, Requests: []track.Request{track.NewRequest(input)}}, nil
}

func (r *Router) expand(ctx context.Context, route Route, e Expander, link string) (Result, error) {
	pl, err := e.Expand(ctx, link)
	if err != nil {
		return Result{}, errors.Wrapf(err, "failed to expand %s link", route)
	}
	zlog.Debug().Msgf("intake: expanded: route=%s name=%q entries=%d", route, pl.Name, pl.Len())
	return Result{Route: route, Name: pl.Name, Requests: pl.Entries}, nil
}
