// Package spotify expands Spotify track, album and playlist links into
// search requests that the track resolver can play.
package spotify

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/errgroup"

	"github.com/EndBlue418/Spark-Discord-BOT/internal/domain/playlist"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/domain/track"
)

// Errors
var (
	ErrInvalidLink = errors.New("not a Spotify track, album or playlist link")
	ErrEmpty       = errors.New("collection has no tracks")
)

const (
	playlistPageSize = 100
	albumPageSize    = 50
	pageWorkers      = 4
)

// Client is a Spotify API client.
type Client struct {
	client     *spotify.Client
	market     string
	limit      int
	maxRetries int
	retryDelay time.Duration
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	Market       string
	Limit        int    // Maximum entries taken from one collection
	TokenURL     string // Overrides the accounts endpoint (tests)
	APIBaseURL   string // Overrides the API endpoint (tests)
}

// New creates a new Spotify client using the client credentials flow.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("spotify credentials are required")
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
	}

	var opts []spotify.ClientOption
	if cfg.APIBaseURL != "" {
		opts = append(opts, spotify.WithBaseURL(cfg.APIBaseURL))
	}
	client := spotify.New(cc.Client(ctx), opts...)

	market := cfg.Market
	if market == "" {
		market = "JP"
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = 500
	}

	return &Client{
		client:     client,
		market:     market,
		limit:      limit,
		maxRetries: 3,
		retryDelay: time.Second,
	}, nil
}

// Expand returns the tracks behind a Spotify link as search requests.
func (c *Client) Expand(ctx context.Context, link string) (*playlist.Playlist, error) {
	kind, id := parseLink(link)
	if id == "" {
		return nil, ErrInvalidLink
	}

	var pl *playlist.Playlist
	var err error
	switch kind {
	case playlist.KindTrack:
		pl, err = c.expandTrack(ctx, id)
	case playlist.KindAlbum:
		pl, err = c.expandAlbum(ctx, id)
	case playlist.KindPlaylist:
		pl, err = c.expandPlaylist(ctx, id)
	default:
		return nil, ErrInvalidLink
	}
	if err != nil {
		return nil, err
	}
	if pl.Len() == 0 {
		return nil, ErrEmpty
	}
	if pl.Len() > c.limit {
		pl.Entries = pl.Entries[:c.limit]
	}
	pl.URL = link

	zlog.Info().Msgf("spotify: expanded %s: id=%s name=%q entries=%d", pl.Kind, pl.ID, pl.Name, pl.Len())
	return pl, nil
}

func (c *Client) expandTrack(ctx context.Context, id string) (*playlist.Playlist, error) {
	var result *spotify.FullTrack
	err := c.retry(ctx, func() error {
		t, err := c.client.GetTrack(ctx, spotify.ID(id), spotify.Market(c.market))
		if err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get track")
	}

	return &playlist.Playlist{
		Kind:    playlist.KindTrack,
		ID:      id,
		Name:    result.Name,
		Entries: []track.Request{toRequest(result.Name, result.Artists)},
	}, nil
}

func (c *Client) expandAlbum(ctx context.Context, id string) (*playlist.Playlist, error) {
	var album *spotify.FullAlbum
	err := c.retry(ctx, func() error {
		a, err := c.client.GetAlbum(ctx, spotify.ID(id), spotify.Market(c.market))
		if err != nil {
			return err
		}
		album = a
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get album")
	}

	pl := &playlist.Playlist{Kind: playlist.KindAlbum, ID: id, Name: album.Name}
	for _, t := range album.Tracks.Tracks {
		pl.Entries = append(pl.Entries, toRequest(t.Name, t.Artists))
	}

	total := min(int(album.Tracks.Total), c.limit)
	rest, err := fetchPages(ctx, len(album.Tracks.Tracks), total, albumPageSize, func(ctx context.Context, offset int) ([]track.Request, error) {
		var page *spotify.SimpleTrackPage
		err := c.retry(ctx, func() error {
			p, err := c.client.GetAlbumTracks(ctx, spotify.ID(id),
				spotify.Limit(albumPageSize),
				spotify.Offset(offset),
				spotify.Market(c.market),
			)
			if err != nil {
				return err
			}
			page = p
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to get album tracks")
		}
		entries := make([]track.Request, 0, len(page.Tracks))
		for _, t := range page.Tracks {
			entries = append(entries, toRequest(t.Name, t.Artists))
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	pl.Entries = append(pl.Entries, rest...)
	return pl, nil
}

func (c *Client) expandPlaylist(ctx context.Context, id string) (*playlist.Playlist, error) {
	var name string
	err := c.retry(ctx, func() error {
		p, err := c.client.GetPlaylist(ctx, spotify.ID(id), spotify.Fields("name"))
		if err != nil {
			return err
		}
		name = p.Name
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "playlist does not exist or is not accessible")
	}

	fetch := func(ctx context.Context, offset int) ([]track.Request, int, error) {
		var page *spotify.PlaylistItemPage
		err := c.retry(ctx, func() error {
			p, err := c.client.GetPlaylistItems(ctx, spotify.ID(id),
				spotify.Limit(playlistPageSize),
				spotify.Offset(offset),
				spotify.Market(c.market),
			)
			if err != nil {
				return err
			}
			page = p
			return nil
		})
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to get playlist items")
		}

		var entries []track.Request
		for _, item := range page.Items {
			// Only process tracks (exclude episodes)
			if item.Track.Track != nil && item.Track.Track.ID != "" {
				entries = append(entries, toRequest(item.Track.Track.Name, item.Track.Track.Artists))
			}
		}
		return entries, int(page.Total), nil
	}

	first, total, err := fetch(ctx, 0)
	if err != nil {
		return nil, err
	}

	pl := &playlist.Playlist{Kind: playlist.KindPlaylist, ID: id, Name: name, Entries: first}
	rest, err := fetchPages(ctx, playlistPageSize, min(total, c.limit), playlistPageSize, func(ctx context.Context, offset int) ([]track.Request, error) {
		entries, _, err := fetch(ctx, offset)
		return entries, err
	})
	if err != nil {
		return nil, err
	}
	pl.Entries = append(pl.Entries, rest...)
	return pl, nil
}

// fetchPages fetches the pages from offset start up to total concurrently and
// returns their entries in page order.
func fetchPages(ctx context.Context, start, total, size int, fetch func(ctx context.Context, offset int) ([]track.Request, error)) ([]track.Request, error) {
	if start >= total {
		return nil, nil
	}

	var offsets []int
	for off := start; off < total; off += size {
		offsets = append(offsets, off)
	}
	pages := make([][]track.Request, len(offsets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pageWorkers)
	for i, off := range offsets {
		g.Go(func() error {
			entries, err := fetch(gctx, off)
			if err != nil {
				return err
			}
			pages[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []track.Request
	for _, p := range pages {
		all = append(all, p...)
	}
	return all, nil
}

// toRequest builds the search request for a track: "Artist A, Artist B - Name".
func toRequest(name string, artists []spotify.SimpleArtist) track.Request {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	query := name
	if len(names) > 0 {
		query = strings.Join(names, ", ") + " - " + name
	}
	return track.Request{Query: query, DisplayTitle: query}
}

// retry retries an operation with linear backoff.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(i+1)):
			}
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}

// IsLink reports whether input is a Spotify track, album or playlist link or URI.
func IsLink(input string) bool {
	_, id := parseLink(input)
	return id != ""
}

// parseLink extracts the kind and ID from a Spotify URL or URI.
func parseLink(input string) (playlist.Kind, string) {
	input = strings.TrimSpace(input)

	// Handle Spotify URI format: spotify:KIND:ID
	if rest, ok := strings.CutPrefix(input, "spotify:"); ok {
		kind, id, found := strings.Cut(rest, ":")
		if !found {
			return "", ""
		}
		return matchKind(kind, id)
	}

	// Handle URL format: https://open.spotify.com/KIND/ID or https://open.spotify.com/intl-XX/KIND/ID
	if !strings.Contains(input, "open.spotify.com/") {
		return "", ""
	}
	path := strings.SplitN(input, "open.spotify.com/", 2)[1]
	path = strings.SplitN(path, "?", 2)[0]
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) > 0 && strings.HasPrefix(parts[0], "intl-") {
		parts = parts[1:]
	}
	if len(parts) < 2 {
		return "", ""
	}
	return matchKind(parts[0], parts[1])
}

func matchKind(kind, id string) (playlist.Kind, string) {
	if id == "" {
		return "", ""
	}
	switch playlist.Kind(kind) {
	case playlist.KindTrack, playlist.KindAlbum, playlist.KindPlaylist:
		return playlist.Kind(kind), id
	}
	return "", ""
}
