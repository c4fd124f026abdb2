package lyricsrc

import (
	"context"
	"net/url"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/EndBlue418/Spark-Discord-BOT/internal/domain/lyrics"
)

const neteaseBaseURL = "https://music.163.com"

type neteaseSearchResponse struct {
	Result struct {
		Songs []struct {
			ID      int64  `json:"id"`
			Name    string `json:"name"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
		} `json:"songs"`
	} `json:"result"`
	Code int `json:"code"`
}

type neteaseLyricResponse struct {
	Lrc struct {
		Lyric string `json:"lyric"`
	} `json:"lrc"`
	TLyric struct {
		Lyric string `json:"lyric"`
	} `json:"tlyric"`
	Code int `json:"code"`
}

// NetEase is a client for NetEase Cloud Music lyrics.
type NetEase struct {
	c *client
}

// NewNetEase creates a NetEase source.
func NewNetEase(settings map[string]any) (*NetEase, error) {
	var s Settings
	if err := decodeSettings(settings, &s); err != nil {
		return nil, err
	}
	return &NetEase{c: newClient("netease", neteaseBaseURL, s, nil)}, nil
}

// Name returns the source name.
func (n *NetEase) Name() string { return "netease" }

// Search returns the top song for query.
func (n *NetEase) Search(ctx context.Context, query string) (*lyrics.Candidate, error) {
	params := url.Values{}
	params.Set("s", query)
	params.Set("type", "1")
	params.Set("limit", "1")

	var res neteaseSearchResponse
	if err := n.c.getJSON(ctx, "/api/search/get", params, &res); err != nil {
		return nil, errors.Wrap(err, "netease search failed")
	}
	if len(res.Result.Songs) == 0 {
		return nil, nil
	}

	song := res.Result.Songs[0]
	cand := &lyrics.Candidate{Title: song.Name, Ref: strconv.FormatInt(song.ID, 10)}
	if len(song.Artists) > 0 {
		cand.Artist = song.Artists[0].Name
	}
	return cand, nil
}

// FetchBody returns the lyrics and translation for a song id.
func (n *NetEase) FetchBody(ctx context.Context, ref string) (*lyrics.Body, error) {
	params := url.Values{}
	params.Set("id", ref)
	params.Set("lv", "-1")
	params.Set("kv", "-1")
	params.Set("tv", "-1")

	var res neteaseLyricResponse
	if err := n.c.getJSON(ctx, "/api/song/lyric", params, &res); err != nil {
		return nil, errors.Wrap(err, "netease lyric fetch failed")
	}
	if res.Lrc.Lyric == "" {
		return nil, ErrNotFound
	}
	return &lyrics.Body{Original: res.Lrc.Lyric, Translation: res.TLyric.Lyric}, nil
}
