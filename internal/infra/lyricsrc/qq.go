package lyricsrc

import (
	"context"
	"net/url"

	"github.com/cockroachdb/errors"

	"github.com/EndBlue418/Spark-Discord-BOT/internal/domain/lyrics"
)

const qqBaseURL = "https://c.y.qq.com"

type qqSearchResponse struct {
	Code int `json:"code"`
	Data struct {
		Song struct {
			List []struct {
				SongMID  string `json:"songmid"`
				SongName string `json:"songname"`
				Singer   []struct {
					Name string `json:"name"`
				} `json:"singer"`
			} `json:"list"`
		} `json:"song"`
	} `json:"data"`
}

type qqLyricResponse struct {
	RetCode int    `json:"retcode"`
	Lyric   string `json:"lyric"`
	Trans   string `json:"trans"`
}

// QQ is a client for QQ Music lyrics.
type QQ struct {
	c *client
}

// NewQQ creates a QQ Music source.
func NewQQ(settings map[string]any) (*QQ, error) {
	var s Settings
	if err := decodeSettings(settings, &s); err != nil {
		return nil, err
	}
	return &QQ{c: newClient("qq", qqBaseURL, s, map[string]string{"Referer": "https://y.qq.com/"})}, nil
}

// Name returns the source name.
func (q *QQ) Name() string { return "qq" }

// Search returns the top song for query.
func (q *QQ) Search(ctx context.Context, query string) (*lyrics.Candidate, error) {
	params := url.Values{}
	params.Set("w", query)
	params.Set("format", "json")
	params.Set("n", "1")

	var res qqSearchResponse
	if err := q.c.getJSON(ctx, "/soso/fcgi-bin/client_search_cp", params, &res); err != nil {
		return nil, errors.Wrap(err, "qq search failed")
	}
	if len(res.Data.Song.List) == 0 {
		return nil, nil
	}

	song := res.Data.Song.List[0]
	cand := &lyrics.Candidate{Title: song.SongName, Ref: song.SongMID}
	if len(song.Singer) > 0 {
		cand.Artist = song.Singer[0].Name
	}
	return cand, nil
}

// FetchBody returns the lyrics and translation for a song mid.
func (q *QQ) FetchBody(ctx context.Context, ref string) (*lyrics.Body, error) {
	params := url.Values{}
	params.Set("songmid", ref)
	params.Set("format", "json")
	params.Set("nobase64", "1")
	params.Set("platform", "yqq.json")

	var res qqLyricResponse
	if err := q.c.getJSON(ctx, "/lyric/fcgi-bin/fcg_query_lyric_new.fcg", params, &res); err != nil {
		return nil, errors.Wrap(err, "qq lyric fetch failed")
	}
	if res.RetCode != 0 {
		return nil, errors.Newf("qq lyric fetch failed: retcode=%d", res.RetCode)
	}
	if res.Lyric == "" {
		return nil, ErrNotFound
	}
	return &lyrics.Body{Original: res.Lyric, Translation: res.Trans}, nil
}
