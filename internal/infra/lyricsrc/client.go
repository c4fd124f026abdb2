// Package lyricsrc provides HTTP clients for public time-coded lyric databases.
package lyricsrc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ErrNotFound is returned when a lookup yields nothing usable.
var ErrNotFound = errors.New("lyrics not found")

// Settings holds the options shared by every lyric source.
type Settings struct {
	BaseURL    string        `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout" default:"5s" validate:"gt=0"`
	RatePerSec float64       `yaml:"rate_per_sec" mapstructure:"rate_per_sec" default:"5" validate:"gt=0"`
	Burst      int           `yaml:"burst" mapstructure:"burst" default:"2" validate:"gte=1"`
	UserAgent  string        `yaml:"user_agent" mapstructure:"user_agent" default:"Spark/1.0"`
}

// decodeSettings fills s from a loosely typed settings map.
func decodeSettings(settings map[string]any, s *Settings) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     s,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create settings decoder")
	}
	if err := dec.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(s); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(s); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}

// client is the rate-limited HTTP base shared by the sources.
type client struct {
	name       string
	baseURL    string
	userAgent  string
	headers    map[string]string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func newClient(name, defaultBaseURL string, s Settings, headers map[string]string) *client {
	baseURL := s.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &client{
		name:       name,
		baseURL:    baseURL,
		userAgent:  s.UserAgent,
		headers:    headers,
		httpClient: &http.Client{Timeout: s.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(s.RatePerSec), s.Burst),
	}
}

// getJSON issues a GET for path with params and decodes the JSON response into out.
func (c *client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limit wait aborted")
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	zlog.Debug().Msgf("%s: GET %s", c.name, reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to execute request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Newf("%s API returned status %d", c.name, resp.StatusCode)
	}

	if err := json.Unmarshal(stripJSONP(body), out); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}

// stripJSONP unwraps "callback({...})" payloads. Plain JSON is returned unchanged.
func stripJSONP(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] == '{' || trimmed[0] == '[' {
		return trimmed
	}
	open := bytes.IndexByte(trimmed, '(')
	end := bytes.LastIndexByte(trimmed, ')')
	if open < 0 || end <= open {
		return trimmed
	}
	return trimmed[open+1 : end]
}
