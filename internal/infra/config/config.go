// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Control  ControlConfig  `yaml:"control"`
	Playback PlaybackConfig `yaml:"playback"`
	Render   RenderConfig   `yaml:"render"`
	Lyrics   LyricsConfig   `yaml:"lyrics"`
	YouTube  YouTubeConfig  `yaml:"youtube"`
	Spotify  SpotifyConfig  `yaml:"spotify"`
	Messages MessagesConfig `yaml:"messages"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:":8080"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// ControlConfig represents control API configuration.
type ControlConfig struct {
	Token string `yaml:"token" validate:"required"`
}

// PlaybackConfig represents playback scheduler configuration.
type PlaybackConfig struct {
	MaxResolveAttempts int `yaml:"max_resolve_attempts" default:"5" validate:"gte=1,lte=50"`
	ResolveTimeoutSec  int `yaml:"resolve_timeout_sec" default:"30" validate:"gte=1"`
	CommandBuffer      int `yaml:"command_buffer" default:"64" validate:"gte=1"`
	EventBuffer        int `yaml:"event_buffer" default:"64" validate:"gte=1"`
}

// RenderConfig represents caption renderer configuration.
type RenderConfig struct {
	TickMs           int     `yaml:"tick_ms" default:"100" validate:"gte=10,lte=5000"`
	LeadMs           int     `yaml:"lead_ms" validate:"gte=-5000,lte=5000"`
	DefaultSpanSec   int     `yaml:"default_span_sec" default:"240" validate:"gte=1"`
	MaxUpdatesPerSec float64 `yaml:"max_updates_per_sec" default:"2" validate:"gt=0"`
	Burst            int     `yaml:"burst" default:"2" validate:"gte=1"`
}

// LyricsConfig represents lyric resolution configuration.
type LyricsConfig struct {
	ProviderTimeoutMs int                    `yaml:"provider_timeout_ms" default:"3000" validate:"gte=100"`
	ResolveTimeoutMs  int                    `yaml:"resolve_timeout_ms" default:"8000" validate:"gte=100"`
	Workers           int                    `yaml:"workers" default:"4" validate:"gte=1,lte=64"`
	Romaji            string                 `yaml:"romaji" default:"kagome" validate:"oneof=kagome none"`
	Providers         []LyricsProviderConfig `yaml:"providers" validate:"dive"`
}

// LyricsProviderConfig represents a single lyric provider configuration.
type LyricsProviderConfig struct {
	Type     string         `yaml:"type" validate:"required,oneof=qq netease lrclib"`
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// YouTubeConfig represents track resolution configuration.
type YouTubeConfig struct {
	YtdlpPath     string `yaml:"ytdlp_path"`
	Format        string `yaml:"format" default:"bestaudio/best"`
	Proxy         string `yaml:"proxy"`
	UseMusic      bool   `yaml:"use_music"`
	PlaylistLimit int    `yaml:"playlist_limit" default:"100" validate:"gte=1,lte=1000"`
}

// SpotifyConfig represents Spotify API configuration.
// Spotify links are rejected when credentials are absent.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret" validate:"required_with=ClientID"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"JP"`
}

// MessagesConfig represents user-facing messages.
type MessagesConfig struct {
	Success          string `yaml:"success" default:"OK"`
	DefaultError     string `yaml:"default_error" default:"Something went wrong"`
	EmptyQueue       string `yaml:"empty_queue" default:"The queue is empty"`
	NoHistory        string `yaml:"no_history" default:"There is no previous track"`
	InvalidIndex     string `yaml:"invalid_index" default:"No track at that position"`
	QueueExhausted   string `yaml:"queue_exhausted" default:"No playable track was found"`
	ResolutionFailed string `yaml:"resolution_failed" default:"Could not find that track"`
	SinkUnavailable  string `yaml:"sink_unavailable" default:"Voice output is unavailable"`
	LyricsMissing    string `yaml:"lyrics_unavailable" default:"No lyrics found"`
	ProviderTimeout  string `yaml:"provider_timeout" default:"The lyrics service did not respond"`
	NotPlaying       string `yaml:"not_playing" default:"Nothing is playing"`
	NothingToShuffle string `yaml:"nothing_to_shuffle" default:"Not enough tracks to shuffle"`
	SessionNotFound  string `yaml:"session_not_found" default:"No active session"`
	EmptyInput       string `yaml:"empty_input" default:"Tell me what to play"`
	SpotifyDisabled  string `yaml:"spotify_disabled" default:"Spotify links are not supported here"`
}

// DefaultLyricsProviders is the provider order used when none are configured.
var DefaultLyricsProviders = []string{"qq", "netease", "lrclib"}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse builds a configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if len(cfg.Lyrics.Providers) == 0 {
		for _, name := range DefaultLyricsProviders {
			cfg.Lyrics.Providers = append(cfg.Lyrics.Providers, LyricsProviderConfig{Type: name, Enabled: true})
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPARK_CONTROL_TOKEN"); v != "" {
		c.Control.Token = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("YTDLP_PROXY"); v != "" {
		c.YouTube.Proxy = v
	}
}

// GetMessage returns the message for the given code.
func (c *Config) GetMessage(code string) string {
	switch code {
	case "success":
		return c.Messages.Success
	case "empty_queue":
		return c.Messages.EmptyQueue
	case "no_history":
		return c.Messages.NoHistory
	case "invalid_index":
		return c.Messages.InvalidIndex
	case "queue_exhausted":
		return c.Messages.QueueExhausted
	case "resolution_failed":
		return c.Messages.ResolutionFailed
	case "sink_unavailable":
		return c.Messages.SinkUnavailable
	case "lyrics_unavailable":
		return c.Messages.LyricsMissing
	case "provider_timeout":
		return c.Messages.ProviderTimeout
	case "not_playing":
		return c.Messages.NotPlaying
	case "nothing_to_shuffle":
		return c.Messages.NothingToShuffle
	case "session_not_found":
		return c.Messages.SessionNotFound
	case "empty_input":
		return c.Messages.EmptyInput
	case "spotify_disabled":
		return c.Messages.SpotifyDisabled
	default:
		return c.Messages.DefaultError
	}
}

// SpotifyEnabled reports whether Spotify credentials are configured.
func (c *Config) SpotifyEnabled() bool {
	return c.Spotify.ClientID != "" && c.Spotify.ClientSecret != ""
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	seen := make(map[string]bool)
	for _, p := range c.Lyrics.Providers {
		if seen[p.Type] {
			return errors.Newf("lyrics provider %q configured more than once", p.Type)
		}
		seen[p.Type] = true
	}

	if c.Lyrics.ProviderTimeoutMs > c.Lyrics.ResolveTimeoutMs {
		return errors.Newf("provider_timeout_ms (%d) must not exceed resolve_timeout_ms (%d)",
			c.Lyrics.ProviderTimeoutMs, c.Lyrics.ResolveTimeoutMs)
	}

	return nil
}

// Tick returns the renderer tick interval.
func (r RenderConfig) Tick() time.Duration { return time.Duration(r.TickMs) * time.Millisecond }

// Lead returns the display latency offset.
func (r RenderConfig) Lead() time.Duration { return time.Duration(r.LeadMs) * time.Millisecond }

// DefaultSpan returns the span assumed for tracks of unknown duration.
func (r RenderConfig) DefaultSpan() time.Duration {
	return time.Duration(r.DefaultSpanSec) * time.Second
}

// ProviderTimeout returns the per-provider call budget.
func (l LyricsConfig) ProviderTimeout() time.Duration {
	return time.Duration(l.ProviderTimeoutMs) * time.Millisecond
}

// ResolveTimeout returns the whole-resolution budget.
func (l LyricsConfig) ResolveTimeout() time.Duration {
	return time.Duration(l.ResolveTimeoutMs) * time.Millisecond
}

// ResolveTimeout returns the stream resolution budget.
func (p PlaybackConfig) ResolveTimeout() time.Duration {
	return time.Duration(p.ResolveTimeoutSec) * time.Second
}
