package lyrics

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/EndBlue418/Spark-Discord-BOT/internal/infra/config"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/infra/lyricsrc"
)

// NewProvidersFromConfig creates the enabled lyric providers in configured order.
func NewProvidersFromConfig(cfg *config.Config) ([]Provider, error) {
	var providers []Provider

	for i, pcfg := range cfg.Lyrics.Providers {
		if !pcfg.Enabled {
			zlog.Debug().Msgf("skipping disabled lyrics provider: index=%d type=%s", i+1, pcfg.Type)
			continue
		}

		var provider Provider
		var err error
		zlog.Debug().Msgf("creating lyrics provider: index=%d type=%s settings=%+v", i+1, pcfg.Type, pcfg.Settings)
		switch pcfg.Type {
		case "qq":
			provider, err = lyricsrc.NewQQ(pcfg.Settings)

		case "netease":
			provider, err = lyricsrc.NewNetEase(pcfg.Settings)

		case "lrclib":
			provider, err = lyricsrc.NewLRCLib(pcfg.Settings)

		default:
			return nil, errors.Newf("unsupported lyrics provider type: %s (provider index %d)", pcfg.Type, i)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "failed to create lyrics provider (index %d, type %s)", i, pcfg.Type)
		}

		providers = append(providers, provider)
		zlog.Info().Msgf("registered lyrics provider: index=%d type=%s", i+1, pcfg.Type)
	}

	if len(providers) == 0 {
		return nil, errors.New("no lyrics providers enabled")
	}
	return providers, nil
}
