package lyrics

import (
	"context"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/EndBlue418/Spark-Discord-BOT/internal/app/workpool"
	domain "github.com/EndBlue418/Spark-Discord-BOT/internal/domain/lyrics"
)

// ErrEmptyBody is returned when a lyric body holds no usable cues.
var ErrEmptyBody = errors.New("lyric body has no timed lines")

// Transliterator renders text into Latin script.
type Transliterator interface {
	Romanize(text string) (string, error)
}

// NeedsTransliteration reports whether text contains Hiragana, Katakana or Han.
func NeedsTransliteration(text string) bool {
	for _, r := range text {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han) {
			return true
		}
	}
	return false
}

// Merge parses a body and combines original, transliteration and translation
// per timestamp into a caption track.
func Merge(ctx context.Context, pool *workpool.Pool, romaji Transliterator, body *domain.Body) (*domain.CaptionTrack, error) {
	if body.IsEmpty() {
		return nil, ErrEmptyBody
	}
	cues := ParseLRC(body.Original)
	if len(cues) == 0 {
		return nil, ErrEmptyBody
	}
	translations := cueMap(ParseLRC(body.Translation))

	lines, err := workpool.Map(ctx, pool, cues, func(ctx context.Context, c Cue) (domain.Line, error) {
		line := domain.Line{At: c.At, Original: c.Text}
		if tr, ok := translations[c.At]; ok && !strings.EqualFold(strings.TrimSpace(tr), c.Text) {
			line.Translation = tr
		}
		if romaji != nil && NeedsTransliteration(c.Text) {
			r, err := romaji.Romanize(c.Text)
			if err != nil {
				zlog.Debug().Msgf("transliteration failed: text=%q error=%v", c.Text, err)
			} else {
				line.Transliteration = r
			}
		}
		return line, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to merge lyric lines")
	}
	return domain.NewCaptionTrack(lines), nil
}
