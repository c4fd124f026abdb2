package lyrics

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EndBlue418/Spark-Discord-BOT/internal/app/workpool"
	domain "github.com/EndBlue418/Spark-Discord-BOT/internal/domain/lyrics"
)

type upperRomaji struct {
	calls []string
}

func (u *upperRomaji) Romanize(text string) (string, error) {
	u.calls = append(u.calls, text)
	return "romaji:" + text, nil
}

type failingRomaji struct{}

func (failingRomaji) Romanize(string) (string, error) {
	return "", errors.New("dictionary missing")
}

func TestNeedsTransliteration(t *testing.T) {
	assert.True(t, NeedsTransliteration("ひらがな"))
	assert.True(t, NeedsTransliteration("カタカナ"))
	assert.True(t, NeedsTransliteration("漢字 mixed"))
	assert.False(t, NeedsTransliteration("plain latin"))
	assert.False(t, NeedsTransliteration("한국어"))
}

func TestMerge(t *testing.T) {
	body := &domain.Body{
		Original:    "[00:01.00]夜に駆ける\n[00:03.00]same line\n[00:05.00]english only",
		Translation: "[00:01.00]Racing into the night\n[00:03.00]same line",
	}

	// transliteration runs on pool goroutines, so use a pool of one
	romaji := &upperRomaji{}
	track, err := Merge(context.Background(), workpool.New(1), romaji, body)
	require.NoError(t, err)

	lines := track.Lines()
	require.Len(t, lines, 3)

	assert.Equal(t, time.Second, lines[0].At)
	assert.Equal(t, "夜に駆ける", lines[0].Original)
	assert.Equal(t, "romaji:夜に駆ける", lines[0].Transliteration)
	assert.Equal(t, "Racing into the night", lines[0].Translation)

	assert.Empty(t, lines[1].Translation, "identical translation is dropped")
	assert.Empty(t, lines[1].Transliteration)

	assert.Empty(t, lines[2].Translation)
	assert.Equal(t, []string{"夜に駆ける"}, romaji.calls)
}

func TestMerge_TransliterationFailureIsNotFatal(t *testing.T) {
	body := &domain.Body{Original: "[00:01.00]夜"}
	track, err := Merge(context.Background(), workpool.New(2), failingRomaji{}, body)
	require.NoError(t, err)
	require.Equal(t, 1, track.Len())
	assert.Empty(t, track.Lines()[0].Transliteration)
}

func TestMerge_EmptyBody(t *testing.T) {
	_, err := Merge(context.Background(), workpool.New(1), nil, &domain.Body{})
	assert.True(t, errors.Is(err, ErrEmptyBody))

	_, err = Merge(context.Background(), workpool.New(1), nil, &domain.Body{Original: strings.Repeat("no tags\n", 3)})
	assert.True(t, errors.Is(err, ErrEmptyBody))
}
