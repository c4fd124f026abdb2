package lyrics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity("Hello World", "helloworld"), 0.0001)
	assert.InDelta(t, 1.0, Similarity("", ""), 0.0001)
	assert.InDelta(t, 0.0, Similarity("abc", "xyz"), 0.0001)
	// "up" vs "up(live)": 2*2/(2+8)
	assert.InDelta(t, 0.4, Similarity("Up", "Up (Live)"), 0.0001)
	// punctuation counts toward the score
	assert.InDelta(t, 0.8, Similarity("AB", "A-B"), 0.0001)
}

func TestThreshold(t *testing.T) {
	assert.Equal(t, 0.8, Threshold("Up"))
	assert.Equal(t, 0.8, Threshold(strings.Repeat("a", ShortTitleRunes-1)))
	assert.Equal(t, 0.5, Threshold(strings.Repeat("a", ShortTitleRunes)))
	// rune count, not byte count
	assert.Equal(t, 0.8, Threshold("夜に駆ける夜に駆ける"))
}

func TestAccept_ShortTitleIsStrict(t *testing.T) {
	score, ok := Accept("Up", "Up (Live)")
	assert.InDelta(t, 0.4, score, 0.0001)
	assert.False(t, ok)
}

func TestAccept_LongTitleIsLenient(t *testing.T) {
	query := "Kenshi Yonezu Lemon Extended Version Remastered 2024"
	assert.GreaterOrEqual(t, len(query), 45)

	score, ok := Accept(query, "米津玄師 Lemon Extended Version")
	assert.GreaterOrEqual(t, score, 0.5)
	assert.True(t, ok)

	_, ok = Accept(query, "Completely different")
	assert.False(t, ok)
}
