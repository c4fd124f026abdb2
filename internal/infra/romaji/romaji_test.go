package romaji

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKanaToRomaji(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "さくら", expected: "sakura"},
		{input: "トウキョウ", expected: "toukyou"},
		{input: "キョウ", expected: "kyou"},
		{input: "がっこう", expected: "gakkou"},
		{input: "マッチ", expected: "matchi"},
		{input: "ラーメン", expected: "raamen"},
		{input: "シャツ", expected: "shatsu"},
		{input: "ファン", expected: "fan"},
		{input: "abc", expected: "abc"},
		{input: "ン", expected: "n"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, KanaToRomaji(tt.input))
		})
	}
}

func TestRomanizer_Romanize(t *testing.T) {
	r := New()

	out, err := r.Romanize("東京へ行く")
	require.NoError(t, err)
	assert.Contains(t, out, "toukyou")

	out, err = r.Romanize("Hello")
	require.NoError(t, err)
	assert.Equal(t, "Hello", out)
}
