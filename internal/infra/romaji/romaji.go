// Package romaji renders Japanese lyric lines into Latin script.
package romaji

import (
	"strings"
	"sync"
	"unicode"

	"github.com/cockroachdb/errors"
	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Romanizer converts Japanese text to Hepburn romaji using morphological
// readings from the IPA dictionary. Safe for concurrent use.
type Romanizer struct {
	once sync.Once
	tok  *tokenizer.Tokenizer
	err  error
}

// New creates a romanizer. The dictionary is loaded on first use.
func New() *Romanizer {
	return &Romanizer{}
}

func (r *Romanizer) tokenizer() (*tokenizer.Tokenizer, error) {
	r.once.Do(func() {
		r.tok, r.err = tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
		if r.err != nil {
			r.err = errors.Wrap(r.err, "failed to load tokenizer dictionary")
		}
	})
	return r.tok, r.err
}

// Romanize returns the romaji reading of text.
// Tokens without a dictionary reading fall back to their surface form.
func (r *Romanizer) Romanize(text string) (string, error) {
	t, err := r.tokenizer()
	if err != nil {
		return "", err
	}

	words := make([]string, 0, 8)
	for _, token := range t.Tokenize(text) {
		surface := strings.TrimSpace(token.Surface)
		if surface == "" {
			continue
		}
		reading, ok := token.Reading()
		if !ok || reading == "" || reading == "*" {
			reading = surface
		}
		w := KanaToRomaji(reading)
		if isPunctuation(w) && len(words) > 0 {
			words[len(words)-1] += w
			continue
		}
		words = append(words, w)
	}
	return strings.Join(words, " "), nil
}

func isPunctuation(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) {
			return false
		}
	}
	return s != ""
}
