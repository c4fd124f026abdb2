package lyrics

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	bracketPattern = regexp.MustCompile(`\(.*?\)|\[.*?\]|【.*?】`)
	spacePattern   = regexp.MustCompile(`\s+`)

	// ASCII tokens only match on word boundaries
	noiseTokens = []string{
		"official video", "official mv", "official audio", "music video",
		"lyrics", "lyric", "full audio", "hd", "hq", "1080p", "4k", "mv",
		"字幕", "feat.", "ft.",
	}
	noisePattern = buildNoisePattern(noiseTokens)
)

func buildNoisePattern(tokens []string) *regexp.Regexp {
	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		first, _ := utf8.DecodeRuneInString(tok)
		last, _ := utf8.DecodeLastRuneInString(tok)
		quoted := regexp.QuoteMeta(tok)
		if isASCIIWordRune(first) {
			quoted = `\b` + quoted
		}
		if isASCIIWordRune(last) {
			quoted += `\b`
		}
		parts = append(parts, quoted)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(parts, "|"))
}

func isASCIIWordRune(r rune) bool {
	return r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

// NormalizeTitle strips bracketed annotations and promotional noise from a title.
func NormalizeTitle(title string) string {
	s := norm.NFKC.String(title)
	s = bracketPattern.ReplaceAllString(s, " ")
	s = noisePattern.ReplaceAllString(s, " ")
	s = strings.Trim(spacePattern.ReplaceAllString(s, " "), " -|/")
	return strings.TrimSpace(s)
}

// foldRunes folds a title for similarity comparison: NFKC, lowercase,
// whitespace removed. Punctuation is kept.
func foldRunes(s string) []string {
	s = strings.ToLower(norm.NFKC.String(s))
	out := make([]string, 0, len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		out = append(out, string(r))
	}
	return out
}
