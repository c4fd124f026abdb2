package lyrics

import (
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	// ShortTitleRunes is the length below which a title needs stricter confirmation.
	ShortTitleRunes = 20

	shortTitleThreshold = 0.8
	longTitleThreshold  = 0.5
)

// Similarity returns the sequence-matcher ratio of two titles,
// ignoring case and whitespace.
func Similarity(a, b string) float64 {
	ra, rb := foldRunes(a), foldRunes(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1
	}
	return difflib.NewMatcher(ra, rb).Ratio()
}

// Threshold returns the minimum similarity to accept a candidate for query.
func Threshold(query string) float64 {
	if utf8.RuneCountInString(query) < ShortTitleRunes {
		return shortTitleThreshold
	}
	return longTitleThreshold
}

// Accept reports the similarity of candidate to query and whether it passes.
func Accept(query, candidate string) (float64, bool) {
	score := Similarity(query, candidate)
	return score, score >= Threshold(query)
}
