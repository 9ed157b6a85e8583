// Package text holds the normalization policy shared by training and
// classification. A phrase and an utterance are only comparable when both
// went through the same Normalizer.
package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

type Normalizer struct {
	StripPunctuation bool
}

// Normalize folds case, applies NFKC, optionally strips punctuation and
// collapses whitespace. Apostrophes are dropped rather than split so that
// "where's" becomes "wheres".
func (n Normalizer) Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s)

	if n.StripPunctuation {
		s = strings.Map(func(r rune) rune {
			switch {
			case r == '\'' || r == '’':
				return -1
			case unicode.IsPunct(r) || unicode.IsSymbol(r):
				return ' '
			}
			return r
		}, s)
	}

	return strings.Join(strings.Fields(s), " ")
}

// Tokens splits normalized text on whitespace.
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}

// ContainsPhrase reports whether needle occurs in haystack on token boundaries.
// Both arguments must already be normalized.
func ContainsPhrase(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(" "+haystack+" ", " "+needle+" ")
}
