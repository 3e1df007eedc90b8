package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

// sentenceLeadPattern captures the first word of the text and of every
// sentence after a terminator.
var sentenceLeadPattern = regexp.MustCompile(`(?:^|[.!?:]\s)([\p{L}\p{N}_]+)`)

// IsTitle reports whether every cased word in s starts with an upper-case
// rune followed only by non-upper runes, and s contains at least one cased
// rune. Matches the title-case test used for capitalization filtering.
func IsTitle(s string) bool {
	cased := false
	prevCased := false
	for _, r := range s {
		switch {
		case unicode.IsUpper(r) || unicode.IsTitle(r):
			if prevCased {
				return false
			}
			prevCased = true
			cased = true
		case unicode.IsLower(r):
			if !prevCased {
				return false
			}
			cased = true
		default:
			prevCased = false
		}
	}
	return cased
}

// FirstUpper reports whether the first rune of s is upper-case.
func FirstUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r) || unicode.IsTitle(r)
	}
	return false
}

// AllWordsCapitalized reports whether every space-separated word of s starts
// with an upper-case rune.
func AllWordsCapitalized(s string) bool {
	for _, word := range strings.Split(s, " ") {
		if !FirstUpper(word) {
			return false
		}
	}
	return s != ""
}

// SentenceLeads returns the lower-cased first word of each sentence in text.
// Used to exempt sentence-initial words from the capitalization population
// filter: they are capitalized by grammar, not because they name a place.
func SentenceLeads(text string) map[string]struct{} {
	leads := make(map[string]struct{})
	for _, m := range sentenceLeadPattern.FindAllStringSubmatch(text, -1) {
		leads[strings.ToLower(m[1])] = struct{}{}
	}
	return leads
}

// LowerRunes lower-cases s rune by rune, preserving the rune count so that
// indexes computed on the lowered copy line up with the original.
func LowerRunes(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		runes[i] = unicode.ToLower(r)
	}
	return string(runes)
}

// RuneLen returns the number of runes in s.
func RuneLen(s string) int {
	return len([]rune(s))
}
