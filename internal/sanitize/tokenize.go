package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

// punctuation is the ASCII punctuation set used for gram filtering.
const punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// tokenPattern splits normalized text tweet-style: hashtags and mentions
// stay whole, words keep internal apostrophes and hyphens, emoji become
// single tokens, and runs of other symbols collapse into one token.
var tokenPattern = regexp.MustCompile(`[#@][\p{L}\p{N}_]+` +
	`|[\p{L}\p{N}_]+(?:['’\x2D][\p{L}\p{N}_]+)*` +
	`|[\x{1F300}-\x{1F6FF}\x{1F900}-\x{1FAFF}\x{2600}-\x{27BF}]` +
	`|[^\p{L}\p{N}\s]+`)

// Tokenize splits text into tweet-aware tokens. With removePunctuation set,
// tokens consisting solely of ASCII punctuation are dropped.
func Tokenize(text string, removePunctuation bool) []string {
	tokens := tokenPattern.FindAllString(text, -1)
	if !removePunctuation {
		return tokens
	}
	kept := tokens[:0]
	for _, tok := range tokens {
		if !isPunctuationOnly(tok) {
			kept = append(kept, tok)
		}
	}
	return kept
}

// Ngrams produces the word n-grams of lengths [minN, maxN] over tokens,
// joined by single spaces, shorter grams first and each length in
// positional order, with duplicates removed.
// Grams containing any ASCII punctuation character or any digit are
// discarded; such grams never match a gazetteer name.
func Ngrams(tokens []string, minN, maxN int) []string {
	var grams []string
	seen := make(map[string]struct{})

	add := func(gram string) {
		if _, ok := seen[gram]; ok {
			return
		}
		if strings.ContainsAny(gram, punctuation) || containsDigit(gram) {
			return
		}
		seen[gram] = struct{}{}
		grams = append(grams, gram)
	}

	if minN == 1 {
		for _, tok := range tokens {
			add(tok)
		}
	}
	lo := minN
	if lo < 2 {
		lo = 2
	}
	for n := lo; n <= maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			add(strings.Join(tokens[i:i+n], " "))
		}
	}
	return grams
}

func isPunctuationOnly(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !strings.ContainsRune(punctuation, r) {
			return false
		}
	}
	return true
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
