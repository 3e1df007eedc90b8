package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		preserveCase bool
		expected     string
	}{
		{"retweet marker and mention", "RT @JoeyClipstar: Bow wow signs", false, ": bow wow signs"},
		{"hashtag keeps word", "Big #storm in Tokyo", false, "big storm in tokyo"},
		{"scheme url removed", "flooding http://t.co/3w58p6Sbx2 everywhere", false, "flooding everywhere"},
		{"bare domain removed", "see example.com/a for details", false, "see for details"},
		{"html entity unescaped", "storm &amp; flood", false, "storm & flood"},
		{"camel case split", "NewYork is flooding", true, "New York is flooding"},
		{"underscore and apostrophe split", "Bow_Woooow s'Gravenhage", true, "Bow Woooow s Gravenhage"},
		{"all caps capitalized", "HUGE storm in TOKYO", true, "Huge storm in Tokyo"},
		{"whitespace collapsed", "  big \t storm \n here ", false, "big storm here"},
		{"empty", "", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.text, tt.preserveCase))
		})
	}
}

func TestNormalize_PreserveCase(t *testing.T) {
	assert.Equal(t, "Heavy rains in Utrecht", Normalize("Heavy rains in Utrecht", true))
	assert.Equal(t, "heavy rains in utrecht", Normalize("Heavy rains in Utrecht", false))
}

func TestCapitalizeAllUpper(t *testing.T) {
	assert.Equal(t, "Tokyo is Big", capitalizeAllUpper("TOKYO is BIG"))
	assert.Equal(t, "mixedCase stays", capitalizeAllUpper("mixedCase stays"))
}
