package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{"plain words", "big storm in tokyo", []string{"big", "storm", "in", "tokyo"}},
		{"hashtag kept whole", "#flood in paris", []string{"#flood", "in", "paris"}},
		{"punctuation split off", "storm, flood!", []string{"storm", ",", "flood", "!"}},
		{"emoji as single token", "rain 🌧 again", []string{"rain", "🌧", "again"}},
		{"hyphenated word", "south-west winds", []string{"south-west", "winds"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Tokenize(tt.text, false))
		})
	}
}

func TestTokenize_RemovePunctuation(t *testing.T) {
	assert.Equal(t, []string{"storm", "flood"}, Tokenize("storm, flood!", true))
}

func TestNgrams(t *testing.T) {
	tokens := []string{"new", "york", "flooding"}
	grams := Ngrams(tokens, 1, 3)

	assert.Equal(t, []string{
		"new", "york", "flooding",
		"new york", "york flooding",
		"new york flooding",
	}, grams)
}

func TestNgrams_DiscardsDigitsAndPunctuation(t *testing.T) {
	tokens := []string{"storm", "2day", ",", "paris"}
	grams := Ngrams(tokens, 1, 3)

	assert.Contains(t, grams, "storm")
	assert.Contains(t, grams, "paris")
	assert.NotContains(t, grams, "2day")
	assert.NotContains(t, grams, ",")
	assert.NotContains(t, grams, "storm 2day")
	assert.NotContains(t, grams, ", paris")
}

func TestNgrams_Deduplicates(t *testing.T) {
	grams := Ngrams([]string{"paris", "paris"}, 1, 2)
	assert.Equal(t, []string{"paris", "paris paris"}, grams)
}

func TestIsTitle(t *testing.T) {
	tests := []struct {
		s        string
		expected bool
	}{
		{"New York", true},
		{"Tokyo", true},
		{"new york", false},
		{"New york", false},
		{"NEW YORK", false},
		{"", false},
		{"123", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, IsTitle(tt.s), "IsTitle(%q)", tt.s)
	}
}

func TestSentenceLeads(t *testing.T) {
	leads := SentenceLeads("Big storm. Paris is wet! really")
	assert.Contains(t, leads, "big")
	assert.Contains(t, leads, "paris")
	assert.Contains(t, leads, "really")
	assert.NotContains(t, leads, "storm")
	assert.NotContains(t, leads, "wet")
}

func TestLowerRunes(t *testing.T) {
	assert.Equal(t, "école, utrecht", LowerRunes("École, Utrecht"))
	assert.Equal(t, len([]rune("École")), len([]rune(LowerRunes("École"))))
}
