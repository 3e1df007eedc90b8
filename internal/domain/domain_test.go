package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBBoxCenter(t *testing.T) {
	b := BBox{West: 4.7, South: 52.2, East: 5.1, North: 52.5}
	c := b.Center()
	assert.InDelta(t, 4.9, c.Lon, 1e-9)
	assert.InDelta(t, 52.35, c.Lat, 1e-9)
}

func TestMessageValid(t *testing.T) {
	valid := Message{ID: "1", Language: "en", Timestamp: time.Now()}
	assert.True(t, valid.Valid())

	assert.False(t, Message{Language: "en", Timestamp: time.Now()}.Valid())
	assert.False(t, Message{ID: "1", Timestamp: time.Now()}.Valid())
	assert.False(t, Message{ID: "1", Language: "en"}.Valid())
}

func TestLocationTypeSizeRank(t *testing.T) {
	assert.Less(t, TypeContinent.SizeRank(), TypeCountry.SizeRank())
	assert.Less(t, TypeCountry.SizeRank(), TypeAdm1.SizeRank())
	assert.Less(t, TypeAdm1.SizeRank(), TypeTown.SizeRank())
	assert.Greater(t, LocationType("other").SizeRank(), TypeTown.SizeRank())
}

func TestEntryLanguageHelpers(t *testing.T) {
	e := Entry{Languages: []string{"abbr", "nl"}, Abbreviations: []string{"NY", "N.Y."}}

	assert.True(t, e.HasLanguage("nl"))
	assert.False(t, e.HasLanguage("en"))
	assert.True(t, e.IsAbbreviation())
	assert.True(t, e.HasAbbreviation("NY"))
	assert.False(t, e.HasAbbreviation("ny"))

	general := Entry{Languages: []string{"general"}}
	assert.True(t, general.HasLanguage("anything"))
	assert.False(t, general.IsAbbreviation())
}

func TestScoresGet(t *testing.T) {
	s := Scores{Coordinates: 2, BBox: 2, UTCOffset: 0.5, UserHome: 1, Family: 3}
	total := 0.0
	for _, scoreType := range ScoreTypes {
		total += s.Get(scoreType)
	}
	assert.Equal(t, 8.5, total)
}

func TestRoundScore(t *testing.T) {
	assert.Equal(t, 0.333, RoundScore(1.0/3.0))
	assert.Equal(t, 2.0, RoundScore(2))
}
