package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/tweet-geoparser/internal/domain"
)

func TestParseUserHome_CountryOnly(t *testing.T) {
	a := newTestAnalyzer(t, testIndex())

	entries, err := a.ParseUserHome(context.Background(), "Netherlands")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(idNetherlands), entries[0].GeonameID)
	assert.Equal(t, domain.TypeCountry, entries[0].Type)
}

func TestParseUserHome_ChildParent(t *testing.T) {
	a := newTestAnalyzer(t, testIndex())

	entries, err := a.ParseUserHome(context.Background(), "Amsterdam, Netherlands")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(idAmsterdam), entries[0].GeonameID)
	assert.Equal(t, domain.TypeTown, entries[0].Type)
	assert.Equal(t, "amsterdam", entries[0].Name)
}

func TestParseUserHome_ChildOutsideParentFallsBack(t *testing.T) {
	a := newTestAnalyzer(t, testIndex())

	// Tokyo is not in France, so the parent alone stands.
	entries, err := a.ParseUserHome(context.Background(), "Tokyo, France")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(idFrance), entries[0].GeonameID)
}

func TestParseUserHome_SuffixMatchWithoutComma(t *testing.T) {
	a := newTestAnalyzer(t, testIndex())

	entries, err := a.ParseUserHome(context.Background(), "Amsterdam Netherlands")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(idAmsterdam), entries[0].GeonameID)
}

func TestParseUserHome_TownFallback(t *testing.T) {
	a := newTestAnalyzer(t, testIndex())

	entries, err := a.ParseUserHome(context.Background(), "Utrecht")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(idUtrecht), entries[0].GeonameID)
}

func TestParseUserHome_SmallTownRejected(t *testing.T) {
	index := testIndex()
	index.docs["middelpolder"] = []domain.Entry{
		town(5151, "middelpolder", 950, coord(4.8, 52.3), idNetherlands, ""),
	}
	a := newTestAnalyzer(t, index)

	entries, err := a.ParseUserHome(context.Background(), "Middelpolder")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParseUserHome_SlashSplitsPlaces(t *testing.T) {
	a := newTestAnalyzer(t, testIndex())

	entries, err := a.ParseUserHome(context.Background(), "Utrecht / Amsterdam")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	ids := []int64{entries[0].GeonameID, entries[1].GeonameID}
	assert.Contains(t, ids, int64(idUtrecht))
	assert.Contains(t, ids, int64(idAmsterdam))
}

func TestParseUserHome_TwoCommasReparsed(t *testing.T) {
	a := newTestAnalyzer(t, testIndex())

	entries, err := a.ParseUserHome(context.Background(), "Amsterdam, NH, Netherlands")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(idAmsterdam), entries[0].GeonameID)
}

func TestParseUserHome_TooManyCommas(t *testing.T) {
	a := newTestAnalyzer(t, testIndex())

	entries, err := a.ParseUserHome(context.Background(), "a, b, c, d")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParseUserHome_AbbreviationFilter(t *testing.T) {
	index := testIndex()
	a := newTestAnalyzer(t, index)

	ny := country(idUS, "ny", 320_000_000)
	ny.Type = domain.TypeCountry
	ny.Languages = []string{"abbr"}
	ny.Abbreviations = []string{"NY"}
	a.ref.AdmNames["ny"] = []domain.Entry{ny}

	// Upper-case "NY" matches the abbreviation; lower-case "ny" does not.
	entries, err := a.ParseUserHome(context.Background(), "NY")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entries, err = a.ParseUserHome(context.Background(), "ny")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParseUserHome_Memoized(t *testing.T) {
	index := testIndex()
	a := newTestAnalyzer(t, index)

	_, err := a.ParseUserHome(context.Background(), "Utrecht")
	require.NoError(t, err)
	callsAfterFirst := index.lookups

	_, err = a.ParseUserHome(context.Background(), "Utrecht")
	require.NoError(t, err)
	assert.Equal(t, callsAfterFirst, index.lookups)
}

func TestParseUserHome_Empty(t *testing.T) {
	a := newTestAnalyzer(t, testIndex())

	entries, err := a.ParseUserHome(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
