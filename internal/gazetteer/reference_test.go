package gazetteer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/tweet-geoparser/internal/domain"
)

func TestTypeOf(t *testing.T) {
	ref := NewReference()
	ref.Adm1IDs[2750405] = struct{}{}

	tests := []struct {
		name     string
		entry    domain.Entry
		expected domain.LocationType
		ok       bool
	}{
		{"capital city", domain.Entry{FeatureCode: "PPLC"}, domain.TypeTown, true},
		{"plain town", domain.Entry{FeatureCode: "PPL"}, domain.TypeTown, true},
		{"first level admin", domain.Entry{FeatureCode: "ADM1"}, domain.TypeAdm1, true},
		{"second level admin", domain.Entry{FeatureCode: "ADM2"}, domain.TypeAdm1, true},
		{"adm1 by id membership", domain.Entry{GeonameID: 2750405, FeatureCode: "RGN"}, domain.TypeAdm1, true},
		{"country", domain.Entry{FeatureCode: "PCLI"}, domain.TypeCountry, true},
		{"continent", domain.Entry{FeatureCode: "CONT"}, domain.TypeContinent, true},
		{"section of place dropped", domain.Entry{FeatureCode: "PPLX"}, "", false},
		{"mountain dropped", domain.Entry{FeatureCode: "MT"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typed, ok := ref.TypeOf(tt.entry)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.expected, typed.Type)
			}
		})
	}
}

func TestParseTags(t *testing.T) {
	input := strings.NewReader("storm,en\nflooding, en\n# comment\n\nrains,nl\n")
	tags, err := ParseTags(input)
	require.NoError(t, err)

	assert.Equal(t, []string{"storm", "flooding"}, tags["en"])
	assert.Equal(t, []string{"rains"}, tags["nl"])
}

func TestParseTags_Malformed(t *testing.T) {
	_, err := ParseTags(strings.NewReader("justaword\n"))
	require.Error(t, err)
}

func TestSetTags_LongestFirst(t *testing.T) {
	ref := NewReference()
	ref.SetTags("en", []string{"rain", "hurricane", "storm"})

	tags, ok := ref.TagsFor("en")
	require.True(t, ok)
	assert.Equal(t, []string{"hurricane", "storm", "rain"}, tags)

	_, ok = ref.TagsFor("xx")
	assert.False(t, ok)
}

func TestDocumentID_Stable(t *testing.T) {
	assert.Equal(t, DocumentID("new york"), DocumentID("new york"))
	assert.NotEqual(t, DocumentID("new york"), DocumentID("york"))
	assert.NotContains(t, DocumentID("new york"), " ")
}
