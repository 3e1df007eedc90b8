package analyzer

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/tweet-geoparser/internal/domain"
	"github.com/couchcryptid/tweet-geoparser/internal/gazetteer"
	"github.com/couchcryptid/tweet-geoparser/internal/geometry"
	"github.com/couchcryptid/tweet-geoparser/internal/timezone"
)

// Geoname ids used across the fixtures.
const (
	idEurope       = 6255148
	idAsia         = 6255147
	idNorthAmerica = 6255149

	idJapan       = 1861060
	idNetherlands = 2750405
	idFrance      = 3017382
	idMexico      = 3996063
	idUS          = 6252001
	idUK          = 2635167

	idTokyo      = 1850147
	idAmsterdam  = 2759794
	idUtrecht    = 2745912
	idParis      = 2988507
	idTinyParis  = 999001
	idMexicoCity = 3530597
	idNewYork    = 5128581
	idYork       = 2633352
)

func coord(lon, lat float64) *domain.Coordinate {
	return &domain.Coordinate{Lon: lon, Lat: lat}
}

func town(id int64, name string, pop int64, c *domain.Coordinate, country int64, tz string) domain.Entry {
	return domain.Entry{
		GeonameID: id, Name: name, FeatureCode: "PPL", Population: pop,
		Coordinate: c, CountryGeonameID: country, Timezone: tz,
		Languages: []string{"general"}, Translations: 10,
	}
}

func country(id int64, name string, pop int64) domain.Entry {
	return domain.Entry{
		GeonameID: id, Name: name, FeatureCode: "PCLI", Population: pop,
		CountryGeonameID: id, Languages: []string{"general"}, Translations: 200,
	}
}

// fakeIndex is an in-memory gazetteer index.
type fakeIndex struct {
	docs    map[string][]domain.Entry
	lookups int
	err     error
}

func (f *fakeIndex) Lookup(_ context.Context, names []string) (map[string][]domain.Entry, error) {
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	found := make(map[string][]domain.Entry)
	for _, name := range names {
		if entries, ok := f.docs[name]; ok {
			found[name] = append([]domain.Entry(nil), entries...)
		}
	}
	return found, nil
}

func testIndex() *fakeIndex {
	tokyo := town(idTokyo, "tokyo", 8_336_599, coord(139.6917, 35.6895), idJapan, "Asia/Tokyo")
	tokyo.FeatureCode = "PPLC"
	tokyo.Translations = 120

	amsterdam := town(idAmsterdam, "amsterdam", 741_636, coord(4.8897, 52.374), idNetherlands, "Europe/Amsterdam")
	utrecht := town(idUtrecht, "utrecht", 290_529, coord(5.1214, 52.0907), idNetherlands, "Europe/Amsterdam")

	paris := town(idParis, "paris", 2_138_551, coord(2.3488, 48.8534), idFrance, "Europe/Paris")
	paris.FeatureCode = "PPLC"
	paris.Translations = 150
	tinyParis := town(idTinyParis, "paris", 200, coord(-95.55, 33.66), idUS, "America/Chicago")

	mexicoCity := town(idMexicoCity, "mexico", 12_294_193, coord(-99.1277, 19.4285), idMexico, "America/Mexico_City")
	mexicoCity.FeatureCode = "PPLC"
	mexicoCity.Translations = 80

	newYork := town(idNewYork, "new york", 8_175_133, coord(-74.006, 40.7143), idUS, "America/New_York")
	newYork.Translations = 140
	york := town(idYork, "york", 153_717, coord(-1.0815, 53.9599), idUK, "Europe/London")

	mexico := country(idMexico, "mexico", 130_000_000)
	france := country(idFrance, "france", 67_000_000)
	netherlands := country(idNetherlands, "netherlands", 17_000_000)

	return &fakeIndex{docs: map[string][]domain.Entry{
		"tokyo":       {tokyo},
		"amsterdam":   {amsterdam},
		"utrecht":     {utrecht},
		"paris":       {paris, tinyParis},
		"mexico":      {mexico, mexicoCity},
		"new york":    {newYork},
		"york":        {york},
		"france":      {france},
		"netherlands": {netherlands},
	}}
}

func testReference() *gazetteer.Reference {
	ref := gazetteer.NewReference()
	ref.CountryToContinents[idJapan] = []int64{idAsia}
	ref.CountryToContinents[idNetherlands] = []int64{idEurope}
	ref.CountryToContinents[idFrance] = []int64{idEurope}
	ref.CountryToContinents[idMexico] = []int64{idNorthAmerica}
	ref.CountryToContinents[idUS] = []int64{idNorthAmerica}
	ref.CountryToContinents[idUK] = []int64{idEurope}

	for _, name := range []string{"mexico", "france", "netherlands", "japan"} {
		ref.CountryNames[name] = struct{}{}
	}

	nl := country(idNetherlands, "netherlands", 17_000_000)
	nl.Type = domain.TypeCountry
	ref.AdmNames["netherlands"] = []domain.Entry{nl}
	fr := country(idFrance, "france", 67_000_000)
	fr.Type = domain.TypeCountry
	ref.AdmNames["france"] = []domain.Entry{fr}

	ref.CommonWords["en"] = map[string]struct{}{
		"love": {}, "with": {}, "that": {}, "this": {}, "heavy": {}, "here": {},
	}
	ref.CommonWords["nl"] = map[string]struct{}{"heavy": {}}

	ref.SetTags("en", []string{"storm", "flooding"})
	ref.SetTags("nl", []string{"rains"})

	ref.TimezonesByCountry[idJapan] = map[string]struct{}{"Asia/Tokyo": {}}
	ref.TimezonesByCountry[idNetherlands] = map[string]struct{}{"Europe/Amsterdam": {}}
	ref.TimezonesByCountry[idFrance] = map[string]struct{}{"Europe/Paris": {}}
	ref.TimezonesByContinent[idEurope] = map[string]struct{}{
		"Europe/Amsterdam": {}, "Europe/Paris": {}, "Europe/London": {},
	}
	return ref
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAnalyzer(t *testing.T, index gazetteer.Index) *Analyzer {
	t.Helper()
	zones, err := timezone.NewResolver()
	require.NoError(t, err)
	a, err := New(index, testReference(), geometry.NewIndex(discardLogger()), zones, DefaultConfig(), discardLogger())
	require.NoError(t, err)
	return a
}
