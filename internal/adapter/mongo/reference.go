package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/couchcryptid/tweet-geoparser/internal/domain"
	"github.com/couchcryptid/tweet-geoparser/internal/gazetteer"
	"github.com/couchcryptid/tweet-geoparser/internal/geometry"
)

// countryDoc mirrors the seeded countries collection.
type countryDoc struct {
	GeonameID  int64    `bson:"geonameid"`
	ISO2       string   `bson:"iso2"`
	Continents []int64  `bson:"continents"`
	Timezones  []string `bson:"time_zones"`
	WKT        string   `bson:"wkt"`
}

type continentDoc struct {
	GeonameID int64    `bson:"geonameid"`
	Timezones []string `bson:"time_zones"`
	WKT       string   `bson:"wkt"`
}

type adm1Doc struct {
	GeonameID int64 `bson:"geonameid"`
}

type nameDoc struct {
	Name      string         `bson:"name"`
	Locations []domain.Entry `bson:"locations"`
}

type commonWordDoc struct {
	Language string `bson:"language"`
	Rank     int    `bson:"n"`
	Word     string `bson:"word"`
}

// LoadReference assembles the scorer's reference data from the seeded
// collections. commonWordCount bounds the per-language common-word list.
func (s *Store) LoadReference(ctx context.Context, commonWordCount int) (*gazetteer.Reference, error) {
	ref := gazetteer.NewReference()

	var countries []countryDoc
	if err := s.loadAll(ctx, CollCountries, &countries); err != nil {
		return nil, err
	}
	for _, c := range countries {
		ref.CountryToContinents[c.GeonameID] = c.Continents
		if len(c.Timezones) > 0 {
			ref.TimezonesByCountry[c.GeonameID] = stringSet(c.Timezones)
		}
	}

	var continents []continentDoc
	if err := s.loadAll(ctx, CollContinents, &continents); err != nil {
		return nil, err
	}
	for _, c := range continents {
		if len(c.Timezones) > 0 {
			ref.TimezonesByContinent[c.GeonameID] = stringSet(c.Timezones)
		}
	}

	var adm1 []adm1Doc
	if err := s.loadAll(ctx, CollAdm1, &adm1); err != nil {
		return nil, err
	}
	for _, a := range adm1 {
		ref.Adm1IDs[a.GeonameID] = struct{}{}
	}

	var countryNames []nameDoc
	if err := s.loadAll(ctx, CollCountryNames, &countryNames); err != nil {
		return nil, err
	}
	for _, n := range countryNames {
		ref.CountryNames[n.Name] = struct{}{}
		ref.AdmNames[n.Name] = append(ref.AdmNames[n.Name], withName(n.Locations, n.Name)...)
	}

	var adm1Names []nameDoc
	if err := s.loadAll(ctx, CollAdm1Names, &adm1Names); err != nil {
		return nil, err
	}
	for _, n := range adm1Names {
		ref.AdmNames[n.Name] = append(ref.AdmNames[n.Name], withName(n.Locations, n.Name)...)
	}

	cursor, err := s.db.Collection(CollCommonWords).Find(
		ctx,
		bson.M{"n": bson.M{"$lte": commonWordCount}},
		options.Find().SetSort(bson.D{{Key: "language", Value: 1}, {Key: "n", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", CollCommonWords, err)
	}
	defer cursor.Close(ctx)
	for cursor.Next(ctx) {
		var doc commonWordDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode common word: %w", err)
		}
		words, ok := ref.CommonWords[doc.Language]
		if !ok {
			words = make(map[string]struct{})
			ref.CommonWords[doc.Language] = words
		}
		words[doc.Word] = struct{}{}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate common words: %w", err)
	}

	return ref, nil
}

// LoadAreas builds the geometry index from the stored country and
// continent outlines. Areas with unparseable outlines are skipped with a
// warning; their containment tests then report false.
func (s *Store) LoadAreas(ctx context.Context, logger *slog.Logger) (*geometry.Index, error) {
	index := geometry.NewIndex(logger)

	var countries []countryDoc
	if err := s.loadAll(ctx, CollCountries, &countries); err != nil {
		return nil, err
	}
	for _, c := range countries {
		if c.WKT == "" {
			continue
		}
		if err := index.AddWKT(c.GeonameID, c.WKT); err != nil {
			logger.Warn("skipping country outline", "geonameid", c.GeonameID, "error", err)
		}
	}

	var continents []continentDoc
	if err := s.loadAll(ctx, CollContinents, &continents); err != nil {
		return nil, err
	}
	for _, c := range continents {
		if c.WKT == "" {
			continue
		}
		if err := index.AddWKT(c.GeonameID, c.WKT); err != nil {
			logger.Warn("skipping continent outline", "geonameid", c.GeonameID, "error", err)
		}
	}

	return index, nil
}

func (s *Store) loadAll(ctx context.Context, collection string, out any) error {
	cursor, err := s.db.Collection(collection).Find(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("load %s: %w", collection, err)
	}
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", collection, err)
	}
	return nil
}

func stringSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func withName(entries []domain.Entry, name string) []domain.Entry {
	named := make([]domain.Entry, len(entries))
	for i, e := range entries {
		e.Name = name
		named[i] = e
	}
	return named
}
