package gazetteer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/meilisearch/meilisearch-go"

	"github.com/couchcryptid/tweet-geoparser/internal/domain"
)

// MeiliConfig holds the connection settings for the toponym index.
type MeiliConfig struct {
	Host      string
	APIKey    string
	IndexName string
}

// Meili implements Index against a Meilisearch toponym index. Documents are
// keyed by a digest of the surface form (Meilisearch ids disallow spaces)
// and filtered on the exact name attribute, so lookups are exact-match, not
// fuzzy search.
type Meili struct {
	client    meilisearch.ServiceManager
	indexName string
	logger    *slog.Logger
}

// NewMeili connects to Meilisearch and verifies it is reachable.
func NewMeili(cfg MeiliConfig, logger *slog.Logger) (*Meili, error) {
	var opts []meilisearch.Option
	if cfg.APIKey != "" {
		opts = append(opts, meilisearch.WithAPIKey(cfg.APIKey))
	}
	client := meilisearch.New(cfg.Host, opts...)
	if _, err := client.Health(); err != nil {
		return nil, fmt.Errorf("connect meilisearch: %w", err)
	}
	return &Meili{client: client, indexName: cfg.IndexName, logger: logger}, nil
}

// DocumentID derives the Meilisearch document id for a surface form.
func DocumentID(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:16])
}

// toponymDoc is the stored index document: one per unique name, holding all
// gazetteer entries matching that name.
type toponymDoc struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Locations []toponymLocation `json:"locations"`
}

type toponymLocation struct {
	GeonameID        int64     `json:"geonameid"`
	FeatureCode      string    `json:"feature_code"`
	FeatureClass     string    `json:"feature_class,omitempty"`
	Population       int64     `json:"population"`
	Coordinates      []float64 `json:"coordinates,omitempty"` // (lon, lat)
	CountryGeonameID int64     `json:"country_geonameid"`
	Adm1GeonameID    int64     `json:"adm1_geonameid"`
	Timezone         string    `json:"time_zone,omitempty"`
	Languages        []string  `json:"iso_language"`
	Abbreviations    []string  `json:"abbreviations,omitempty"`
	Translations     int       `json:"translations"`
}

// Lookup fetches the entries for each surface form in one multi-search
// round trip. Names without a document are omitted from the result.
func (m *Meili) Lookup(ctx context.Context, names []string) (map[string][]domain.Entry, error) {
	if len(names) == 0 {
		return map[string][]domain.Entry{}, nil
	}

	queries := make([]*meilisearch.SearchRequest, len(names))
	for i, name := range names {
		queries[i] = &meilisearch.SearchRequest{
			IndexUID: m.indexName,
			Query:    "",
			Filter:   fmt.Sprintf(`name = "%s"`, escapeFilterValue(name)),
			Limit:    1,
		}
	}

	resp, err := m.client.MultiSearchWithContext(ctx, &meilisearch.MultiSearchRequest{Queries: queries})
	if err != nil {
		return nil, fmt.Errorf("toponym lookup: %w", err)
	}
	if len(resp.Results) != len(names) {
		return nil, fmt.Errorf("toponym lookup: got %d results for %d queries", len(resp.Results), len(names))
	}

	found := make(map[string][]domain.Entry)
	for i, result := range resp.Results {
		if len(result.Hits) == 0 {
			continue
		}
		doc, err := decodeHit(result.Hits[0])
		if err != nil {
			m.logger.Warn("undecodable toponym document", "name", names[i], "error", err)
			continue
		}
		entries := doc.entries(names[i])
		if len(entries) > 0 {
			found[names[i]] = entries
		}
	}
	return found, nil
}

func decodeHit(hit any) (toponymDoc, error) {
	raw, err := json.Marshal(hit)
	if err != nil {
		return toponymDoc{}, err
	}
	var doc toponymDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return toponymDoc{}, err
	}
	return doc, nil
}

func (d toponymDoc) entries(name string) []domain.Entry {
	entries := make([]domain.Entry, 0, len(d.Locations))
	for _, loc := range d.Locations {
		entry := domain.Entry{
			GeonameID:        loc.GeonameID,
			Name:             name,
			FeatureCode:      loc.FeatureCode,
			FeatureClass:     loc.FeatureClass,
			Population:       loc.Population,
			CountryGeonameID: loc.CountryGeonameID,
			Adm1GeonameID:    loc.Adm1GeonameID,
			Timezone:         loc.Timezone,
			Languages:        loc.Languages,
			Abbreviations:    loc.Abbreviations,
			Translations:     loc.Translations,
		}
		if len(loc.Coordinates) == 2 {
			entry.Coordinate = &domain.Coordinate{Lon: loc.Coordinates[0], Lat: loc.Coordinates[1]}
		}
		entries = append(entries, entry)
	}
	return entries
}

func escapeFilterValue(v string) string {
	return strings.ReplaceAll(v, `"`, `\"`)
}

// EnsureIndex configures the toponym index for exact-name lookups. Called
// by the seeder before loading documents.
func (m *Meili) EnsureIndex(ctx context.Context) error {
	_, err := m.client.Index(m.indexName).UpdateSettingsWithContext(ctx, &meilisearch.Settings{
		FilterableAttributes: []string{"name"},
	})
	if err != nil {
		return fmt.Errorf("configure toponym index: %w", err)
	}
	return nil
}

// AddDocuments writes a batch of toponym documents, deriving each document
// id from its name.
func (m *Meili) AddDocuments(ctx context.Context, docs []map[string]any) error {
	for _, doc := range docs {
		name, ok := doc["name"].(string)
		if !ok || name == "" {
			return fmt.Errorf("toponym document without name: %v", doc)
		}
		doc["id"] = DocumentID(name)
	}
	if _, err := m.client.Index(m.indexName).AddDocumentsWithContext(ctx, docs, "id"); err != nil {
		return fmt.Errorf("add toponym documents: %w", err)
	}
	return nil
}
