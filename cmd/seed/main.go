// Command seed loads the gazetteer and reference data into the backing
// stores: the toponym documents into the Meilisearch index and the
// reference collections (countries, continents, adm1 ids, admin names,
// common words) into MongoDB.
//
// The input directory holds newline-delimited JSON produced by the
// GeoNames preparation step, one file per target collection:
//
//	go run ./cmd/seed -data-dir input/reference
//
// Connection settings come from the same environment variables as the
// service itself.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/tweet-geoparser/internal/adapter/mongo"
	"github.com/couchcryptid/tweet-geoparser/internal/config"
	"github.com/couchcryptid/tweet-geoparser/internal/gazetteer"
	"github.com/couchcryptid/tweet-geoparser/internal/observability"
)

// batchSize bounds the Meilisearch document batches.
const batchSize = 1000

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dataDir := flag.String("data-dir", "", "directory with reference NDJSON files")
	flag.Parse()
	if *dataDir == "" {
		flag.Usage()
		return fmt.Errorf("missing -data-dir")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg.LogLevel, "text")
	ctx := context.Background()

	store, err := mongo.NewStore(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	index, err := gazetteer.NewMeili(gazetteer.MeiliConfig{
		Host:      cfg.MeiliHost,
		APIKey:    cfg.MeiliKey,
		IndexName: cfg.MeiliIndex,
	}, logger)
	if err != nil {
		return err
	}

	collections := []string{
		mongo.CollCountries,
		mongo.CollContinents,
		mongo.CollAdm1,
		mongo.CollCountryNames,
		mongo.CollAdm1Names,
		mongo.CollCommonWords,
	}
	for _, collection := range collections {
		path := filepath.Join(*dataDir, collection+".ndjson")
		docs, err := readNDJSON(path)
		if err != nil {
			return err
		}
		if docs == nil {
			logger.Warn("reference file missing, collection left untouched", "collection", collection)
			continue
		}
		if err := store.ReplaceCollection(ctx, collection, docs); err != nil {
			return err
		}
		logger.Info("seeded collection", "collection", collection, "documents", len(docs))
	}

	return seedToponyms(ctx, index, filepath.Join(*dataDir, "toponyms.ndjson"), logger)
}

// seedToponyms streams the toponym documents into Meilisearch in batches.
func seedToponyms(ctx context.Context, index *gazetteer.Meili, path string, logger *slog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open toponyms: %w", err)
	}
	defer f.Close()

	if err := index.EnsureIndex(ctx); err != nil {
		return err
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<22)

	var batch []map[string]any
	total := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := index.AddDocuments(ctx, batch); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}
		var doc map[string]any
		if err := json.Unmarshal(text, &doc); err != nil {
			return fmt.Errorf("toponyms line %d: %w", line, err)
		}
		batch = append(batch, doc)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read toponyms: %w", err)
	}
	if err := flush(); err != nil {
		return err
	}
	logger.Info("seeded toponym index", "documents", total)
	return nil
}

// readNDJSON reads one document per line. A missing file returns nil
// without error so partial bundles can be seeded.
func readNDJSON(path string) ([]any, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<22)

	var docs []any
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}
		var doc map[string]any
		if err := json.Unmarshal(text, &doc); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", filepath.Base(path), line, err)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return docs, nil
}
