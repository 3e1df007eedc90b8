// Command geotag runs the tweet geoparsing service: it scores messages
// from the store against the gazetteer, resolves toponyms over a sliding
// analysis window, and commits per-message location assignments.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/tweet-geoparser/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/tweet-geoparser/internal/adapter/kafka"
	mongoadapter "github.com/couchcryptid/tweet-geoparser/internal/adapter/mongo"
	redisadapter "github.com/couchcryptid/tweet-geoparser/internal/adapter/redis"
	"github.com/couchcryptid/tweet-geoparser/internal/analyzer"
	"github.com/couchcryptid/tweet-geoparser/internal/config"
	"github.com/couchcryptid/tweet-geoparser/internal/domain"
	"github.com/couchcryptid/tweet-geoparser/internal/driver"
	"github.com/couchcryptid/tweet-geoparser/internal/gazetteer"
	"github.com/couchcryptid/tweet-geoparser/internal/observability"
	"github.com/couchcryptid/tweet-geoparser/internal/resolver"
	"github.com/couchcryptid/tweet-geoparser/internal/timezone"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	store, err := mongoadapter.NewStore(connectCtx, cfg.MongoURI, cfg.MongoDatabase, logger)
	if err != nil {
		logger.Error("mongodb unavailable", "error", err)
		os.Exit(1)
	}

	index, err := gazetteer.NewMeili(gazetteer.MeiliConfig{
		Host:      cfg.MeiliHost,
		APIKey:    cfg.MeiliKey,
		IndexName: cfg.MeiliIndex,
	}, logger)
	if err != nil {
		logger.Error("meilisearch unavailable", "error", err)
		os.Exit(1)
	}

	ref, err := store.LoadReference(connectCtx, cfg.CommonWordCount)
	if err != nil {
		logger.Error("failed to load reference data", "error", err)
		os.Exit(1)
	}
	if err := loadTags(ref, cfg.TagsFile); err != nil {
		logger.Error("failed to load analysis tags", "error", err, "file", cfg.TagsFile)
		os.Exit(1)
	}

	areas, err := store.LoadAreas(connectCtx, logger)
	if err != nil {
		logger.Error("failed to load area outlines", "error", err)
		os.Exit(1)
	}
	logger.Info("reference data loaded", "areas", areas.Len(), "languages", len(ref.Tags))

	zones, err := timezone.NewResolver()
	if err != nil {
		logger.Error("failed to load timezone data", "error", err)
		os.Exit(1)
	}

	scorer, err := analyzer.New(index, ref, areas, zones, analyzer.Config{
		Weights:                     domain.DefaultWeights(),
		MinPopulationCapitalized:    cfg.MinPopulationCapitalized,
		MinPopulationNonCapitalized: cfg.MinPopulationNonCapitalized,
		UserHomeCacheSize:           cfg.UserHomeCacheSize,
	}, logger)
	if err != nil {
		logger.Error("failed to build analyzer", "error", err)
		os.Exit(1)
	}

	var exporter driver.ResolutionExporter
	var redisExporter *redisadapter.Exporter
	if cfg.Realtime {
		redisExporter, err = redisadapter.NewExporter(connectCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.ResolutionTableKey, logger)
		if err != nil {
			logger.Error("redis unavailable", "error", err)
			os.Exit(1)
		}
		exporter = redisExporter
	}

	analysisStart := cfg.AnalysisStart
	if analysisStart.IsZero() {
		analysisStart = clock.Now().Add(-cfg.AnalysisLength)
		logger.Info("no analysis start configured, starting one window back", "start", analysisStart)
	}

	d := driver.New(
		scorer,
		resolver.New(cfg.ResolutionThreshold, logger),
		store,
		store,
		exporter,
		clock,
		driver.Config{
			Start:           analysisStart,
			End:             cfg.AnalysisEnd,
			TimestepLength:  cfg.TimestepLength,
			AnalysisLength:  cfg.AnalysisLength,
			Realtime:        cfg.Realtime,
			RealtimeRefresh: cfg.RealtimeRefresh,
		},
		logger,
		metrics,
	)

	srv := httpadapter.NewServer(cfg.HTTPAddr, d, logger)

	var intake *kafkaadapter.Reader
	if cfg.IntakeEnabled {
		intake = kafkaadapter.NewReader(cfg, store, logger, metrics)
		go func() {
			if err := intake.Run(ctx); err != nil {
				logger.Error("intake consumer error", "error", err)
			}
		}()
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := d.Run(ctx); err != nil {
			logger.Error("driver error", "error", err)
		}
		stop()
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if intake != nil {
		if err := intake.Close(); err != nil {
			logger.Error("intake close error", "error", err)
		}
	}
	if redisExporter != nil {
		if err := redisExporter.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}
	if err := store.Close(shutdownCtx); err != nil {
		logger.Error("mongodb close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// loadTags reads the tag file into the reference set.
func loadTags(ref *gazetteer.Reference, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	byLang, err := gazetteer.ParseTags(f)
	if err != nil {
		return err
	}
	for lang, tags := range byLang {
		ref.SetTags(lang, tags)
	}
	return nil
}
