package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// maxCommonWords caps the per-language common-word list; the source word
// frequency lists carry no more entries.
const maxCommonWords = 10_000

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Toponym index (Meilisearch).
	MeiliHost  string
	MeiliKey   string
	MeiliIndex string

	// Message store, reference data, and commit sink (MongoDB).
	MongoURI      string
	MongoDatabase string

	// Toponym-resolution export table (Redis).
	RedisAddr          string
	RedisPassword      string
	ResolutionTableKey string

	// Realtime intake (Kafka). Disabled when no brokers are configured.
	KafkaBrokers     []string
	KafkaTweetsTopic string
	KafkaGroupID     string
	IntakeEnabled    bool

	// Analysis window.
	AnalysisStart   time.Time
	AnalysisEnd     time.Time // zero: no end, transition to realtime
	TimestepLength  time.Duration
	AnalysisLength  time.Duration
	Realtime        bool
	RealtimeRefresh time.Duration

	// Scoring.
	ResolutionThreshold         float64
	MinPopulationCapitalized    int64
	MinPopulationNonCapitalized int64
	CommonWordCount             int
	UserHomeCacheSize           int
	TagsFile                    string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := durationEnv("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	timestepLength, err := durationEnv("TIMESTEP_LENGTH", "10m")
	if err != nil {
		return nil, err
	}
	analysisLength, err := durationEnv("ANALYSIS_LENGTH", "24h")
	if err != nil {
		return nil, err
	}
	realtimeRefresh, err := durationEnv("REALTIME_REFRESH", "300s")
	if err != nil {
		return nil, err
	}

	threshold := 0.2
	if s := os.Getenv("RESOLUTION_THRESHOLD"); s != "" {
		v, parseErr := strconv.ParseFloat(s, 64)
		if parseErr != nil || v < 0 {
			return nil, errors.New("invalid RESOLUTION_THRESHOLD")
		}
		threshold = v
	}

	commonWords, err := intEnv("N_MOST_COMMON_WORDS", maxCommonWords)
	if err != nil {
		return nil, err
	}
	if commonWords > maxCommonWords {
		commonWords = maxCommonWords
	}

	minPopCapitalized, err := intEnv("MIN_POPULATION_CAPITALIZED", 1)
	if err != nil {
		return nil, err
	}
	minPopNonCapitalized, err := intEnv("MIN_POPULATION_NON_CAPITALIZED", 5000)
	if err != nil {
		return nil, err
	}
	homeCacheSize, err := intEnv("USER_HOME_CACHE_SIZE", 10_000)
	if err != nil {
		return nil, err
	}

	var analysisStart time.Time
	if s := os.Getenv("ANALYSIS_START"); s != "" {
		analysisStart, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("invalid ANALYSIS_START: %w", err)
		}
	}
	var analysisEnd time.Time
	if s := os.Getenv("ANALYSIS_END"); s != "" {
		analysisEnd, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("invalid ANALYSIS_END: %w", err)
		}
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	intakeEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_INTAKE_ENABLED"); v != "" {
		intakeEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		MeiliHost:  envOrDefault("MEILI_HOST", "http://localhost:7700"),
		MeiliKey:   os.Getenv("MEILI_API_KEY"),
		MeiliIndex: envOrDefault("MEILI_INDEX", "toponyms"),

		MongoURI:      envOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: envOrDefault("MONGO_DATABASE", "geotag"),

		RedisAddr:          envOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		ResolutionTableKey: envOrDefault("TOPONYM_RESOLUTION_KEY", "toponym_resolution_table"),

		KafkaBrokers:     brokers,
		KafkaTweetsTopic: envOrDefault("KAFKA_TWEETS_TOPIC", "raw-tweets"),
		KafkaGroupID:     envOrDefault("KAFKA_GROUP_ID", "tweet-geoparser"),
		IntakeEnabled:    intakeEnabled,

		AnalysisStart:   analysisStart,
		AnalysisEnd:     analysisEnd,
		TimestepLength:  timestepLength,
		AnalysisLength:  analysisLength,
		Realtime:        envOrDefault("REALTIME", "true") == "true",
		RealtimeRefresh: realtimeRefresh,

		ResolutionThreshold:         threshold,
		MinPopulationCapitalized:    int64(minPopCapitalized),
		MinPopulationNonCapitalized: int64(minPopNonCapitalized),
		CommonWordCount:             commonWords,
		UserHomeCacheSize:           homeCacheSize,
		TagsFile:                    envOrDefault("TAGS_FILE", "input/tags.txt"),
	}

	if cfg.AnalysisLength < cfg.TimestepLength {
		return nil, errors.New("ANALYSIS_LENGTH must be at least TIMESTEP_LENGTH")
	}
	if cfg.IntakeEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_INTAKE_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if !cfg.AnalysisEnd.IsZero() && !cfg.AnalysisStart.IsZero() && cfg.AnalysisEnd.Before(cfg.AnalysisStart) {
		return nil, errors.New("ANALYSIS_END precedes ANALYSIS_START")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key, fallback string) (time.Duration, error) {
	v, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func intEnv(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseBrokers(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	brokers := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}
