package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// SourceKeyEnv maps each country code to the env var holding its
// statistics-agency API key.
var SourceKeyEnv = map[string]string{
	"USA": "CENSUS_API_KEY",
	"CAN": "STATCAN_API_KEY",
	"GBR": "ONS_API_KEY",
	"AUS": "ABS_API_KEY",
	"DEU": "EUROSTAT_API_KEY",
	"NLD": "EUROSTAT_API_KEY",
}

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	StoreDriver string
	DatabaseURL string

	// Kafka mirror of persisted documents. Disabled when KafkaBrokers is empty.
	KafkaBrokers     []string
	KafkaTopic       string
	KafkaCollections []string

	RunInterval time.Duration
	RunOnStart  bool
	CatalogFile string

	// Remote acquisition configuration.
	SourceBaseURL   string
	SourceTimeout   time.Duration
	SourceCacheSize int
	SourceCacheTTL  time.Duration
	SourceAPIKeys   map[string]string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	runInterval, err := parseDuration("RUN_INTERVAL", "0s", true)
	if err != nil {
		return nil, err
	}
	sourceTimeout, err := parseDuration("SOURCE_TIMEOUT", "10s", false)
	if err != nil {
		return nil, err
	}
	sourceCacheTTL, err := parseDuration("SOURCE_CACHE_TTL", "0s", true)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		StoreDriver: strings.ToLower(sharedcfg.EnvOrDefault("STORE_DRIVER", StoreMemory)),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		KafkaTopic:       sharedcfg.EnvOrDefault("KAFKA_TOPIC", "city-livability"),
		KafkaCollections: splitList(sharedcfg.EnvOrDefault("KAFKA_COLLECTIONS", "score,etllog")),

		RunInterval: runInterval,
		RunOnStart:  os.Getenv("RUN_ON_START") == "true",
		CatalogFile: os.Getenv("CATALOG_FILE"),

		SourceBaseURL:   strings.TrimRight(os.Getenv("SOURCE_BASE_URL"), "/"),
		SourceTimeout:   sourceTimeout,
		SourceCacheSize: parsePositiveInt("SOURCE_CACHE_SIZE", 64),
		SourceCacheTTL:  sourceCacheTTL,
		SourceAPIKeys:   loadSourceKeys(),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}

	switch cfg.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("STORE_DRIVER is postgres but DATABASE_URL is not set")
		}
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q", cfg.StoreDriver)
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	if cfg.SourceBaseURL != "" {
		u, err := url.Parse(cfg.SourceBaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, errors.New("invalid SOURCE_BASE_URL")
		}
	}

	return cfg, nil
}

func parseDuration(key, def string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func loadSourceKeys() map[string]string {
	keys := make(map[string]string)
	for code, env := range SourceKeyEnv {
		if v := os.Getenv(env); v != "" {
			keys[code] = v
		}
	}
	return keys
}
