package config

import (
	"errors"
	"fmt"
	"time"

	pkgconfig "github.com/Anitha-22/myecommerce/pkg/config"
	"github.com/Anitha-22/myecommerce/pkg/database"
)

// Search engine backends.
const (
	EngineElasticsearch = "elasticsearch"
	EngineOpenSearch    = "opensearch"
	EngineBleve         = "bleve"
)

// Config holds all configuration for the search service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"SEARCH_HTTP_PORT" envDefault:"8010"`
	RequestTimeout  time.Duration `env:"SEARCH_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	AdminCIDRs      []string      `env:"ADMIN_ALLOWED_CIDRS" envDefault:"127.0.0.1/32,::1/128" envSeparator:","`

	// Search engine selection (elasticsearch, opensearch or bleve)
	SearchEngine string `env:"SEARCH_ENGINE" envDefault:"elasticsearch"`
	SearchIndex  string `env:"SEARCH_INDEX" envDefault:"products"`

	ElasticsearchURLs     []string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200" envSeparator:","`
	ElasticsearchUsername string   `env:"ELASTICSEARCH_USERNAME"`
	ElasticsearchPassword string   `env:"ELASTICSEARCH_PASSWORD"`

	OpenSearchURLs     []string `env:"OPENSEARCH_URL" envDefault:"http://localhost:9200" envSeparator:","`
	OpenSearchUsername string   `env:"OPENSEARCH_USERNAME"`
	OpenSearchPassword string   `env:"OPENSEARCH_PASSWORD"`

	// BlevePath is the on-disk index location; empty keeps it in memory.
	BlevePath string `env:"BLEVE_PATH"`

	// Search pipeline
	SearchTimeout  time.Duration `env:"SEARCH_TIMEOUT" envDefault:"5s"`
	DefaultLimit   int           `env:"SEARCH_DEFAULT_LIMIT" envDefault:"12"`
	MaxLimit       int           `env:"SEARCH_MAX_LIMIT" envDefault:"100"`
	MaxWindow      int           `env:"SEARCH_MAX_RESULT_WINDOW" envDefault:"10000"`
	RetryAttempts  int           `env:"SEARCH_RETRY_ATTEMPTS" envDefault:"0"`
	RetryBaseDelay time.Duration `env:"SEARCH_RETRY_BASE_DELAY" envDefault:"100ms"`
	RetryMaxDelay  time.Duration `env:"SEARCH_RETRY_MAX_DELAY" envDefault:"1s"`

	BreakerEnabled      bool          `env:"SEARCH_BREAKER_ENABLED" envDefault:"true"`
	BreakerTimeout      time.Duration `env:"SEARCH_BREAKER_TIMEOUT" envDefault:"30s"`
	BreakerFailureRatio float64       `env:"SEARCH_BREAKER_FAILURE_RATIO" envDefault:"0.5"`
	BreakerMinRequests  uint32        `env:"SEARCH_BREAKER_MIN_REQUESTS" envDefault:"5"`

	// Result cache
	CacheEnabled bool                 `env:"SEARCH_CACHE_ENABLED" envDefault:"false"`
	CacheTTL     time.Duration        `env:"SEARCH_CACHE_TTL" envDefault:"30s"`
	Redis        database.RedisConfig `envPrefix:"REDIS_"`

	// Catalog database
	PostgresEnabled bool                    `env:"POSTGRES_ENABLED" envDefault:"true"`
	Postgres        database.PostgresConfig `envPrefix:"POSTGRES_"`

	// Catalog sync
	SyncBatchSize   int     `env:"SYNC_BATCH_SIZE" envDefault:"500"`
	SyncConcurrency int     `env:"SYNC_CONCURRENCY" envDefault:"4"`
	SyncRateLimit   float64 `env:"SYNC_RATE_LIMIT" envDefault:"0"`

	// Kafka
	KafkaEnabled    bool          `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers    []string      `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaGroupID    string        `env:"KAFKA_GROUP_ID" envDefault:"search-service"`
	KafkaMaxRetries int           `env:"KAFKA_MAX_RETRIES" envDefault:"3"`
	IdempotencyTTL  time.Duration `env:"KAFKA_IDEMPOTENCY_TTL" envDefault:"24h"`

	// Tracing
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTLPEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load search config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	var errs []error

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP port: %d", c.HTTPPort))
	}

	switch c.SearchEngine {
	case EngineElasticsearch:
		if len(c.ElasticsearchURLs) == 0 {
			errs = append(errs, errors.New("ELASTICSEARCH_URL is required"))
		}
	case EngineOpenSearch:
		if len(c.OpenSearchURLs) == 0 {
			errs = append(errs, errors.New("OPENSEARCH_URL is required"))
		}
	case EngineBleve:
	default:
		errs = append(errs, fmt.Errorf("invalid SEARCH_ENGINE %q: must be elasticsearch, opensearch or bleve", c.SearchEngine))
	}

	if c.SearchIndex == "" {
		errs = append(errs, errors.New("SEARCH_INDEX is required"))
	}
	if c.SearchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SEARCH_TIMEOUT must be positive, got %s", c.SearchTimeout))
	}
	if c.DefaultLimit < 1 {
		errs = append(errs, fmt.Errorf("SEARCH_DEFAULT_LIMIT must be at least 1, got %d", c.DefaultLimit))
	}
	if c.MaxLimit < c.DefaultLimit {
		errs = append(errs, fmt.Errorf("SEARCH_MAX_LIMIT (%d) must not be below SEARCH_DEFAULT_LIMIT (%d)", c.MaxLimit, c.DefaultLimit))
	}
	if c.MaxWindow < c.MaxLimit {
		errs = append(errs, fmt.Errorf("SEARCH_MAX_RESULT_WINDOW (%d) must not be below SEARCH_MAX_LIMIT (%d)", c.MaxWindow, c.MaxLimit))
	}
	if c.RetryAttempts < 0 {
		errs = append(errs, fmt.Errorf("SEARCH_RETRY_ATTEMPTS must not be negative, got %d", c.RetryAttempts))
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		errs = append(errs, fmt.Errorf("SEARCH_BREAKER_FAILURE_RATIO must be in (0, 1], got %g", c.BreakerFailureRatio))
	}
	if c.CacheEnabled && c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("SEARCH_CACHE_TTL must be positive, got %s", c.CacheTTL))
	}
	if c.SyncBatchSize < 1 {
		errs = append(errs, fmt.Errorf("SYNC_BATCH_SIZE must be at least 1, got %d", c.SyncBatchSize))
	}
	if c.SyncConcurrency < 1 {
		errs = append(errs, fmt.Errorf("SYNC_CONCURRENCY must be at least 1, got %d", c.SyncConcurrency))
	}
	if c.SyncRateLimit < 0 {
		errs = append(errs, fmt.Errorf("SYNC_RATE_LIMIT must not be negative, got %g", c.SyncRateLimit))
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true"))
	}
	if c.OTelSampleRate < 0 || c.OTelSampleRate > 1 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLE_RATE must be in [0, 1], got %g", c.OTelSampleRate))
	}

	return errors.Join(errs...)
}
