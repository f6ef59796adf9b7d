package app

import (
	"fmt"
	"log/slog"

	"github.com/Anitha-22/myecommerce/services/search/internal/cache"
	"github.com/Anitha-22/myecommerce/services/search/internal/config"
	"github.com/Anitha-22/myecommerce/services/search/internal/engine"
	bleveengine "github.com/Anitha-22/myecommerce/services/search/internal/engine/bleve"
	esengine "github.com/Anitha-22/myecommerce/services/search/internal/engine/elasticsearch"
	osengine "github.com/Anitha-22/myecommerce/services/search/internal/engine/opensearch"
)

// NewEngine builds the backend selected by SEARCH_ENGINE. The returned
// close function releases local resources and is never nil.
func NewEngine(cfg *config.Config, logger *slog.Logger) (engine.SearchEngine, func() error, error) {
	noop := func() error { return nil }

	switch cfg.SearchEngine {
	case config.EngineElasticsearch:
		eng, err := esengine.New(esengine.Config{
			Addresses: cfg.ElasticsearchURLs,
			Username:  cfg.ElasticsearchUsername,
			Password:  cfg.ElasticsearchPassword,
			Index:     cfg.SearchIndex,
		}, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("init elasticsearch engine: %w", err)
		}
		logger.Info("elasticsearch search engine initialized",
			slog.Any("urls", cfg.ElasticsearchURLs),
			slog.String("index", cfg.SearchIndex),
		)
		return eng, noop, nil

	case config.EngineOpenSearch:
		eng, err := osengine.New(osengine.Config{
			Addresses: cfg.OpenSearchURLs,
			Username:  cfg.OpenSearchUsername,
			Password:  cfg.OpenSearchPassword,
			Index:     cfg.SearchIndex,
		}, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("init opensearch engine: %w", err)
		}
		logger.Info("opensearch search engine initialized",
			slog.Any("urls", cfg.OpenSearchURLs),
			slog.String("index", cfg.SearchIndex),
		)
		return eng, noop, nil

	case config.EngineBleve:
		var (
			eng *bleveengine.Engine
			err error
		)
		if cfg.BlevePath == "" {
			eng, err = bleveengine.NewMemory(logger)
		} else {
			eng, err = bleveengine.Open(cfg.BlevePath, logger)
		}
		if err != nil {
			return nil, noop, fmt.Errorf("init bleve engine: %w", err)
		}
		logger.Info("bleve search engine initialized", slog.String("path", cfg.BlevePath))
		return eng, eng.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown search engine %q", cfg.SearchEngine)
	}
}

// NewSearcher decorates eng for the read path: cache, then retry, then the
// circuit breaker, then the engine. kv may be nil when caching is off.
func NewSearcher(eng engine.SearchEngine, kv cache.KV, cfg *config.Config, logger *slog.Logger) engine.Searcher {
	var s engine.Searcher = eng

	if cfg.BreakerEnabled {
		bc := engine.DefaultBreakerConfig(eng.Name())
		bc.Timeout = cfg.BreakerTimeout
		bc.FailureRatio = cfg.BreakerFailureRatio
		bc.MinRequests = cfg.BreakerMinRequests
		s = engine.WithCircuitBreaker(s, bc, logger)
	}

	s = engine.WithRetry(s, engine.RetryConfig{
		Attempts:  cfg.RetryAttempts,
		BaseDelay: cfg.RetryBaseDelay,
		MaxDelay:  cfg.RetryMaxDelay,
	}, logger)

	if cfg.CacheEnabled && kv != nil {
		s = cache.New(s, kv, cfg.SearchIndex, cfg.CacheTTL, logger)
	}
	return s
}
