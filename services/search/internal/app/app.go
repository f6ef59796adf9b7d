package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/Anitha-22/myecommerce/pkg/database"
	"github.com/Anitha-22/myecommerce/pkg/health"
	pkgkafka "github.com/Anitha-22/myecommerce/pkg/kafka"
	"github.com/Anitha-22/myecommerce/pkg/tracing"
	"github.com/Anitha-22/myecommerce/services/search/internal/cache"
	"github.com/Anitha-22/myecommerce/services/search/internal/config"
	"github.com/Anitha-22/myecommerce/services/search/internal/event"
	handler "github.com/Anitha-22/myecommerce/services/search/internal/handler/http"
	"github.com/Anitha-22/myecommerce/services/search/internal/indexer"
	"github.com/Anitha-22/myecommerce/services/search/internal/repository/postgres"
	"github.com/Anitha-22/myecommerce/services/search/internal/service"
)

const serviceName = "search-service"

// ErrCatalogDisabled is returned by reindex requests when no catalog
// database is configured.
var ErrCatalogDisabled = errors.New("catalog database is disabled")

// App wires together all dependencies and runs the search service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	syncer     *indexer.Syncer
	consumers  []*pkgkafka.Consumer
	dlq        *pkgkafka.DLQProducer
	pool       *pgxpool.Pool
	rdb        *redis.Client

	closeEngine    func() error
	shutdownTracer tracing.ShutdownFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.release()
		}
	}()

	a.shutdownTracer, err = tracing.InitTracer(ctx, tracing.Config{
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SampleRate:   cfg.OTelSampleRate,
		Enabled:      cfg.OTelEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	eng, closeEngine, err := NewEngine(cfg, logger)
	a.closeEngine = closeEngine
	if err != nil {
		return nil, err
	}

	healthHandler := health.NewHandler()
	healthHandler.Register(eng.Name(), eng.Ping)

	if cfg.CacheEnabled || cfg.KafkaEnabled {
		a.rdb, err = database.NewRedisClient(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		healthHandler.Register("redis", func(ctx context.Context) error {
			return a.rdb.Ping(ctx).Err()
		})
	}

	var kv cache.KV
	if a.rdb != nil {
		kv = a.rdb
	}
	searchService := service.NewSearchService(NewSearcher(eng, kv, cfg, logger), service.Config{
		Timeout:         cfg.SearchTimeout,
		DefaultLimit:    cfg.DefaultLimit,
		MaxLimit:        cfg.MaxLimit,
		MaxResultWindow: cfg.MaxWindow,
	}, logger)

	var trigger handler.SyncTrigger = disabledSync{}
	if cfg.PostgresEnabled {
		a.pool, err = database.NewPostgresPool(ctx, &cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, a.pool, serviceName); err != nil {
			logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
		}
		healthHandler.Register("postgres", a.pool.Ping)

		a.syncer = indexer.NewSyncer(postgres.NewCatalogRepository(a.pool), eng, indexer.Config{
			BatchSize:   cfg.SyncBatchSize,
			Concurrency: cfg.SyncConcurrency,
			RateLimit:   cfg.SyncRateLimit,
		}, logger)
		trigger = a.syncer
	}

	if cfg.KafkaEnabled {
		if a.syncer == nil {
			return nil, errors.New("kafka consumers need the catalog database: set POSTGRES_ENABLED=true")
		}
		a.initConsumers(a.syncer)
		healthHandler.Register("kafka", func(ctx context.Context) error {
			return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
		})
	}

	searchHandler := handler.NewSearchHandler(searchService, trigger, cfg.DefaultLimit, cfg.MaxLimit, logger)
	router := handler.NewRouter(searchHandler, healthHandler, handler.RouterConfig{
		AllowedOrigins: cfg.CORSOrigins,
		AdminCIDRs:     cfg.AdminCIDRs,
		RequestTimeout: cfg.RequestTimeout,
	}, logger)

	a.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

func (a *App) initConsumers(syncer *indexer.Syncer) {
	var store pkgkafka.IdempotencyStore = pkgkafka.NewMemoryIdempotencyStore(a.cfg.IdempotencyTTL)
	if a.rdb != nil {
		store = pkgkafka.NewRedisIdempotencyStore(a.rdb, "search:events", a.cfg.IdempotencyTTL)
	}

	a.dlq = pkgkafka.NewDLQProducer(a.cfg.KafkaBrokers, a.logger)
	handle := pkgkafka.IdempotentHandler(store, event.NewConsumer(syncer, a.logger).Handle, a.logger)

	for _, topic := range event.Topics() {
		a.consumers = append(a.consumers, pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:    a.cfg.KafkaBrokers,
			GroupID:    a.cfg.KafkaGroupID,
			Topic:      topic,
			MinBytes:   1,
			MaxBytes:   10e6, // 10 MB
			MaxRetries: a.cfg.KafkaMaxRetries,
		}, handle, a.logger, pkgkafka.WithDeadLetter(a.dlq)))
	}

	a.logger.Info("kafka consumers initialized",
		slog.Any("brokers", a.cfg.KafkaBrokers),
		slog.Int("topic_count", len(a.consumers)),
	)
}

// Run starts the HTTP server and Kafka consumers, blocking until ctx is
// canceled or a component fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	for _, c := range a.consumers {
		g.Go(func() error {
			if err := c.Start(gctx); err != nil {
				return fmt.Errorf("kafka consumer %s: %w", c.Topic(), err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutdown signal received")
		return a.Shutdown()
	})

	return g.Wait()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.syncer != nil {
		a.syncer.Stop()
		done := make(chan struct{})
		go func() {
			a.syncer.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			a.logger.Warn("background sync still running at shutdown")
		}
	}

	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.shutdownTracer(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown tracer: %w", err))
	}
	errs = append(errs, a.release())

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// release closes clients opened by NewApp.
func (a *App) release() error {
	var errs []error
	if a.dlq != nil {
		errs = append(errs, a.dlq.Close())
	}
	if a.rdb != nil {
		errs = append(errs, a.rdb.Close())
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.closeEngine != nil {
		errs = append(errs, a.closeEngine())
	}
	return errors.Join(errs...)
}

type disabledSync struct{}

func (disabledSync) Trigger(context.Context) (string, error) { return "", ErrCatalogDisabled }
func (disabledSync) Running() bool                            { return false }
