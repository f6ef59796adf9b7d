// Package indexer copies the relational catalog into the search index.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	apperrors "github.com/Anitha-22/myecommerce/pkg/errors"
	"github.com/Anitha-22/myecommerce/services/search/internal/engine"
	"github.com/Anitha-22/myecommerce/services/search/internal/repository"
)

// ErrSyncInProgress is returned by Trigger while a sync is running.
var ErrSyncInProgress = errors.New("sync already in progress")

// ErrSyncerStopped is returned by Trigger after Stop.
var ErrSyncerStopped = errors.New("syncer stopped")

var syncedDocuments = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "search_sync_documents_total",
	Help: "Documents written to the search index by the catalog sync.",
}, []string{"outcome"})

// Target is the part of a search engine the syncer writes to.
type Target interface {
	engine.Indexer
	EnsureIndex(ctx context.Context) error
}

// Config tunes a full sync.
type Config struct {
	BatchSize   int
	Concurrency int
	// RateLimit caps bulk requests per second. Zero means unlimited.
	RateLimit float64
}

// DefaultConfig returns batches of 500 with four concurrent writers.
func DefaultConfig() Config {
	return Config{BatchSize: 500, Concurrency: 4}
}

// SyncReport summarises one full sync.
type SyncReport struct {
	JobID    string                 `json:"job_id"`
	Total    int64                  `json:"total"`
	Batches  int                    `json:"batches"`
	Indexed  int                    `json:"indexed"`
	Failed   int                    `json:"failed"`
	Errors   []engine.BulkItemError `json:"errors,omitempty"`
	Duration time.Duration          `json:"duration"`
}

// Syncer indexes catalog products from the store.
type Syncer struct {
	store   repository.CatalogStore
	target  Target
	cfg     Config
	limiter *rate.Limiter
	logger  *slog.Logger

	running atomic.Bool
	jobs    sync.WaitGroup

	// stopped is canceled by Stop and bounds every background sync.
	stopped context.Context
	stop    context.CancelFunc
}

// NewSyncer creates a syncer. Non-positive settings fall back to DefaultConfig.
func NewSyncer(store repository.CatalogStore, target Target, cfg Config, logger *slog.Logger) *Syncer {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	stopped, stop := context.WithCancel(context.Background())
	return &Syncer{
		store:   store,
		target:  target,
		cfg:     cfg,
		limiter: limiter,
		logger:  logger,
		stopped: stopped,
		stop:    stop,
	}
}

// Run performs a full sync, creating the index first if it is missing.
// Batch failures abort the run; per-document failures are reported.
func (s *Syncer) Run(ctx context.Context) (*SyncReport, error) {
	return s.run(ctx, uuid.NewString())
}

func (s *Syncer) run(ctx context.Context, jobID string) (*SyncReport, error) {
	start := time.Now()
	logger := s.logger.With(slog.String("job_id", jobID))
	report := &SyncReport{JobID: jobID}

	if err := s.target.EnsureIndex(ctx); err != nil {
		return report, fmt.Errorf("ensure index: %w", err)
	}

	total, err := s.store.CountProducts(ctx)
	if err != nil {
		return report, fmt.Errorf("count products: %w", err)
	}
	report.Total = total
	report.Batches = int((total + int64(s.cfg.BatchSize) - 1) / int64(s.cfg.BatchSize))

	logger.InfoContext(ctx, "catalog sync started",
		slog.Int64("total", total),
		slog.Int("batches", report.Batches),
		slog.Int("concurrency", s.cfg.Concurrency),
	)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for i := 0; i < report.Batches; i++ {
		offset := i * s.cfg.BatchSize
		g.Go(func() error {
			if err := s.limiter.Wait(gctx); err != nil {
				return err
			}

			products, err := s.store.ListProducts(gctx, s.cfg.BatchSize, offset)
			if err != nil {
				return fmt.Errorf("list products at offset %d: %w", offset, err)
			}
			if len(products) == 0 {
				return nil
			}

			br, err := s.target.BulkIndex(gctx, products)
			if err != nil {
				return fmt.Errorf("bulk index at offset %d: %w", offset, err)
			}

			syncedDocuments.WithLabelValues("indexed").Add(float64(br.Indexed))
			syncedDocuments.WithLabelValues("failed").Add(float64(br.Failed))

			mu.Lock()
			report.Indexed += br.Indexed
			report.Failed += br.Failed
			report.Errors = append(report.Errors, br.Errors...)
			mu.Unlock()
			return nil
		})
	}

	err = g.Wait()
	report.Duration = time.Since(start)
	if err != nil {
		logger.ErrorContext(ctx, "catalog sync failed",
			slog.Int("indexed", report.Indexed),
			slog.String("error", err.Error()),
		)
		return report, err
	}

	logger.InfoContext(ctx, "catalog sync completed",
		slog.Int("indexed", report.Indexed),
		slog.Int("failed", report.Failed),
		slog.Duration("duration", report.Duration),
	)
	return report, nil
}

// Trigger starts a full sync in the background and returns its job ID.
// Only one sync runs at a time. The sync outlives ctx but not Stop.
func (s *Syncer) Trigger(ctx context.Context) (string, error) {
	if s.stopped.Err() != nil {
		return "", ErrSyncerStopped
	}
	if !s.running.CompareAndSwap(false, true) {
		return "", ErrSyncInProgress
	}

	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	release := context.AfterFunc(s.stopped, cancel)

	jobID := uuid.NewString()
	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		defer s.running.Store(false)
		defer cancel()
		defer release()
		_, _ = s.run(jobCtx, jobID)
	}()
	return jobID, nil
}

// Stop cancels any background sync and rejects new triggers. Call Wait
// afterwards to block until the canceled sync has returned.
func (s *Syncer) Stop() { s.stop() }

// Running reports whether a background sync is in progress.
func (s *Syncer) Running() bool { return s.running.Load() }

// Wait blocks until background syncs finish.
func (s *Syncer) Wait() { s.jobs.Wait() }

// SyncProduct re-reads one product from the store and indexes it. A product
// that no longer exists is removed from the index.
func (s *Syncer) SyncProduct(ctx context.Context, id int64) error {
	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.RemoveProduct(ctx, id)
		}
		return fmt.Errorf("sync product %d: %w", id, err)
	}

	if err := s.target.Index(ctx, *product); err != nil {
		return fmt.Errorf("sync product %d: %w", id, err)
	}
	syncedDocuments.WithLabelValues("indexed").Inc()

	s.logger.InfoContext(ctx, "product indexed", slog.Int64("product_id", id))
	return nil
}

// RemoveProduct deletes one product from the index.
func (s *Syncer) RemoveProduct(ctx context.Context, id int64) error {
	if err := s.target.Delete(ctx, strconv.FormatInt(id, 10)); err != nil {
		return fmt.Errorf("remove product %d: %w", id, err)
	}
	syncedDocuments.WithLabelValues("deleted").Inc()

	s.logger.InfoContext(ctx, "product removed from index", slog.Int64("product_id", id))
	return nil
}
