// Package service runs the search pipeline: extract price phrases, build
// the relevance query, execute it and project the hits into a page.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	apperrors "github.com/Anitha-22/myecommerce/pkg/errors"
	"github.com/Anitha-22/myecommerce/pkg/logger"
	"github.com/Anitha-22/myecommerce/pkg/pagination"
	"github.com/Anitha-22/myecommerce/pkg/tracing"
	"github.com/Anitha-22/myecommerce/pkg/validator"
	"github.com/Anitha-22/myecommerce/services/search/internal/domain"
	"github.com/Anitha-22/myecommerce/services/search/internal/engine"
	"github.com/Anitha-22/myecommerce/services/search/internal/pricephrase"
	"github.com/Anitha-22/myecommerce/services/search/internal/relevance"
)

// ErrMissingQuery is the message returned when q is absent or blank.
const ErrMissingQuery = "Search query 'q' is required."

const tracerName = "search/service"

var (
	searchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "search_requests_total",
		Help: "Search pipeline executions by outcome.",
	}, []string{"outcome"})

	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "search_duration_seconds",
		Help:    "Time spent executing a search against the index.",
		Buckets: prometheus.DefBuckets,
	})

	searchHits = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "search_total_matches",
		Help:    "Total matches reported per search.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})
)

// DefaultMaxResultWindow matches the index engines' default from+size cap.
const DefaultMaxResultWindow = 10000

// Config tunes the search pipeline.
type Config struct {
	Timeout      time.Duration
	DefaultLimit int
	MaxLimit     int
	// MaxResultWindow is the deepest hit a page may reach. Pages past it
	// only count matches.
	MaxResultWindow int
}

// SearchService implements the search endpoint's business logic.
type SearchService struct {
	searcher engine.Searcher
	cfg      Config
	logger   *slog.Logger
}

// NewSearchService creates a search service over searcher.
func NewSearchService(searcher engine.Searcher, cfg Config, logger *slog.Logger) *SearchService {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = pagination.DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = pagination.MaxLimit
	}
	if cfg.MaxResultWindow <= 0 {
		cfg.MaxResultWindow = DefaultMaxResultWindow
	}
	return &SearchService{
		searcher: searcher,
		cfg:      cfg,
		logger:   logger,
	}
}

// Search answers one search request.
func (s *SearchService) Search(ctx context.Context, req domain.SearchRequest) (resp *domain.SearchResponse, err error) {
	ctx, span := tracing.Tracer(tracerName).Start(ctx, "SearchService.Search")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if strings.TrimSpace(req.RawQuery) == "" {
		searchesTotal.WithLabelValues("invalid").Inc()
		return nil, apperrors.InvalidInput(ErrMissingQuery)
	}
	req = s.normalize(req)
	if err := validator.Validate(req); err != nil {
		searchesTotal.WithLabelValues("invalid").Inc()
		return nil, apperrors.InvalidInput(err.Error())
	}

	parsed := pricephrase.Extract(req.RawQuery)
	beyond := s.beyondWindow(req)
	var query *relevance.Request
	if beyond {
		query = relevance.Build(parsed.KeywordText, parsed.MinPrice, parsed.MaxPrice, 0, 0)
	} else {
		query = relevance.Build(parsed.KeywordText, parsed.MinPrice, parsed.MaxPrice, req.Offset(), req.Limit)
	}

	span.SetAttributes(
		attribute.String("search.keyword", parsed.KeywordText),
		attribute.Bool("search.price_filter", parsed.HasPriceFilter()),
		attribute.Int("search.page", req.Page),
		attribute.Int("search.limit", req.Limit),
		attribute.Bool("search.beyond_window", beyond),
	)

	res, err := s.execute(ctx, query)
	if err != nil {
		searchesTotal.WithLabelValues(outcome(err)).Inc()
		return nil, err
	}

	hits := res.Hits
	if beyond {
		hits = nil
	}
	result := Project(hits, res.Total, req.Page, req.Limit)

	searchesTotal.WithLabelValues("ok").Inc()
	searchHits.Observe(float64(res.Total))
	span.SetAttributes(attribute.Int64("search.total", res.Total))
	s.logTopScores(ctx, req, parsed, res)

	return domain.NewSearchResponse(req.RawQuery, parsed, result), nil
}

// normalize fills in defaults for a missing or non-positive page and limit
// and caps limit.
func (s *SearchService) normalize(req domain.SearchRequest) domain.SearchRequest {
	if req.Page < 1 {
		req.Page = pagination.DefaultPage
	}
	if req.Limit < 1 {
		req.Limit = s.cfg.DefaultLimit
	}
	if req.Limit > s.cfg.MaxLimit {
		req.Limit = s.cfg.MaxLimit
	}
	return req
}

// beyondWindow reports whether page*limit exceeds MaxResultWindow.
// req must already be normalized.
func (s *SearchService) beyondWindow(req domain.SearchRequest) bool {
	return req.Page > s.cfg.MaxResultWindow/req.Limit
}

func (s *SearchService) execute(ctx context.Context, query *relevance.Request) (*engine.Result, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := s.searcher.Search(ctx, query)
	searchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !apperrors.IsIndexUnavailable(err) {
			return nil, apperrors.IndexUnavailable(err)
		}
		return nil, err
	}
	return res, nil
}

func (s *SearchService) logTopScores(ctx context.Context, req domain.SearchRequest, parsed domain.ParsedQuery, res *engine.Result) {
	l := logger.WithContext(ctx, s.logger)
	if !l.Enabled(ctx, slog.LevelDebug) {
		return
	}

	top := make([]float64, 0, 3)
	for i := 0; i < len(res.Hits) && i < 3; i++ {
		top = append(top, res.Hits[i].Score)
	}
	l.DebugContext(ctx, "search executed",
		slog.String("query", req.RawQuery),
		slog.String("keyword", parsed.KeywordText),
		slog.Int64("total", res.Total),
		slog.Int64("took_ms", res.TookMs),
		slog.Any("top_scores", top),
	)
}

func outcome(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrQueryRejected):
		return "rejected"
	case apperrors.IsIndexUnavailable(err):
		return "unavailable"
	default:
		return "error"
	}
}

// Project turns one page of engine hits into a SearchResult. Hit order is
// preserved and TotalPages is ceil(total / limit).
func Project(hits []domain.ProductHit, total int64, page, limit int) domain.SearchResult {
	if hits == nil {
		hits = []domain.ProductHit{}
	}
	return domain.SearchResult{
		Items:        hits,
		TotalMatches: total,
		Page:         page,
		Limit:        limit,
		TotalPages:   pagination.TotalPages(total, limit),
	}
}
