package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"

	apperrors "github.com/Anitha-22/myecommerce/pkg/errors"
	"github.com/Anitha-22/myecommerce/services/search/internal/relevance"
)

// BreakerConfig configures WithCircuitBreaker.
type BreakerConfig struct {
	// Name identifies the breaker in metrics and logs.
	Name string
	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32
	// Interval clears the failure counts while closed. Zero never clears.
	Interval time.Duration
	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration
	// FailureRatio trips the breaker once MinRequests have been seen.
	FailureRatio float64
	MinRequests  uint32
}

// DefaultBreakerConfig returns the defaults used when nothing is configured.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

var breakerState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "search_engine_circuit_breaker_state",
		Help: "State of the search engine circuit breaker (0=closed, 1=half-open, 2=open)",
	},
	[]string{"name"},
)

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// BreakerSearcher fails fast with IndexUnavailable while the engine keeps
// failing. Only IndexUnavailable errors count as failures; a rejected query
// says nothing about the engine's health.
type BreakerSearcher struct {
	next    Searcher
	breaker *gobreaker.CircuitBreaker[*Result]
	name    string
}

// WithCircuitBreaker wraps next in a circuit breaker.
func WithCircuitBreaker(next Searcher, cfg BreakerConfig, logger *slog.Logger) *BreakerSearcher {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !apperrors.IsIndexUnavailable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("search engine circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateValue(to))
		},
	}
	breakerState.WithLabelValues(cfg.Name).Set(0)

	return &BreakerSearcher{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[*Result](settings),
		name:    cfg.Name,
	}
}

// Search implements Searcher.
func (b *BreakerSearcher) Search(ctx context.Context, req *relevance.Request) (*Result, error) {
	res, err := b.breaker.Execute(func() (*Result, error) {
		return b.next.Search(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperrors.IndexUnavailable(fmt.Errorf("circuit breaker %s: %w", b.name, err))
		}
		return nil, err
	}
	return res, nil
}

// State returns the current breaker state.
func (b *BreakerSearcher) State() gobreaker.State {
	return b.breaker.State()
}
