package engine

import (
	"context"
	"log/slog"
	"time"

	apperrors "github.com/Anitha-22/myecommerce/pkg/errors"
	"github.com/Anitha-22/myecommerce/pkg/retry"
	"github.com/Anitha-22/myecommerce/services/search/internal/relevance"
)

// RetryConfig configures WithRetry.
type RetryConfig struct {
	// Attempts is the number of retries after the first call. Zero disables
	// retrying.
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

type retrySearcher struct {
	next   Searcher
	policy retry.Policy
	logger *slog.Logger
}

// WithRetry retries IndexUnavailable failures with jittered exponential
// backoff. QueryRejected and other errors are returned at once.
func WithRetry(next Searcher, cfg RetryConfig, logger *slog.Logger) Searcher {
	if cfg.Attempts <= 0 {
		return next
	}
	return &retrySearcher{
		next: next,
		policy: retry.Policy{
			Attempts:  cfg.Attempts + 1,
			BaseDelay: cfg.BaseDelay,
			MaxDelay:  cfg.MaxDelay,
			Retryable: apperrors.IsIndexUnavailable,
		},
		logger: logger,
	}
}

func (s *retrySearcher) Search(ctx context.Context, req *relevance.Request) (*Result, error) {
	var res *Result
	err := retry.Do(ctx, s.policy, s.logger, "search", func(ctx context.Context) error {
		var err error
		res, err = s.next.Search(ctx, req)
		return err
	})
	if err != nil {
		if ctx.Err() != nil && !apperrors.IsIndexUnavailable(err) {
			return nil, apperrors.IndexUnavailable(err)
		}
		return nil, err
	}
	return res, nil
}
