// Package cache memoizes search results in Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/Anitha-22/myecommerce/services/search/internal/engine"
	"github.com/Anitha-22/myecommerce/services/search/internal/relevance"
)

const keyPrefix = "search:"

var lookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "search_cache_lookups_total",
	Help: "Search result cache lookups by outcome.",
}, []string{"outcome"})

// KV is the subset of the Redis client the cache uses.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Searcher serves repeated requests from Redis and delegates misses to next.
// Redis failures are logged and never fail the search.
type Searcher struct {
	next   engine.Searcher
	client KV
	index  string
	ttl    time.Duration
	logger *slog.Logger
}

// New wraps next with a result cache scoped to index.
func New(next engine.Searcher, client KV, index string, ttl time.Duration, logger *slog.Logger) *Searcher {
	return &Searcher{
		next:   next,
		client: client,
		index:  index,
		ttl:    ttl,
		logger: logger,
	}
}

// Search implements engine.Searcher.
func (s *Searcher) Search(ctx context.Context, req *relevance.Request) (*engine.Result, error) {
	key, err := s.key(req)
	if err != nil {
		return s.next.Search(ctx, req)
	}

	if res, ok := s.get(ctx, key); ok {
		lookups.WithLabelValues("hit").Inc()
		return res, nil
	}
	lookups.WithLabelValues("miss").Inc()

	res, err := s.next.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	s.set(ctx, key, res)
	return res, nil
}

// key hashes the index name with the rendered query body.
func (s *Searcher) key(req *relevance.Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	sum := sha256.New()
	sum.Write([]byte(s.index))
	sum.Write([]byte{0})
	sum.Write(body)
	return keyPrefix + hex.EncodeToString(sum.Sum(nil)), nil
}

func (s *Searcher) get(ctx context.Context, key string) (*engine.Result, bool) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			lookups.WithLabelValues("error").Inc()
			s.logger.WarnContext(ctx, "search cache read failed", slog.String("error", err.Error()))
		}
		return nil, false
	}

	var res engine.Result
	if err := json.Unmarshal(data, &res); err != nil {
		s.logger.WarnContext(ctx, "discarding malformed cache entry",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	return &res, true
}

func (s *Searcher) set(ctx context.Context, key string, res *engine.Result) {
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.logger.WarnContext(ctx, "search cache write failed", slog.String("error", err.Error()))
	}
}
