package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	apperrors "github.com/Anitha-22/myecommerce/pkg/errors"
	"github.com/Anitha-22/myecommerce/services/search/internal/domain"
	"github.com/Anitha-22/myecommerce/services/search/internal/engine"
	"github.com/Anitha-22/myecommerce/services/search/internal/relevance"
)

// Config holds the cluster connection settings.
type Config struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
	// Transport overrides the HTTP transport; nil uses the client default.
	Transport http.RoundTripper
}

// Engine is an Elasticsearch-backed engine.SearchEngine.
type Engine struct {
	client    *elasticsearch.Client
	indexName string
	logger    *slog.Logger
}

var _ engine.SearchEngine = (*Engine)(nil)

// esSearchResponse is the part of a search response the engine reads.
type esSearchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string                 `json:"_id"`
			Score  *float64               `json:"_score"`
			Source domain.ProductDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// esBulkResponse is used to collect per-item bulk failures.
type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

// esErrorResponse is the body Elasticsearch returns on failure.
type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New creates an engine. It does not contact the cluster; call EnsureIndex
// or Ping for that.
func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	indexName := cfg.Index
	if indexName == "" {
		indexName = engine.DefaultIndexName
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}

	return &Engine{
		client:    client,
		indexName: indexName,
		logger:    logger.With(slog.String("engine", "elasticsearch"), slog.String("index", indexName)),
	}, nil
}

// Name implements engine.SearchEngine.
func (e *Engine) Name() string { return "elasticsearch" }

// Ping checks whether the cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

// Search runs req against the index.
func (e *Engine) Search(ctx context.Context, req *relevance.Request) (*engine.Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, apperrors.IndexUnavailable(fmt.Errorf("elasticsearch search: %w", err))
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		reason := errorReason(res)
		if res.StatusCode == http.StatusBadRequest {
			e.logger.ErrorContext(ctx, "elasticsearch rejected query",
				slog.String("reason", reason),
				slog.String("query", string(body)),
			)
			return nil, apperrors.QueryRejected(reason)
		}
		return nil, apperrors.IndexUnavailable(fmt.Errorf("elasticsearch search: %s", reason))
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch search: decode response: %w", err)
	}

	hits := make([]domain.ProductHit, 0, len(esResp.Hits.Hits))
	for _, h := range esResp.Hits.Hits {
		hit := domain.ProductHit{ID: h.ID, ProductDocument: h.Source}
		if h.Score != nil {
			hit.Score = *h.Score
		}
		hits = append(hits, hit)
	}

	return &engine.Result{
		Hits:   hits,
		Total:  esResp.Hits.Total.Value,
		TookMs: esResp.Took,
	}, nil
}

// Index adds or replaces one product and refreshes the index.
func (e *Engine) Index(ctx context.Context, product domain.Product) error {
	data, err := json.Marshal(product.Document())
	if err != nil {
		return fmt.Errorf("elasticsearch index: marshal product: %w", err)
	}

	res, err := e.client.Index(
		e.indexName,
		bytes.NewReader(data),
		e.client.Index.WithDocumentID(product.DocumentID()),
		e.client.Index.WithRefresh("true"),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return apperrors.IndexUnavailable(fmt.Errorf("elasticsearch index: %w", err))
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch index %s: %s", product.DocumentID(), errorReason(res))
	}

	e.logger.DebugContext(ctx, "indexed product", slog.String("id", product.DocumentID()))
	return nil
}

// Delete removes a product document. A missing document is ignored.
func (e *Engine) Delete(ctx context.Context, id string) error {
	res, err := e.client.Delete(
		e.indexName,
		id,
		e.client.Delete.WithRefresh("true"),
		e.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return apperrors.IndexUnavailable(fmt.Errorf("elasticsearch delete: %w", err))
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("elasticsearch delete %s: %s", id, errorReason(res))
	}

	e.logger.DebugContext(ctx, "deleted product", slog.String("id", id))
	return nil
}

// BulkIndex writes products with the NDJSON bulk API and refreshes the index.
func (e *Engine) BulkIndex(ctx context.Context, products []domain.Product) (*engine.BulkReport, error) {
	report := &engine.BulkReport{}
	if len(products) == 0 {
		return report, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, p := range products {
		action := map[string]any{
			"index": map[string]any{"_index": e.indexName, "_id": p.DocumentID()},
		}
		if err := enc.Encode(action); err != nil {
			return nil, fmt.Errorf("elasticsearch bulk: encode action: %w", err)
		}
		if err := enc.Encode(p.Document()); err != nil {
			return nil, fmt.Errorf("elasticsearch bulk: encode document: %w", err)
		}
	}

	res, err := e.client.Bulk(
		&buf,
		e.client.Bulk.WithIndex(e.indexName),
		e.client.Bulk.WithRefresh("true"),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return nil, apperrors.IndexUnavailable(fmt.Errorf("elasticsearch bulk: %w", err))
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch bulk: %s", errorReason(res))
	}

	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return nil, fmt.Errorf("elasticsearch bulk: decode response: %w", err)
	}

	for _, item := range bulkResp.Items {
		for _, r := range item {
			if r.Error != nil {
				report.Failed++
				report.Errors = append(report.Errors, engine.BulkItemError{
					ID:     r.ID,
					Reason: r.Error.Type + ": " + r.Error.Reason,
				})
				continue
			}
			report.Indexed++
		}
	}

	e.logger.InfoContext(ctx, "bulk indexed products",
		slog.Int("indexed", report.Indexed),
		slog.Int("failed", report.Failed),
	)
	return report, nil
}

// EnsureIndex creates the index with the product mapping if it is missing.
func (e *Engine) EnsureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists(
		[]string{e.indexName},
		e.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return apperrors.IndexUnavailable(fmt.Errorf("elasticsearch: check index exists: %w", err))
	}
	_ = res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		e.logger.DebugContext(ctx, "index already exists")
		return nil
	case http.StatusNotFound:
		return e.createIndex(ctx)
	default:
		return fmt.Errorf("elasticsearch: check index exists: unexpected status %s", res.Status())
	}
}

// RecreateIndex drops the index, if present, and creates it again.
func (e *Engine) RecreateIndex(ctx context.Context) error {
	if err := e.DeleteIndex(ctx); err != nil {
		return err
	}
	return e.createIndex(ctx)
}

// DeleteIndex removes the whole index. A missing index is not an error.
func (e *Engine) DeleteIndex(ctx context.Context) error {
	res, err := e.client.Indices.Delete(
		[]string{e.indexName},
		e.client.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return apperrors.IndexUnavailable(fmt.Errorf("elasticsearch: delete index: %w", err))
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("elasticsearch: delete index: %s", errorReason(res))
	}

	e.logger.InfoContext(ctx, "index deleted")
	return nil
}

func (e *Engine) createIndex(ctx context.Context) error {
	res, err := e.client.Indices.Create(
		e.indexName,
		e.client.Indices.Create.WithBody(strings.NewReader(engine.IndexMapping)),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return apperrors.IndexUnavailable(fmt.Errorf("elasticsearch: create index: %w", err))
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch: create index: %s", errorReason(res))
	}

	e.logger.InfoContext(ctx, "index created")
	return nil
}

// Count returns the number of documents in the index.
func (e *Engine) Count(ctx context.Context) (int64, error) {
	res, err := e.client.Count(
		e.client.Count.WithIndex(e.indexName),
		e.client.Count.WithContext(ctx),
	)
	if err != nil {
		return 0, apperrors.IndexUnavailable(fmt.Errorf("elasticsearch count: %w", err))
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return 0, fmt.Errorf("elasticsearch count: %s", errorReason(res))
	}

	var body struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("elasticsearch count: decode response: %w", err)
	}
	return body.Count, nil
}

// errorReason extracts "type: reason" from an error response, falling back
// to the HTTP status.
func errorReason(res *esapi.Response) string {
	data, err := io.ReadAll(res.Body)
	if err == nil {
		var errResp esErrorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Error.Type != "" {
			return errResp.Error.Type + ": " + errResp.Error.Reason
		}
	}
	return "unexpected status " + res.Status()
}
