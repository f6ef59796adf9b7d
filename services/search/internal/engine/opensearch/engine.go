// Package opensearch implements the search engine on an OpenSearch cluster.
package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"

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
	Transport http.RoundTripper
}

// Engine is an OpenSearch-backed engine.SearchEngine.
type Engine struct {
	client    *opensearchapi.Client
	indexName string
	logger    *slog.Logger
}

var _ engine.SearchEngine = (*Engine)(nil)

// New creates an engine. It does not contact the cluster.
func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	indexName := cfg.Index
	if indexName == "" {
		indexName = engine.DefaultIndexName
	}

	client, err := opensearchapi.NewClient(opensearchapi.Config{
		Client: opensearch.Config{
			Addresses: cfg.Addresses,
			Username:  cfg.Username,
			Password:  cfg.Password,
			Transport: cfg.Transport,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("opensearch: create client: %w", err)
	}

	return &Engine{
		client:    client,
		indexName: indexName,
		logger:    logger.With(slog.String("engine", "opensearch"), slog.String("index", indexName)),
	}, nil
}

// Name implements engine.SearchEngine.
func (e *Engine) Name() string { return "opensearch" }

// Ping checks cluster health.
func (e *Engine) Ping(ctx context.Context) error {
	if _, err := e.client.Cluster.Health(ctx, &opensearchapi.ClusterHealthReq{}); err != nil {
		return fmt.Errorf("opensearch ping: %w", err)
	}
	return nil
}

// Search runs req against the index.
func (e *Engine) Search(ctx context.Context, req *relevance.Request) (*engine.Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("opensearch search: marshal query: %w", err)
	}

	resp, err := e.client.Search(ctx, &opensearchapi.SearchReq{
		Indices: []string{e.indexName},
		Body:    bytes.NewReader(body),
	})
	if err != nil {
		status, reason := describe(err)
		if status == http.StatusBadRequest {
			e.logger.ErrorContext(ctx, "opensearch rejected query",
				slog.String("reason", reason),
				slog.String("query", string(body)),
			)
			return nil, apperrors.QueryRejected(reason)
		}
		return nil, apperrors.IndexUnavailable(fmt.Errorf("opensearch search: %w", err))
	}

	hits := make([]domain.ProductHit, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		hit := domain.ProductHit{ID: h.ID, Score: float64(h.Score)}
		if err := json.Unmarshal(h.Source, &hit.ProductDocument); err != nil {
			return nil, fmt.Errorf("opensearch search: decode hit %s: %w", h.ID, err)
		}
		hits = append(hits, hit)
	}

	return &engine.Result{
		Hits:   hits,
		Total:  int64(resp.Hits.Total.Value),
		TookMs: int64(resp.Took),
	}, nil
}

// Index adds or replaces one product.
func (e *Engine) Index(ctx context.Context, product domain.Product) error {
	data, err := json.Marshal(product.Document())
	if err != nil {
		return fmt.Errorf("opensearch index: marshal product: %w", err)
	}

	_, err = e.client.Index(ctx, opensearchapi.IndexReq{
		Index:      e.indexName,
		DocumentID: product.DocumentID(),
		Body:       bytes.NewReader(data),
	})
	if err != nil {
		return e.writeError("index "+product.DocumentID(), err)
	}
	return e.refresh(ctx)
}

// Delete removes a product document. A missing document is ignored.
func (e *Engine) Delete(ctx context.Context, id string) error {
	resp, err := e.client.Document.Delete(ctx, opensearchapi.DocumentDeleteReq{
		Index:      e.indexName,
		DocumentID: id,
	})
	if err != nil {
		if resp != nil && statusOf(resp.Inspect().Response) == http.StatusNotFound {
			return nil
		}
		if status, _ := describe(err); status == http.StatusNotFound {
			return nil
		}
		return e.writeError("delete "+id, err)
	}
	return e.refresh(ctx)
}

// BulkIndex writes products with the bulk API, then refreshes the index.
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
			return nil, fmt.Errorf("opensearch bulk: encode action: %w", err)
		}
		if err := enc.Encode(p.Document()); err != nil {
			return nil, fmt.Errorf("opensearch bulk: encode document: %w", err)
		}
	}

	resp, err := e.client.Bulk(ctx, opensearchapi.BulkReq{
		Index: e.indexName,
		Body:  &buf,
	})
	if err != nil {
		return nil, e.writeError("bulk", err)
	}

	for _, item := range resp.Items {
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

	if err := e.refresh(ctx); err != nil {
		return report, err
	}

	e.logger.InfoContext(ctx, "bulk indexed products",
		slog.Int("indexed", report.Indexed),
		slog.Int("failed", report.Failed),
	)
	return report, nil
}

// EnsureIndex creates the index with the product mapping if it is missing.
func (e *Engine) EnsureIndex(ctx context.Context) error {
	resp, err := e.client.Indices.Exists(ctx, opensearchapi.IndicesExistsReq{
		Indices: []string{e.indexName},
	})
	switch status := statusOf(resp); {
	case status == http.StatusOK:
		return nil
	case status == http.StatusNotFound:
		return e.createIndex(ctx)
	case err != nil:
		return apperrors.IndexUnavailable(fmt.Errorf("opensearch: check index exists: %w", err))
	default:
		return fmt.Errorf("opensearch: check index exists: unexpected status %d", status)
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
	resp, err := e.client.Indices.Delete(ctx, opensearchapi.IndicesDeleteReq{
		Indices: []string{e.indexName},
	})
	if err != nil {
		if resp != nil && statusOf(resp.Inspect().Response) == http.StatusNotFound {
			return nil
		}
		if status, _ := describe(err); status == http.StatusNotFound {
			return nil
		}
		return e.writeError("delete index", err)
	}
	e.logger.InfoContext(ctx, "index deleted")
	return nil
}

func (e *Engine) createIndex(ctx context.Context) error {
	_, err := e.client.Indices.Create(ctx, opensearchapi.IndicesCreateReq{
		Index: e.indexName,
		Body:  strings.NewReader(engine.IndexMapping),
	})
	if err != nil {
		return e.writeError("create index", err)
	}
	e.logger.InfoContext(ctx, "index created")
	return nil
}

// Count returns the number of documents in the index.
func (e *Engine) Count(ctx context.Context) (int64, error) {
	resp, err := e.client.Search(ctx, &opensearchapi.SearchReq{
		Indices: []string{e.indexName},
		Body:    strings.NewReader(`{"size":0,"track_total_hits":true,"query":{"match_all":{}}}`),
	})
	if err != nil {
		return 0, e.writeError("count", err)
	}
	return int64(resp.Hits.Total.Value), nil
}

func (e *Engine) refresh(ctx context.Context) error {
	if _, err := e.client.Indices.Refresh(ctx, &opensearchapi.IndicesRefreshReq{
		Indices: []string{e.indexName},
	}); err != nil {
		return e.writeError("refresh", err)
	}
	return nil
}

// writeError classifies a failed write: responses from the cluster are
// returned as-is, anything else means the cluster was not reached.
func (e *Engine) writeError(op string, err error) error {
	if status, reason := describe(err); status != 0 {
		return fmt.Errorf("opensearch %s: %s", op, reason)
	}
	return apperrors.IndexUnavailable(fmt.Errorf("opensearch %s: %w", op, err))
}

// describe returns the HTTP status and "type: reason" carried by an
// OpenSearch error response. status is 0 for transport failures.
func describe(err error) (int, string) {
	var se *opensearch.StructError
	if errors.As(err, &se) {
		return se.Status, se.Err.Type + ": " + se.Err.Reason
	}
	return 0, err.Error()
}

func statusOf(resp *opensearch.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
