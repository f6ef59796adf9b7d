package engine

import (
	"context"

	"github.com/Anitha-22/myecommerce/services/search/internal/domain"
	"github.com/Anitha-22/myecommerce/services/search/internal/relevance"
)

// Result is the raw outcome of one search call: ranked hits in engine
// order and the total number of matches.
type Result struct {
	Hits   []domain.ProductHit `json:"hits"`
	Total  int64               `json:"total"`
	TookMs int64               `json:"took_ms"`
}

// Searcher executes a relevance request. Implementations fail with an
// error matching errors.ErrIndexUnavailable when the engine cannot be
// reached and errors.ErrQueryRejected when it refuses the query.
type Searcher interface {
	Search(ctx context.Context, req *relevance.Request) (*Result, error)
}

// Indexer writes catalog products into the index.
type Indexer interface {
	// Index adds or replaces one product document.
	Index(ctx context.Context, product domain.Product) error

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, id string) error

	// BulkIndex writes products in one request. Per-document failures are
	// reported in the BulkReport; the error covers whole-request failures.
	BulkIndex(ctx context.Context, products []domain.Product) (*BulkReport, error)
}

// Admin manages the index itself.
type Admin interface {
	// EnsureIndex creates the index with the product mapping if missing.
	EnsureIndex(ctx context.Context) error

	// RecreateIndex drops and recreates the index.
	RecreateIndex(ctx context.Context) error

	// Count returns the number of indexed documents.
	Count(ctx context.Context) (int64, error)

	// Ping checks that the engine is reachable.
	Ping(ctx context.Context) error
}

// SearchEngine is a complete index backend.
type SearchEngine interface {
	Searcher
	Indexer
	Admin

	// Name identifies the backend in logs and health checks.
	Name() string
}

// BulkItemError describes one document a bulk request failed to write.
type BulkItemError struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BulkReport summarises a bulk write.
type BulkReport struct {
	Indexed int             `json:"indexed"`
	Failed  int             `json:"failed"`
	Errors  []BulkItemError `json:"errors,omitempty"`
}

// Add folds other into r.
func (r *BulkReport) Add(other *BulkReport) {
	if other == nil {
		return
	}
	r.Indexed += other.Indexed
	r.Failed += other.Failed
	r.Errors = append(r.Errors, other.Errors...)
}
