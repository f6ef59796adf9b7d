// Package bleve implements the search engine on an embedded bleve index.
// It needs no external cluster and backs local development and tests.
package bleve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	apperrors "github.com/Anitha-22/myecommerce/pkg/errors"
	"github.com/Anitha-22/myecommerce/services/search/internal/domain"
	"github.com/Anitha-22/myecommerce/services/search/internal/engine"
	"github.com/Anitha-22/myecommerce/services/search/internal/relevance"
)

// Engine is a bleve-backed engine.SearchEngine. Bleve scores are not on the
// Lucene scale, so the request's MinScore is not applied.
type Engine struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	logger *slog.Logger
}

var _ engine.SearchEngine = (*Engine)(nil)

// NewMemory creates an engine over an in-memory index.
func NewMemory(logger *slog.Logger) (*Engine, error) {
	idx, err := bleve.NewMemOnly(indexMapping())
	if err != nil {
		return nil, fmt.Errorf("bleve: create memory index: %w", err)
	}
	return &Engine{index: idx, logger: logger.With(slog.String("engine", "bleve"))}, nil
}

// Open opens the index at path, creating it when it does not exist.
func Open(path string, logger *slog.Logger) (*Engine, error) {
	var (
		idx bleve.Index
		err error
	)
	if _, statErr := os.Stat(path); statErr == nil {
		idx, err = bleve.Open(path)
	} else {
		idx, err = bleve.New(path, indexMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("bleve: open %s: %w", path, err)
	}
	return &Engine{
		index:  idx,
		path:   path,
		logger: logger.With(slog.String("engine", "bleve"), slog.String("path", path)),
	}, nil
}

func indexMapping() *mapping.IndexMappingImpl {
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	numeric := bleve.NewNumericFieldMapping()

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt(relevance.FieldName, text)
	doc.AddFieldMappingsAt(relevance.FieldCategoryName, text)
	doc.AddFieldMappingsAt("description", text)
	doc.AddFieldMappingsAt("mrp_price", numeric)
	doc.AddFieldMappingsAt(relevance.FieldDiscountPrice, numeric)
	doc.AddFieldMappingsAt("quantity", numeric)
	doc.AddFieldMappingsAt("category_id", numeric)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	im.DefaultAnalyzer = standard.Name
	return im
}

// errIndexClosed is reported by every operation after Close or a failed
// RecreateIndex.
var errIndexClosed = errors.New("bleve: index closed")

func closedIndex() error {
	return apperrors.IndexUnavailable(errIndexClosed)
}

// Name implements engine.SearchEngine.
func (e *Engine) Name() string { return "bleve" }

// Ping reports whether the index is open.
func (e *Engine) Ping(context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.index == nil {
		return closedIndex()
	}
	_, err := e.index.DocCount()
	return err
}

// Search translates req into bleve queries and runs it.
func (e *Engine) Search(ctx context.Context, req *relevance.Request) (*engine.Result, error) {
	q, err := translate(req)
	if err != nil {
		e.logger.ErrorContext(ctx, "bleve rejected query",
			slog.String("reason", err.Error()),
			slog.Any("query", req),
		)
		return nil, apperrors.QueryRejected(err.Error())
	}

	if req.From < 0 || req.Size < 0 {
		return nil, apperrors.QueryRejected(fmt.Sprintf("bleve: invalid paging from=%d size=%d", req.From, req.Size))
	}

	sr := bleve.NewSearchRequestOptions(q, req.Size, req.From, false)
	sr.Fields = []string{"*"}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.index == nil {
		return nil, closedIndex()
	}

	start := time.Now()
	res, err := e.index.SearchInContext(ctx, sr)
	if err != nil {
		return nil, apperrors.IndexUnavailable(fmt.Errorf("bleve search: %w", err))
	}

	hits := make([]domain.ProductHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, domain.ProductHit{
			ID:              h.ID,
			ProductDocument: documentFromFields(h.Fields),
			Score:           h.Score,
		})
	}

	return &engine.Result{
		Hits:   hits,
		Total:  int64(res.Total),
		TookMs: time.Since(start).Milliseconds(),
	}, nil
}

// translate maps the relevance clauses onto bleve queries. Multi-field
// clauses become disjunctions of per-field match queries.
func translate(req *relevance.Request) (blevequery.Query, error) {
	var should blevequery.Query
	if len(req.Should) == 0 {
		should = bleve.NewMatchAllQuery()
	} else {
		clauses := make([]blevequery.Query, 0, len(req.Should))
		for _, c := range req.Should {
			q, err := translateClause(c)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, q)
		}
		d := bleve.NewDisjunctionQuery(clauses...)
		d.SetMin(float64(max(req.MinimumShouldMatch, 1)))
		should = d
	}

	if len(req.Filter) == 0 {
		return should, nil
	}

	all := []blevequery.Query{should}
	for _, c := range req.Filter {
		q, err := translateClause(c)
		if err != nil {
			return nil, err
		}
		all = append(all, q)
	}
	return bleve.NewConjunctionQuery(all...), nil
}

func translateClause(c relevance.Clause) (blevequery.Query, error) {
	switch c := c.(type) {
	case relevance.Phrase:
		q := bleve.NewMatchPhraseQuery(c.Text)
		q.SetField(c.Field)
		q.SetBoost(c.Boost)
		return q, nil

	case relevance.AllWords:
		return fieldMatches(c.Fields, c.Text, 0, c.Boost), nil

	case relevance.Fuzzy:
		return fieldMatches(c.Fields, c.Text, c.Fuzziness, c.Boost), nil

	case relevance.Range:
		inclusive := true
		q := bleve.NewNumericRangeInclusiveQuery(c.GTE, c.LTE, &inclusive, &inclusive)
		q.SetField(c.Field)
		return q, nil

	default:
		return nil, fmt.Errorf("bleve: unsupported clause %T", c)
	}
}

// fieldMatches requires every token of text in at least one of fields.
func fieldMatches(fields []relevance.Field, text string, fuzziness int, boost float64) blevequery.Query {
	per := make([]blevequery.Query, 0, len(fields))
	for _, f := range fields {
		q := bleve.NewMatchQuery(text)
		q.SetField(f.Name)
		q.SetOperator(blevequery.MatchQueryOperatorAnd)
		q.SetFuzziness(fuzziness)
		fieldBoost := f.Boost
		if fieldBoost == 0 {
			fieldBoost = 1
		}
		q.SetBoost(fieldBoost)
		per = append(per, q)
	}
	d := bleve.NewDisjunctionQuery(per...)
	d.SetBoost(boost)
	return d
}

func documentFromFields(fields map[string]interface{}) domain.ProductDocument {
	str := func(k string) string {
		s, _ := fields[k].(string)
		return s
	}
	num := func(k string) float64 {
		f, _ := fields[k].(float64)
		return f
	}
	return domain.ProductDocument{
		Name:          str(relevance.FieldName),
		Description:   str("description"),
		MRPPrice:      num("mrp_price"),
		DiscountPrice: num(relevance.FieldDiscountPrice),
		Quantity:      int(num("quantity")),
		CategoryID:    int(num("category_id")),
		CategoryName:  str(relevance.FieldCategoryName),
	}
}

func documentFields(p domain.Product) map[string]interface{} {
	return map[string]interface{}{
		relevance.FieldName:          p.Name,
		"description":                p.Description,
		"mrp_price":                  p.MRPPrice,
		relevance.FieldDiscountPrice: p.DiscountPrice,
		"quantity":                   float64(p.Quantity),
		"category_id":                float64(p.CategoryID),
		relevance.FieldCategoryName:  p.CategoryName,
	}
}

// Index adds or replaces one product.
func (e *Engine) Index(_ context.Context, product domain.Product) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.index == nil {
		return closedIndex()
	}
	if err := e.index.Index(product.DocumentID(), documentFields(product)); err != nil {
		return fmt.Errorf("bleve index %s: %w", product.DocumentID(), err)
	}
	return nil
}

// Delete removes a product document. A missing document is ignored.
func (e *Engine) Delete(_ context.Context, id string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.index == nil {
		return closedIndex()
	}
	if err := e.index.Delete(id); err != nil {
		return fmt.Errorf("bleve delete %s: %w", id, err)
	}
	return nil
}

// BulkIndex writes products in one batch.
func (e *Engine) BulkIndex(ctx context.Context, products []domain.Product) (*engine.BulkReport, error) {
	report := &engine.BulkReport{}
	if len(products) == 0 {
		return report, nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.index == nil {
		return nil, closedIndex()
	}

	b := e.index.NewBatch()
	for _, p := range products {
		if err := b.Index(p.DocumentID(), documentFields(p)); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, engine.BulkItemError{ID: p.DocumentID(), Reason: err.Error()})
			continue
		}
		report.Indexed++
	}
	if err := e.index.Batch(b); err != nil {
		return nil, fmt.Errorf("bleve bulk: %w", err)
	}

	e.logger.DebugContext(ctx, "bulk indexed products", slog.Int("indexed", report.Indexed))
	return report, nil
}

// EnsureIndex only checks that the index is open: it is created when the
// engine is opened.
func (e *Engine) EnsureIndex(context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.index == nil {
		return closedIndex()
	}
	return nil
}

// RecreateIndex replaces the index with an empty one.
func (e *Engine) RecreateIndex(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.index != nil {
		if err := e.index.Close(); err != nil {
			return fmt.Errorf("bleve: close index: %w", err)
		}
		e.index = nil
	}

	var (
		idx bleve.Index
		err error
	)
	if e.path == "" {
		idx, err = bleve.NewMemOnly(indexMapping())
	} else {
		if err := os.RemoveAll(e.path); err != nil {
			return fmt.Errorf("bleve: remove %s: %w", e.path, err)
		}
		idx, err = bleve.New(e.path, indexMapping())
	}
	if err != nil {
		return fmt.Errorf("bleve: recreate index: %w", err)
	}
	e.index = idx

	e.logger.InfoContext(ctx, "index recreated")
	return nil
}

// Count returns the number of indexed documents.
func (e *Engine) Count(context.Context) (int64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.index == nil {
		return 0, closedIndex()
	}
	n, err := e.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("bleve count: %w", err)
	}
	return int64(n), nil
}

// Close closes the index.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.index == nil {
		return nil
	}
	err := e.index.Close()
	e.index = nil
	return err
}
