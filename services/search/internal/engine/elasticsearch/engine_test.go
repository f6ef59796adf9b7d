package elasticsearch

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Anitha-22/myecommerce/pkg/errors"
	"github.com/Anitha-22/myecommerce/services/search/internal/domain"
	"github.com/Anitha-22/myecommerce/services/search/internal/relevance"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeCluster serves a single handler and stamps the product header the
// client checks for.
func fakeCluster(t *testing.T, h http.HandlerFunc) *Engine {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	eng, err := New(Config{Addresses: []string{srv.URL}, Index: "products"}, testLogger())
	require.NoError(t, err)
	return eng
}

func TestSearch_DecodesHits(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	eng := fakeCluster(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = io.WriteString(w, `{
			"took": 4,
			"hits": {
				"total": {"value": 15, "relation": "eq"},
				"hits": [
					{"_id": "3", "_score": 21.5, "_source": {"name": "Blue Jeans", "mrp_price": 1999, "discount_price": 1499, "quantity": 4, "category_id": 2, "category_name": "Apparel"}},
					{"_id": "8", "_score": 3.2, "_source": {"name": "Jean Jacket", "mrp_price": 2999, "discount_price": 2599, "quantity": 1, "category_id": 2, "category_name": "Apparel"}}
				]
			}
		}`)
	})

	res, err := eng.Search(context.Background(), relevance.Build("jeans", nil, nil, 12, 12))
	require.NoError(t, err)

	assert.Equal(t, "/products/_search", gotPath)
	assert.EqualValues(t, 12, gotBody["from"])
	assert.EqualValues(t, 0.5, gotBody["min_score"])

	assert.Equal(t, int64(15), res.Total)
	assert.Equal(t, int64(4), res.TookMs)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, "3", res.Hits[0].ID)
	assert.Equal(t, "Blue Jeans", res.Hits[0].Name)
	assert.Equal(t, 1499.0, res.Hits[0].DiscountPrice)
	assert.Equal(t, 21.5, res.Hits[0].Score)
}

func TestSearch_BadRequestIsQueryRejected(t *testing.T) {
	eng := fakeCluster(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error": {"type": "parsing_exception", "reason": "unknown query [match_phrase]"}, "status": 400}`)
	})

	_, err := eng.Search(context.Background(), relevance.Build("jeans", nil, nil, 0, 12))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrQueryRejected)
	assert.Contains(t, err.Error(), "parsing_exception: unknown query [match_phrase]")
	assert.Equal(t, http.StatusInternalServerError, apperrors.HTTPStatus(err))
}

func TestSearch_ServerErrorIsIndexUnavailable(t *testing.T) {
	eng := fakeCluster(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error": {"type": "cluster_block_exception", "reason": "blocked"}, "status": 503}`)
	})

	_, err := eng.Search(context.Background(), relevance.Build("jeans", nil, nil, 0, 12))
	require.Error(t, err)
	assert.True(t, apperrors.IsIndexUnavailable(err))
	assert.Contains(t, err.Error(), "cluster_block_exception")
}

func TestSearch_MissingIndexIsIndexUnavailable(t *testing.T) {
	eng := fakeCluster(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error": {"type": "index_not_found_exception", "reason": "no such index [products]"}, "status": 404}`)
	})

	_, err := eng.Search(context.Background(), relevance.Build("jeans", nil, nil, 0, 12))
	assert.True(t, apperrors.IsIndexUnavailable(err))
}

func TestSearch_UnreachableIsIndexUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	eng, err := New(Config{Addresses: []string{addr}}, testLogger())
	require.NoError(t, err)

	_, err = eng.Search(context.Background(), relevance.Build("jeans", nil, nil, 0, 12))
	require.Error(t, err)
	assert.True(t, apperrors.IsIndexUnavailable(err))
}

func TestBulkIndex_ReportsItemFailures(t *testing.T) {
	var lines []string
	eng := fakeCluster(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/_bulk", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("refresh"))
		sc := bufio.NewScanner(r.Body)
		for sc.Scan() {
			lines = append(lines, sc.Text())
		}
		_, _ = io.WriteString(w, `{
			"errors": true,
			"items": [
				{"index": {"_id": "1", "status": 201}},
				{"index": {"_id": "2", "status": 400, "error": {"type": "mapper_parsing_exception", "reason": "failed to parse field [quantity]"}}}
			]
		}`)
	})

	report, err := eng.BulkIndex(context.Background(), []domain.Product{
		{ID: 1, Name: "Desk Lamp", DiscountPrice: 899, CategoryName: "Home Decor"},
		{ID: 2, Name: "Cushion", DiscountPrice: 299, CategoryName: "Home Decor"},
	})
	require.NoError(t, err)

	require.Len(t, lines, 4)
	assert.JSONEq(t, `{"index": {"_index": "products", "_id": "1"}}`, lines[0])
	assert.Contains(t, lines[1], `"name":"Desk Lamp"`)

	assert.Equal(t, 1, report.Indexed)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "2", report.Errors[0].ID)
	assert.True(t, strings.HasPrefix(report.Errors[0].Reason, "mapper_parsing_exception"))
}

func TestBulkIndex_Empty(t *testing.T) {
	eng := fakeCluster(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	report, err := eng.BulkIndex(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, report.Indexed)
}

func TestEnsureIndex_CreatesMissingIndex(t *testing.T) {
	var created bool
	eng := fakeCluster(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			created = true
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Contains(t, body, "mappings")
			_, _ = io.WriteString(w, `{"acknowledged": true}`)
		default:
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
	})

	require.NoError(t, eng.EnsureIndex(context.Background()))
	assert.True(t, created)
}

func TestEnsureIndex_ExistingIndex(t *testing.T) {
	eng := fakeCluster(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusOK)
	})
	require.NoError(t, eng.EnsureIndex(context.Background()))
}

func TestDelete_MissingDocumentIsIgnored(t *testing.T) {
	eng := fakeCluster(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/_doc/99", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"result": "not_found"}`)
	})
	assert.NoError(t, eng.Delete(context.Background(), "99"))
}

func TestCount(t *testing.T) {
	eng := fakeCluster(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/_count", r.URL.Path)
		_, _ = io.WriteString(w, `{"count": 42}`)
	})

	n, err := eng.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}
