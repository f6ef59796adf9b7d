package opensearch

import (
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

func fakeCluster(t *testing.T, h http.HandlerFunc) *Engine {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	eng, err := New(Config{Addresses: []string{srv.URL}, Index: "products"}, testLogger())
	require.NoError(t, err)
	return eng
}

func TestSearch_DecodesHits(t *testing.T) {
	var body map[string]any
	eng := fakeCluster(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/_search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = io.WriteString(w, `{
			"took": 3,
			"timed_out": false,
			"_shards": {"total": 1, "successful": 1, "skipped": 0, "failed": 0},
			"hits": {
				"total": {"value": 1, "relation": "eq"},
				"max_score": 9.5,
				"hits": [
					{"_index": "products", "_id": "12", "_score": 9.5, "_source": {"name": "Cricket Bat", "mrp_price": 1999, "discount_price": 1599, "quantity": 2, "category_id": 5, "category_name": "Sports"}}
				]
			}
		}`)
	})

	max := 2000.0
	res, err := eng.Search(context.Background(), relevance.Build("cricket bat", nil, &max, 0, 12))
	require.NoError(t, err)

	query := body["query"].(map[string]any)["bool"].(map[string]any)
	assert.Len(t, query["should"], 4)
	assert.Len(t, query["filter"], 1)

	assert.Equal(t, int64(1), res.Total)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "12", res.Hits[0].ID)
	assert.Equal(t, "Sports", res.Hits[0].CategoryName)
	assert.InDelta(t, 9.5, res.Hits[0].Score, 1e-6)
}

func TestSearch_ErrorClassification(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		rejected    bool
		unavailable bool
	}{
		{
			name:     "bad request",
			status:   http.StatusBadRequest,
			body:     `{"error": {"type": "parsing_exception", "reason": "bad query"}, "status": 400}`,
			rejected: true,
		},
		{
			name:        "server error",
			status:      http.StatusInternalServerError,
			body:        `{"error": {"type": "search_phase_execution_exception", "reason": "all shards failed"}, "status": 500}`,
			unavailable: true,
		},
		{
			name:        "missing index",
			status:      http.StatusNotFound,
			body:        `{"error": {"type": "index_not_found_exception", "reason": "no such index"}, "status": 404}`,
			unavailable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := fakeCluster(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := eng.Search(context.Background(), relevance.Build("bat", nil, nil, 0, 12))
			require.Error(t, err)
			assert.Equal(t, tt.rejected, strings.Contains(err.Error(), "QUERY_REJECTED"))
			assert.Equal(t, tt.unavailable, apperrors.IsIndexUnavailable(err))
		})
	}
}

func TestSearch_UnreachableIsIndexUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	eng, err := New(Config{Addresses: []string{addr}}, testLogger())
	require.NoError(t, err)

	_, err = eng.Search(context.Background(), relevance.Build("bat", nil, nil, 0, 12))
	assert.True(t, apperrors.IsIndexUnavailable(err))
}

func TestBulkIndex(t *testing.T) {
	var refreshed bool
	eng := fakeCluster(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/_bulk"):
			data, _ := io.ReadAll(r.Body)
			assert.Contains(t, string(data), `"_id":"4"`)
			_, _ = io.WriteString(w, `{
				"took": 5,
				"errors": true,
				"items": [
					{"index": {"_index": "products", "_id": "4", "status": 201, "result": "created"}},
					{"index": {"_index": "products", "_id": "5", "status": 400, "error": {"type": "mapper_parsing_exception", "reason": "bad price"}}}
				]
			}`)
		case strings.HasSuffix(r.URL.Path, "/_refresh"):
			refreshed = true
			_, _ = io.WriteString(w, `{"_shards": {"total": 1, "successful": 1, "failed": 0}}`)
		default:
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
	})

	report, err := eng.BulkIndex(context.Background(), []domain.Product{
		{ID: 4, Name: "Hammer", CategoryName: "Tools & DIY"},
		{ID: 5, Name: "Wrench", CategoryName: "Tools & DIY"},
	})
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, 1, report.Indexed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, "5", report.Errors[0].ID)
}

func TestEnsureIndex_CreatesMissingIndex(t *testing.T) {
	var created bool
	eng := fakeCluster(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			created = true
			_, _ = io.WriteString(w, `{"acknowledged": true, "shards_acknowledged": true, "index": "products"}`)
		default:
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
	})

	require.NoError(t, eng.EnsureIndex(context.Background()))
	assert.True(t, created)
}

func TestCount(t *testing.T) {
	eng := fakeCluster(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"took": 1, "hits": {"total": {"value": 37, "relation": "eq"}, "hits": []}}`)
	})

	n, err := eng.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(37), n)
	assert.Equal(t, "opensearch", eng.Name())
}
