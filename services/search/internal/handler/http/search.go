package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Anitha-22/myecommerce/pkg/httputil"
	"github.com/Anitha-22/myecommerce/pkg/pagination"
	"github.com/Anitha-22/myecommerce/services/search/internal/domain"
	"github.com/Anitha-22/myecommerce/services/search/internal/indexer"
)

// Searcher answers search requests.
type Searcher interface {
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error)
}

// SyncTrigger starts background catalog syncs.
type SyncTrigger interface {
	Trigger(ctx context.Context) (string, error)
	Running() bool
}

// SearchHandler handles HTTP requests for search endpoints.
type SearchHandler struct {
	searcher     Searcher
	syncer       SyncTrigger
	defaultLimit int
	maxLimit     int
	logger       *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(searcher Searcher, syncer SyncTrigger, defaultLimit, maxLimit int, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		searcher:     searcher,
		syncer:       syncer,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		logger:       logger,
	}
}

// Search handles GET /api/search?q=&page=&limit=
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	p := pagination.FromRequest(r, h.defaultLimit, h.maxLimit)

	resp, err := h.searcher.Search(r.Context(), domain.SearchRequest{
		RawQuery: r.URL.Query().Get("q"),
		Page:     p.Page,
		Limit:    p.Limit,
	})
	if err != nil {
		httputil.WriteFailure(w, r, "Search failed", err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

type reindexResponse struct {
	Status  string `json:"status"`
	JobID   string `json:"job_id,omitempty"`
	Running bool   `json:"running"`
}

// Reindex handles POST /api/search/reindex by starting a background sync.
func (h *SearchHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	jobID, err := h.syncer.Trigger(r.Context())
	if err != nil {
		if errors.Is(err, indexer.ErrSyncInProgress) {
			httputil.WriteJSON(w, http.StatusConflict, httputil.ErrorBody{
				Error: err.Error(),
				Code:  "SYNC_IN_PROGRESS",
			})
			return
		}
		if errors.Is(err, indexer.ErrSyncerStopped) {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, httputil.ErrorBody{
				Error: err.Error(),
				Code:  "SHUTTING_DOWN",
			})
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, reindexResponse{
		Status:  "accepted",
		JobID:   jobID,
		Running: true,
	})
}

// ReindexStatus handles GET /api/search/reindex.
func (h *SearchHandler) ReindexStatus(w http.ResponseWriter, r *http.Request) {
	status := "idle"
	running := h.syncer.Running()
	if running {
		status = "running"
	}
	httputil.WriteJSON(w, http.StatusOK, reindexResponse{Status: status, Running: running})
}
