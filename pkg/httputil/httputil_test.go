package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Anitha-22/myecommerce/pkg/errors"
	"github.com/Anitha-22/myecommerce/pkg/logger"
	"github.com/Anitha-22/myecommerce/pkg/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestWriteJSON_SetsContentTypeAndStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusAccepted, map[string]string{"status": "accepted"})

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"status":"accepted"}`, rec.Body.String())
}

func TestWriteFailure_ClientErrorUsesMessageAsSummary(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)

	WriteFailure(rec, req, "Search failed", apperrors.InvalidInput("Search query 'q' is required."), testLogger())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Search query 'q' is required.", body.Error)
	assert.Empty(t, body.Details)
	assert.Equal(t, "INVALID_INPUT", body.Code)
}

func TestWriteFailure_ServerErrorCarriesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/search?q=shoes", nil)

	err := apperrors.IndexUnavailable(fmt.Errorf("connection refused"))
	WriteFailure(rec, req, "Search failed", err, testLogger())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Search failed", body.Error)
	assert.Equal(t, "connection refused", body.Details)
	assert.Equal(t, "INDEX_UNAVAILABLE", body.Code)
}

func TestWriteError_PlainErrorIsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/search/reindex", nil)

	WriteError(rec, req, fmt.Errorf("boom"), testLogger())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "an internal error occurred", body.Error)
	assert.Equal(t, "boom", body.Details)
	assert.Equal(t, "INTERNAL_ERROR", body.Code)
}

func TestWriteError_WrappedSentinelNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	WriteError(rec, req, fmt.Errorf("get product: %w", apperrors.ErrNotFound), testLogger())

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "NOT_FOUND", body.Code)
	assert.Contains(t, body.Error, "resource not found")
}

func TestWriteError_IncludesRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logger.WithCorrelationID(context.Background(), "corr-7"))

	WriteError(rec, req, apperrors.InvalidInput("bad"), testLogger())

	body := decodeBody(t, rec)
	assert.Equal(t, "corr-7", body.RequestID)
}

func TestWriteValidationError_ListsFields(t *testing.T) {
	type payload struct {
		Batch int `validate:"gte=1"`
	}
	err := validator.Validate(payload{})
	require.Error(t, err)

	rec := httptest.NewRecorder()
	WriteValidationError(rec, err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Contains(t, body.Fields, "Batch")
}

func TestWriteValidationError_NonValidationError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteValidationError(rec, fmt.Errorf("decode request body: unexpected EOF"))

	body := decodeBody(t, rec)
	assert.Equal(t, "INVALID_INPUT", body.Code)
	assert.Equal(t, "decode request body: unexpected EOF", body.Error)
}
