package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrInvalidInput, ErrInternal, ErrIndexUnavailable, ErrQueryRejected,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j],
				"sentinels %d and %d should be distinct", i, j)
		}
	}
}

func TestAppError_ErrorString_WithWrappedError(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	appErr := &AppError{Code: "INDEX_UNAVAILABLE", Message: "cluster down", Err: inner}
	assert.Contains(t, appErr.Error(), "INDEX_UNAVAILABLE")
	assert.Contains(t, appErr.Error(), "cluster down")
	assert.Contains(t, appErr.Error(), "connection refused")
}

func TestAppError_ErrorString_WithoutWrappedError(t *testing.T) {
	appErr := &AppError{Code: "NOT_FOUND", Message: "product not found"}
	assert.Equal(t, "NOT_FOUND: product not found", appErr.Error())
}

func TestAppError_Unwrap_Nil(t *testing.T) {
	appErr := &AppError{Code: "TEST", Message: "test"}
	assert.Nil(t, appErr.Unwrap())
}

func TestNotFound(t *testing.T) {
	err := NotFound("product", "42")
	require.NotNil(t, err)
	assert.Equal(t, "NOT_FOUND", err.Code)
	assert.Contains(t, err.Message, "product")
	assert.Contains(t, err.Message, "42")
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestInvalidInput(t *testing.T) {
	err := InvalidInput("Search query 'q' is required.")
	assert.Equal(t, "INVALID_INPUT", err.Code)
	assert.Equal(t, "Search query 'q' is required.", err.Message)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestIndexUnavailable_KeepsCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp 127.0.0.1:9200: connect: connection refused")
	err := IndexUnavailable(cause)

	assert.Equal(t, "INDEX_UNAVAILABLE", err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Equal(t, cause.Error(), err.Message)
	assert.True(t, errors.Is(err, ErrIndexUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsIndexUnavailable(fmt.Errorf("search: %w", err)))
}

func TestIndexUnavailable_NilCause(t *testing.T) {
	err := IndexUnavailable(nil)
	assert.Equal(t, "search index unavailable", err.Message)
	assert.True(t, errors.Is(err, ErrIndexUnavailable))
}

func TestQueryRejected(t *testing.T) {
	err := QueryRejected("parsing_exception: unknown query [mach]")
	assert.Equal(t, "QUERY_REJECTED", err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.True(t, errors.Is(err, ErrQueryRejected))
	assert.False(t, IsIndexUnavailable(err))
}

func TestInternal(t *testing.T) {
	inner := fmt.Errorf("boom")
	err := Internal(inner)
	assert.Equal(t, "INTERNAL_ERROR", err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.True(t, errors.Is(err, inner))
}

func TestWrap(t *testing.T) {
	err := Wrap(ErrNotFound, "get product")
	assert.Equal(t, "get product: resource not found", err.Error())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", InvalidInput("bad"), http.StatusBadRequest},
		{"wrapped app error", fmt.Errorf("handler: %w", QueryRejected("bad")), http.StatusInternalServerError},
		{"not found sentinel", ErrNotFound, http.StatusNotFound},
		{"wrapped invalid input", fmt.Errorf("x: %w", ErrInvalidInput), http.StatusBadRequest},
		{"unknown", fmt.Errorf("mystery"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
