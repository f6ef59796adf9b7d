package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/Anitha-22/myecommerce/pkg/errors"
	"github.com/Anitha-22/myecommerce/pkg/logger"
	"github.com/Anitha-22/myecommerce/pkg/validator"
)

// ErrorBody is the JSON error shape returned by every endpoint.
// Error is the human-readable summary; Details carries the underlying
// cause for server-side failures.
type ErrorBody struct {
	Error     string            `json:"error"`
	Details   string            `json:"details,omitempty"`
	Code      string            `json:"code,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes err using a generic summary for server-side failures.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	WriteFailure(w, r, "an internal error occurred", err, fallback)
}

// WriteFailure writes err as an ErrorBody. Client errors (4xx) surface the
// error message as the summary. Server errors use summary and move the
// message into Details. Server errors are logged with the request-scoped
// logger when the RequestLogger middleware is mounted, else with fallback.
func WriteFailure(w http.ResponseWriter, r *http.Request, summary string, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}

	body := ErrorBody{
		Code:      "INTERNAL_ERROR",
		RequestID: logger.CorrelationIDFromContext(r.Context()),
	}
	status := apperrors.HTTPStatus(err)
	message := err.Error()

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body.Code = appErr.Code
		message = appErr.Message
	} else if errors.Is(err, apperrors.ErrInvalidInput) {
		body.Code = "INVALID_INPUT"
	} else if errors.Is(err, apperrors.ErrNotFound) {
		body.Code = "NOT_FOUND"
	}

	if status < http.StatusInternalServerError {
		body.Error = message
		WriteJSON(w, status, body)
		return
	}

	l.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("code", body.Code),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	body.Error = summary
	body.Details = message
	WriteJSON(w, status, body)
}

// WriteValidationError writes a 400 response for a failed struct validation,
// listing the offending fields when err comes from the validator package.
func WriteValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, ErrorBody{
			Error:  "request validation failed",
			Code:   "VALIDATION_ERROR",
			Fields: valErr.Fields(),
		})
		return
	}

	WriteJSON(w, http.StatusBadRequest, ErrorBody{
		Error: err.Error(),
		Code:  "INVALID_INPUT",
	})
}
