package response

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"filter-selector/internal/service/loader"
	"filter-selector/internal/service/selection"
)

const (
	CodeBadRequest        = "bad_request"
	CodeInvalidQuery      = "invalid_query"
	CodeCatalogNotReady   = "catalog_not_ready"
	CodeCatalogLoadFailed = "catalog_load_failed"
	CodeCatalogMalformed  = "catalog_malformed"
	CodeTimeout           = "timeout"
	CodeInternal          = "internal"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Map turns a service error into a status and a user-facing body.
func Map(err error) (int, ErrorResponse) {
	var (
		invalid *selection.InvalidQueryError
		loadErr *loader.CatalogLoadError
	)

	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest, ErrorResponse{
			Error:   CodeInvalidQuery,
			Message: "Please enter a valid " + invalid.Field + ": " + invalid.Reason + ".",
			Field:   invalid.Field,
		}
	case errors.Is(err, selection.ErrCatalogNotReady):
		return http.StatusServiceUnavailable, ErrorResponse{
			Error:   CodeCatalogNotReady,
			Message: "Filter data is not loaded yet. Please wait a moment and try again.",
		}
	case errors.As(err, &loadErr):
		code := CodeCatalogLoadFailed
		if loadErr.Malformed() {
			code = CodeCatalogMalformed
		}
		return http.StatusBadGateway, ErrorResponse{
			Error:   code,
			Message: "Failed to load filter data. Please try refreshing the catalog.",
		}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, ErrorResponse{
			Error:   CodeTimeout,
			Message: "The request took too long. Please try again.",
		}
	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error:   CodeInternal,
			Message: "Internal error",
		}
	}
}

// Error logs err with the handler op and request id and writes the mapped body.
func Error(w http.ResponseWriter, r *http.Request, log *slog.Logger, op string, err error) {
	status, body := Map(err)

	l := log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
	if status >= http.StatusInternalServerError {
		l.Error("request failed")
	} else {
		l.Warn("request rejected")
	}

	render.Status(r, status)
	render.JSON(w, r, body)
}

func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Error: CodeBadRequest, Message: message})
}
