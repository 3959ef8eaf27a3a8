package middleware

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Lixing-Zhang/farmstand/internal/apperrors"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const (
	defaultErrorStatus  = http.StatusInternalServerError
	defaultErrorMessage = "Something went wrong"
	validationPrefix    = "Validation failed..."
)

// HandlerFunc is an HTTP handler that returns its failure instead of
// writing it.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// ErrorHandler turns errors returned by handlers into HTTP responses.
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Wrap adapts fn to http.HandlerFunc. Every error fn returns goes through
// ClassifyError and WriteError.
func (e *ErrorHandler) Wrap(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			e.Handle(w, r, err)
		}
	}
}

// Handle classifies err, logs it and writes the response.
func (e *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	appErr := ClassifyError(err)

	attrs := []any{
		"method", r.Method,
		"path", r.URL.Path,
		"status", appErr.Status,
		"request_id", chimiddleware.GetReqID(r.Context()),
		"error", err,
	}
	if appErr.Status >= http.StatusInternalServerError {
		e.logger.Error("request failed", attrs...)
	} else {
		e.logger.Info("request rejected", attrs...)
	}

	WriteError(w, appErr)
}

// ClassifyError maps any error onto an AppError. Validation failures become
// 400s, AppErrors pass through, and everything else is an opaque 500.
func ClassifyError(err error) *apperrors.AppError {
	var verr *apperrors.ValidationError
	if errors.As(err, &verr) {
		return apperrors.Wrap(err, http.StatusBadRequest, validationPrefix+verr.Error())
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return apperrors.Wrap(err, defaultErrorStatus, defaultErrorMessage)
}

// WriteError writes the bare message as the whole response body.
func WriteError(w http.ResponseWriter, appErr *apperrors.AppError) {
	status := appErr.Status
	if status == 0 {
		status = defaultErrorStatus
	}
	message := appErr.Message
	if message == "" {
		message = defaultErrorMessage
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, message)
}
