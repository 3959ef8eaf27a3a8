// Package apperrors defines the errors handlers hand to the error middleware.
package apperrors

import (
	"fmt"
	"net/http"
	"strings"
)

// AppError is an error that already carries its HTTP status and the message
// shown to the client.
type AppError struct {
	Status  int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError with the given status and message.
func New(status int, message string) *AppError {
	return &AppError{Status: status, Message: message}
}

// Wrap attaches a status and client message to an underlying error.
func Wrap(err error, status int, message string) *AppError {
	return &AppError{Status: status, Message: message, Err: err}
}

// NotFound creates a 404 AppError.
func NotFound(message string) *AppError {
	return New(http.StatusNotFound, message)
}

// FieldError describes one field that failed validation.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError reports every field of a document that failed validation.
type ValidationError struct {
	Model  string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%s validation failed: %s", e.Model, strings.Join(parts, ", "))
}

// Add appends a field failure.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}
