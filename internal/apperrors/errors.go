// Package apperrors defines the application error taxonomy shared by HTTP
// handlers, the chat engine, and the store gateways. Every error carries a
// stable machine-readable code and the HTTP status it should map to, so
// handlers can render a uniform error envelope without inspecting error
// strings.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned in the error envelope. These are part of the public
// API contract; clients branch on them, so they must stay stable.
const (
	CodeAuth       = "AUTH_ERROR"
	CodeAuthz      = "AUTHZ_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeValidation = "VALIDATION_ERROR"
	CodeStore      = "DB_ERROR"
	CodeCloudAPI   = "CLOUD_API_ERROR"
	CodeGeneration = "LLM_ERROR"
	CodeInternal   = "INTERNAL_ERROR"
)

// Error is the application error type. Message is safe to return to clients;
// Err holds the underlying cause for logs only.
type Error struct {
	Code    string
	Message string
	Status  int
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetails attaches client-visible detail fields and returns the error for
// chaining.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// AuthenticationFailed reports an invalid, missing, revoked, or expired
// credential. The external message is deliberately uniform so callers cannot
// distinguish which check failed.
func AuthenticationFailed() *Error {
	return &Error{Code: CodeAuth, Message: "invalid API key", Status: http.StatusUnauthorized}
}

// AuthorizationFailed reports a valid credential used outside its tenant.
func AuthorizationFailed(msg string) *Error {
	if msg == "" {
		msg = "not authorized"
	}
	return &Error{Code: CodeAuthz, Message: msg, Status: http.StatusForbidden}
}

// NotFound reports a missing entity within the caller's organization.
func NotFound(resource string) *Error {
	return &Error{Code: CodeNotFound, Message: resource + " not found", Status: http.StatusNotFound}
}

// Validation reports malformed or out-of-range caller input.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg, Status: http.StatusUnprocessableEntity}
}

// Store wraps a graph or vector store failure. The underlying error is kept
// for logging; clients only see the generic message.
func Store(err error) *Error {
	return &Error{Code: CodeStore, Message: "storage operation failed", Status: http.StatusInternalServerError, Err: err}
}

// CloudAPI wraps an upstream cloud-provider failure.
func CloudAPI(err error) *Error {
	return &Error{Code: CodeCloudAPI, Message: "cloud provider request failed", Status: http.StatusBadGateway, Err: err}
}

// Generation wraps a model-backend failure.
func Generation(err error) *Error {
	return &Error{Code: CodeGeneration, Message: "response generation failed", Status: http.StatusServiceUnavailable, Err: err}
}

// internal is the fallback for errors that carry no classification.
func internal(err error) *Error {
	return &Error{Code: CodeInternal, Message: "internal server error", Status: http.StatusInternalServerError, Err: err}
}

// FromError returns err as an *Error, classifying unknown errors as internal
// server errors so handlers never leak raw error strings.
func FromError(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return internal(err)
}

// IsCode reports whether err is an application error with the given code.
func IsCode(err error, code string) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}
