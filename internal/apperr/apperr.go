// Package apperr defines the error taxonomy shared by every HTTP-facing
// package and its mapping onto status codes and response bodies.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind classifies an error for transport mapping.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindAuth        Kind = "auth"
	KindNotFound    Kind = "not_found"
	KindRateLimited Kind = "rate_limited"
	KindInternal    Kind = "internal"
)

var statusByKind = map[Kind]int{
	KindValidation:  http.StatusBadRequest,
	KindAuth:        http.StatusUnauthorized,
	KindNotFound:    http.StatusNotFound,
	KindRateLimited: http.StatusTooManyRequests,
	KindInternal:    http.StatusInternalServerError,
}

// Error is a classified application error. Message is safe to show to the
// caller; Err carries the internal cause.
type Error struct {
	Kind    Kind
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports a request that cannot be processed as submitted.
func Validation(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: msg}
}

// Unauthorized reports a missing, invalid or expired credential.
func Unauthorized(msg string) *Error {
	return &Error{Kind: KindAuth, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func RateLimited() *Error {
	return &Error{Kind: KindRateLimited, Message: "limite de requisições excedido, tente novamente em instantes"}
}

// Internal wraps an unexpected failure behind a generic message.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "erro interno ao processar a solicitação", Err: err}
}

// KindOf returns the kind of err, defaulting to KindInternal for
// unclassified errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// Status maps err onto an HTTP status code.
func Status(err error) int {
	if status, ok := statusByKind[KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Body builds the JSON error body. Internal causes are only exposed when
// devMode is set.
func Body(err error, devMode bool) gin.H {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = Internal(err)
	}

	body := gin.H{
		"error": appErr.Message,
		"code":  string(appErr.Kind),
	}
	if appErr.Field != "" {
		body["field"] = appErr.Field
	}
	if devMode && appErr.Err != nil {
		body["detail"] = appErr.Err.Error()
	}
	return body
}

// Respond writes err as a JSON error response and aborts the chain.
func Respond(c *gin.Context, err error, devMode bool) {
	c.AbortWithStatusJSON(Status(err), Body(err, devMode))
}
