package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error represents an application error
type Error struct {
	Code    string `json:"code"`
	Status  int    `json:"-"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same code, so wrapped copies of a
// sentinel still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New creates a new Error
func New(code string, status int, message string) *Error {
	return &Error{
		Code:    code,
		Status:  status,
		Message: message,
	}
}

// Wrap returns a copy of base carrying err as its cause. Sentinels are never mutated.
func Wrap(base *Error, err error) *Error {
	return &Error{
		Code:    base.Code,
		Status:  base.Status,
		Message: base.Message,
		Err:     err,
	}
}

// Wrapf is Wrap with a formatted cause.
func Wrapf(base *Error, format string, args ...interface{}) *Error {
	return Wrap(base, fmt.Errorf(format, args...))
}

// Credential errors
var (
	ErrUnauthenticated = New("unauthenticated", http.StatusUnauthorized, "Authentication required")
	ErrInvalidToken    = New("invalid_token", http.StatusUnauthorized, "Invalid or expired token")
	ErrForbidden       = New("forbidden", http.StatusForbidden, "Forbidden")
)

// Request errors
var (
	ErrValidation = New("validation_error", http.StatusBadRequest, "Validation error")
	ErrNotFound   = New("not_found", http.StatusNotFound, "Not found")
)

// Upstream and payment errors
var (
	ErrUpstreamUnavailable      = New("upstream_unavailable", http.StatusServiceUnavailable, "Upstream service unavailable")
	ErrCheckoutInitiationFailed = New("checkout_initiation_failed", http.StatusBadGateway, "Unable to create checkout session.")
	ErrSignatureInvalid         = New("signature_invalid", http.StatusBadRequest, "Invalid webhook signature")
	ErrInternal                 = New("internal_error", http.StatusInternalServerError, "Internal server error")
)

// From resolves err to an *Error, falling back to ErrInternal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(ErrInternal, err)
}

// ErrorResponse writes err as a JSON body using the status of its application error.
// Causes are never serialized; they only reach the logs.
func ErrorResponse(c *gin.Context, err error) {
	appErr := From(err)
	c.AbortWithStatusJSON(appErr.Status, gin.H{
		"code":  appErr.Code,
		"error": appErr.Message,
	})
}
