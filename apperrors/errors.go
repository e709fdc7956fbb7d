package apperrors

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error is the application error carried from the service layer up to the
// HTTP handlers. Code is the HTTP status the handler should respond with.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

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

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Validation reports malformed input rejected at the engine boundary.
func Validation(message string) *Error {
	return New(http.StatusBadRequest, message, nil)
}

// NotFound reports a missing entity, or one not owned by the caller.
func NotFound(message string) *Error {
	return New(http.StatusNotFound, message, nil)
}

// InvalidState reports an operation that is not legal for the entity's
// current lifecycle state.
func InvalidState(message string) *Error {
	return New(http.StatusBadRequest, message, nil)
}

// Expired reports a deadline or one-time code that has lapsed.
func Expired(message string) *Error {
	return New(http.StatusConflict, message, nil)
}

// Unauthorized reports an auth or signature failure.
func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, message, nil)
}

// Internal wraps a store/gateway/unexpected failure. The wrapped error is
// logged but never serialized into the response body.
func Internal(message string, err error) *Error {
	return New(http.StatusInternalServerError, message, err)
}

// Common error types
var (
	ErrBadRequest     = New(http.StatusBadRequest, "Bad request", nil)
	ErrUnauthorized   = New(http.StatusUnauthorized, "Unauthorized", nil)
	ErrForbidden      = New(http.StatusForbidden, "Forbidden", nil)
	ErrNotFound       = New(http.StatusNotFound, "Not found", nil)
	ErrInternalServer = New(http.StatusInternalServerError, "Internal server error", nil)
)

// Handle writes err as a structured JSON body. Non-application errors are
// masked behind a generic 500 so internals never leak.
func Handle(c *gin.Context, err error) {
	if appErr, ok := err.(*Error); ok {
		c.JSON(appErr.Code, gin.H{"message": appErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"message": ErrInternalServer.Message})
}

// ErrorMiddleware renders any error attached to the gin context.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			Handle(c, c.Errors.Last().Err)
			c.Abort()
		}
	}
}
