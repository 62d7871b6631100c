package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error represents an application error rendered to HTTP clients.
type Error struct {
	Code    int                    `json:"-"`
	Type    string                 `json:"code"`
	Message string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
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

// WithDetail returns a copy of e carrying an extra detail field.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	cp := *e
	cp.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

// New creates a new Error
func New(code int, errType, message string, err error) *Error {
	return &Error{
		Code:    code,
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Constructors for the error classes the service renders.
func BadRequest(errType, message string, err error) *Error {
	return New(http.StatusBadRequest, errType, message, err)
}

func NotFound(errType, message string, err error) *Error {
	return New(http.StatusNotFound, errType, message, err)
}

func Conflict(errType, message string, err error) *Error {
	return New(http.StatusConflict, errType, message, err)
}

func BadGateway(errType, message string, err error) *Error {
	return New(http.StatusBadGateway, errType, message, err)
}

func Internal(message string, err error) *Error {
	return New(http.StatusInternalServerError, "INTERNAL_ERROR", message, err)
}

// ErrorMiddleware renders the last error attached to the gin context.
// Errors that are not *Error become a generic 500 so internals never leak.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		var appErr *Error
		if !stderrors.As(err, &appErr) {
			appErr = Internal("Internal server error", err)
		}
		c.AbortWithStatusJSON(appErr.Code, appErr)
	}
}
