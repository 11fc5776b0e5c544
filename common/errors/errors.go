package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shivamdarekar/TrendsWave/common/logger"
)

// Error represents an application error carrying the HTTP status it maps to.
type Error struct {
	Code    int    `json:"-"`
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

// Is matches on code and message so copies made by Wrap still compare equal
// to the sentinel they came from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == e.Message
}

// JSON returns the error as a JSON string
func (e *Error) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// Wrap returns a copy of e that carries err as its cause.
func (e *Error) Wrap(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Err: err}
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// BadRequest, NotFound and Forbidden build one-off errors with a custom message.
func BadRequest(message string) *Error { return New(http.StatusBadRequest, message, nil) }

func NotFound(message string) *Error { return New(http.StatusNotFound, message, nil) }

func Forbidden(message string) *Error { return New(http.StatusForbidden, message, nil) }

func Unauthorized(message string) *Error { return New(http.StatusUnauthorized, message, nil) }

func Conflict(message string) *Error { return New(http.StatusConflict, message, nil) }

// Internal wraps an unexpected failure; the message is what the client sees.
func Internal(message string, err error) *Error {
	return New(http.StatusInternalServerError, message, err)
}

// Common error types
var (
	ErrBadRequest         = New(http.StatusBadRequest, "Bad request", nil)
	ErrUnauthorized       = New(http.StatusUnauthorized, "Unauthorized", nil)
	ErrForbidden          = New(http.StatusForbidden, "Forbidden", nil)
	ErrNotFound           = New(http.StatusNotFound, "Not found", nil)
	ErrConflict           = New(http.StatusConflict, "Conflict", nil)
	ErrTooManyRequests    = New(http.StatusTooManyRequests, "Too many requests", nil)
	ErrInternalServer     = New(http.StatusInternalServerError, "Internal server error", nil)
	ErrServiceUnavailable = New(http.StatusServiceUnavailable, "Service unavailable", nil)
)

// Authentication error types
var (
	ErrInvalidCredentials = New(http.StatusBadRequest, "Invalid Credentials", nil)
	ErrNoToken            = New(http.StatusUnauthorized, "Not authorized, no token provided", nil)
	ErrInvalidToken       = New(http.StatusUnauthorized, "Not authorized, token failed", nil)
	ErrNotAdmin           = New(http.StatusForbidden, "Not authorized as an admin", nil)
)

// From converts any error into an *Error. Unknown errors become a 500 that
// keeps the original as its cause.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return ErrInternalServer.Wrap(err)
}

// Respond writes err as a JSON body. Server-side failures are logged with the
// request id and never leak their cause to the client.
func Respond(c *gin.Context, err error) {
	appErr := From(err)
	if appErr.Code >= http.StatusInternalServerError {
		logger.Error(c, appErr.Message, appErr.Err, zap.String("path", c.FullPath()))
	}
	c.AbortWithStatusJSON(appErr.Code, gin.H{"message": appErr.Message})
}

// ErrorMiddleware renders the last error attached with c.Error when the
// handler did not write a response itself.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		Respond(c, c.Errors.Last().Err)
	}
}
