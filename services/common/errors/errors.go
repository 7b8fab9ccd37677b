package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Stable machine-readable error codes returned in the response envelope.
const (
	CodeValidation            = "validation_error"
	CodeUnauthorized          = "unauthorized"
	CodeForbidden             = "forbidden"
	CodeNotFound              = "not_found"
	CodeConflict              = "conflict"
	CodeInsufficientStock     = "insufficient_stock"
	CodeRateLimited           = "rate_limited"
	CodeDependencyUnavailable = "dependency_unavailable"
)

// Error represents an application error
type Error struct {
	Status  int         `json:"-"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	// Discriminator is surfaced as a top-level "status" field (login of a
	// pending or suspended dealer).
	Discriminator string `json:"-"`
	Err           error  `json:"-"`
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

// Is matches two application errors of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Status == e.Status
}

// JSON returns the error as a JSON string
func (e *Error) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// WithDetails returns a copy carrying extra structured details.
func (e *Error) WithDetails(details interface{}) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// WithStatus returns a copy carrying a top-level status discriminator.
func (e *Error) WithStatus(status string) *Error {
	cp := *e
	cp.Discriminator = status
	return &cp
}

// New creates a new Error
func New(status int, code, message string, err error) *Error {
	return &Error{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Taxonomy constructors. Each wraps the underlying cause, which is only
// rendered outside production.

func Validation(message string, err error) *Error {
	return New(http.StatusBadRequest, CodeValidation, message, err)
}

func Unauthorized(message string, err error) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, message, err)
}

func Forbidden(message string, err error) *Error {
	return New(http.StatusForbidden, CodeForbidden, message, err)
}

func NotFound(message string, err error) *Error {
	return New(http.StatusNotFound, CodeNotFound, message, err)
}

func Conflict(message string, err error) *Error {
	return New(http.StatusConflict, CodeConflict, message, err)
}

func InsufficientStock(message string, err error) *Error {
	return New(http.StatusConflict, CodeInsufficientStock, message, err)
}

func RateLimited(message string, err error) *Error {
	return New(http.StatusTooManyRequests, CodeRateLimited, message, err)
}

func DependencyUnavailable(message string, err error) *Error {
	return New(http.StatusInternalServerError, CodeDependencyUnavailable, message, err)
}

// Sentinels for errors.Is checks.
var (
	ErrValidation            = Validation("Validation error", nil)
	ErrUnauthorized          = Unauthorized("Unauthorized", nil)
	ErrForbidden             = Forbidden("Forbidden", nil)
	ErrNotFound              = NotFound("Not found", nil)
	ErrConflict              = Conflict("Conflict", nil)
	ErrInsufficientStock     = InsufficientStock("Insufficient stock", nil)
	ErrRateLimited           = RateLimited("Rate limit exceeded. Please try again later.", nil)
	ErrDependencyUnavailable = DependencyUnavailable("Service temporarily unavailable", nil)
)

// From converts any error into an application error. Unknown errors become
// DependencyUnavailable.
func From(err error) *Error {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return DependencyUnavailable("Service temporarily unavailable", err)
}

// Body builds the failure envelope. The wrapped cause is attached only when
// exposeCause is set (non-production).
func (e *Error) Body(exposeCause bool) gin.H {
	errBody := gin.H{
		"code":    e.Code,
		"message": e.Message,
	}
	body := gin.H{
		"success": false,
		"error":   errBody,
	}
	if e.Discriminator != "" {
		body["status"] = e.Discriminator
	}
	if e.Details != nil {
		body["details"] = e.Details
	}
	if exposeCause && e.Err != nil {
		errBody["cause"] = e.Err.Error()
	}
	return body
}

// exposeCause is toggled once at start-up from APP_ENV.
var exposeCause = true

// SetProduction hides wrapped causes from responses.
func SetProduction(production bool) {
	exposeCause = !production
}

// Respond writes err as a failure envelope and aborts the chain.
func Respond(c *gin.Context, err error) {
	appErr := From(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(appErr.Status, appErr.Body(exposeCause))
}

// OK writes a success envelope.
func OK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// HandleError writes err to a plain http.ResponseWriter.
func HandleError(w http.ResponseWriter, err error) {
	appErr := From(err)
	b, _ := json.Marshal(appErr.Body(exposeCause))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Status)
	_, _ = w.Write(b)
}

// ErrorMiddleware renders errors attached with c.Error when the handler did
// not write a response itself.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			appErr := From(c.Errors.Last().Err)
			c.JSON(appErr.Status, appErr.Body(exposeCause))
			c.Abort()
		}
	}
}
