package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-assignment-api/internal/constants"
)

// Error codes
const (
	// Authentication errors
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"

	// Authorization errors
	ErrCodeForbidden = "FORBIDDEN"

	// Validation errors
	ErrCodeInvalidInput = "INVALID_INPUT"

	// Resource errors
	ErrCodeNotFound = "NOT_FOUND"
	ErrCodeConflict = "CONFLICT"

	// Business logic errors
	ErrCodeInvalidOperation = "INVALID_OPERATION"

	// Throttling
	ErrCodeRateLimited = "RATE_LIMITED"

	// Service errors
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// APIError represents a standardized API error response
type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Field     string      `json:"field,omitempty"`
	Details   interface{} `json:"details,omitempty"`
	RequestID string      `json:"requestId,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new APIError
func NewAPIError(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

// RespondWithError sends an error response and stops the handler chain.
// The request ID is copied from the context when the RequestID middleware ran.
func RespondWithError(c *gin.Context, statusCode int, err *APIError) {
	out := *err
	if out.RequestID == "" {
		out.RequestID = c.GetString(constants.ContextKeyRequestID)
	}
	c.AbortWithStatusJSON(statusCode, &out)
}

// respond writes code with message, or fallback when message is empty.
func respond(c *gin.Context, status int, code, message, fallback string) {
	if message == "" {
		message = fallback
	}
	RespondWithError(c, status, NewAPIError(code, message))
}

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	respond(c, http.StatusUnauthorized, ErrCodeUnauthorized, message, "Authentication required")
}

// InvalidCredentials sends the 401 response for a failed login. Unknown
// usernames and wrong passwords share it.
func InvalidCredentials(c *gin.Context) {
	respond(c, http.StatusUnauthorized, ErrCodeInvalidCredentials, "", "Invalid username or password")
}

// Forbidden sends a 403 response
func Forbidden(c *gin.Context, message string) {
	respond(c, http.StatusForbidden, ErrCodeForbidden, message, "Access denied")
}

// InvalidOperation sends a 403 for a request that is understood but refused,
// such as deleting one's own account
func InvalidOperation(c *gin.Context, message string) {
	respond(c, http.StatusForbidden, ErrCodeInvalidOperation, message, "Operation not allowed")
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, message string) {
	respond(c, http.StatusNotFound, ErrCodeNotFound, message, "Resource not found")
}

// BadRequestField sends a 400 naming the rejected field
func BadRequestField(c *gin.Context, field, message string) {
	apiErr := NewAPIError(ErrCodeInvalidInput, message)
	apiErr.Field = field
	RespondWithError(c, http.StatusBadRequest, apiErr)
}

// Conflict sends a 409 response
func Conflict(c *gin.Context, message string) {
	respond(c, http.StatusConflict, ErrCodeConflict, message, "Resource conflict")
}

// RateLimited sends a 429 response
func RateLimited(c *gin.Context, message string) {
	respond(c, http.StatusTooManyRequests, ErrCodeRateLimited, message, "Too many requests. Please try again shortly.")
}

// InternalError sends a 500 response. Causes are logged by the caller and
// never echoed to the client.
func InternalError(c *gin.Context, message string) {
	respond(c, http.StatusInternalServerError, ErrCodeInternalError, message, "Internal server error")
}

// ServiceUnavailable sends a 503 response
func ServiceUnavailable(c *gin.Context, message string) {
	respond(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message, "Service temporarily unavailable")
}
