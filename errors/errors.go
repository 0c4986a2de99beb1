package errors

import (
	"fmt"
	"net/http"
	"time"
)

// ErrorCode identifies an application error category across API responses
// and logs.
type ErrorCode int

const (
	ErrorCode_HTTP_OK ErrorCode = 0

	// General
	ErrorCode_INTERNAL         ErrorCode = 1000
	ErrorCode_INVALID_ARGUMENT ErrorCode = 1001
	ErrorCode_NOT_FOUND        ErrorCode = 1002
	ErrorCode_ALREADY_EXISTS   ErrorCode = 1003
	ErrorCode_UNAUTHENTICATED  ErrorCode = 1004
	ErrorCode_FORBIDDEN        ErrorCode = 1005
	ErrorCode_INVALID_PAYLOAD  ErrorCode = 1006

	// Authentication
	ErrorCode_AUTH_INVALID_TOKEN ErrorCode = 2000
	ErrorCode_AUTH_TOKEN_EXPIRED ErrorCode = 2001

	// Coaching sessions
	ErrorCode_SESSION_NOT_FOUND      ErrorCode = 3000
	ErrorCode_SESSION_CLOSED         ErrorCode = 3001
	ErrorCode_SESSION_LIMIT_REACHED  ErrorCode = 3002
	ErrorCode_PENDING_TICKET_INVALID ErrorCode = 3003

	// Coaching pipeline
	ErrorCode_SUGGESTION_UNAVAILABLE ErrorCode = 4000
	ErrorCode_AI_SERVICE_UNAVAILABLE ErrorCode = 4001

	// Infrastructure
	ErrorCode_DB_QUERY_FAILED          ErrorCode = 5000
	ErrorCode_INTEGRATION_CACHE_FAILED ErrorCode = 5001
)

// String returns a stable name for the code.
func (c ErrorCode) String() string {
	switch c {
	case ErrorCode_HTTP_OK:
		return "OK"
	case ErrorCode_INTERNAL:
		return "INTERNAL"
	case ErrorCode_INVALID_ARGUMENT:
		return "INVALID_ARGUMENT"
	case ErrorCode_NOT_FOUND:
		return "NOT_FOUND"
	case ErrorCode_ALREADY_EXISTS:
		return "ALREADY_EXISTS"
	case ErrorCode_UNAUTHENTICATED:
		return "UNAUTHENTICATED"
	case ErrorCode_FORBIDDEN:
		return "FORBIDDEN"
	case ErrorCode_INVALID_PAYLOAD:
		return "INVALID_PAYLOAD"
	case ErrorCode_AUTH_INVALID_TOKEN:
		return "AUTH_INVALID_TOKEN"
	case ErrorCode_AUTH_TOKEN_EXPIRED:
		return "AUTH_TOKEN_EXPIRED"
	case ErrorCode_SESSION_NOT_FOUND:
		return "SESSION_NOT_FOUND"
	case ErrorCode_SESSION_CLOSED:
		return "SESSION_CLOSED"
	case ErrorCode_SESSION_LIMIT_REACHED:
		return "SESSION_LIMIT_REACHED"
	case ErrorCode_PENDING_TICKET_INVALID:
		return "PENDING_TICKET_INVALID"
	case ErrorCode_SUGGESTION_UNAVAILABLE:
		return "SUGGESTION_UNAVAILABLE"
	case ErrorCode_AI_SERVICE_UNAVAILABLE:
		return "AI_SERVICE_UNAVAILABLE"
	case ErrorCode_DB_QUERY_FAILED:
		return "DB_QUERY_FAILED"
	case ErrorCode_INTEGRATION_CACHE_FAILED:
		return "INTEGRATION_CACHE_FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(c))
	}
}

// AppError is the custom error type for the application
type AppError struct {
	Raw       error
	HTTPCode  int
	Code      ErrorCode
	Message   string
	Details   map[string]string
	Timestamp time.Time
}

// Error implements error interface
func (e AppError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code.String(), e.Message, e.Raw)
	}
	return fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
}

// WithDetail adds a detail to the error
func (e AppError) WithDetail(key, value string) AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// General Errors
func ErrInternal(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_INTERNAL,
		Message:  "Internal server error",
	}
}

func ErrInvalidArgument(message string) AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_ARGUMENT,
		Message:  message,
	}
}

func ErrNotFound(resource string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_NOT_FOUND,
		Message:  fmt.Sprintf("%s not found", resource),
	}
}

func ErrUnauthenticated() AppError {
	return AppError{
		HTTPCode: http.StatusUnauthorized,
		Code:     ErrorCode_UNAUTHENTICATED,
		Message:  "Authentication required",
	}
}

func ErrForbidden(message string) AppError {
	return AppError{
		HTTPCode: http.StatusForbidden,
		Code:     ErrorCode_FORBIDDEN,
		Message:  message,
	}
}

func ErrInvalidPayload() AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_PAYLOAD,
		Message:  "Invalid payload",
	}
}

// Authentication Errors
func ErrInvalidToken() AppError {
	return AppError{
		HTTPCode: http.StatusUnauthorized,
		Code:     ErrorCode_AUTH_INVALID_TOKEN,
		Message:  "Invalid authentication token",
	}
}

func ErrTokenExpired() AppError {
	return AppError{
		HTTPCode: http.StatusUnauthorized,
		Code:     ErrorCode_AUTH_TOKEN_EXPIRED,
		Message:  "Authentication token has expired",
	}
}

// Coaching Session Errors
func ErrSessionNotFound(sessionID string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_SESSION_NOT_FOUND,
		Message:  "Coaching session not found",
	}.WithDetail("session_id", sessionID)
}

func ErrSessionClosed(sessionID string) AppError {
	return AppError{
		HTTPCode: http.StatusGone,
		Code:     ErrorCode_SESSION_CLOSED,
		Message:  "Coaching session already closed",
	}.WithDetail("session_id", sessionID)
}

func ErrPendingTicketInvalid() AppError {
	return AppError{
		HTTPCode: http.StatusUnauthorized,
		Code:     ErrorCode_PENDING_TICKET_INVALID,
		Message:  "Session ticket is invalid or already used",
	}
}

// Coaching Pipeline Errors
func ErrSuggestionUnavailable(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusServiceUnavailable,
		Code:     ErrorCode_SUGGESTION_UNAVAILABLE,
		Message:  "No coaching suggestion available",
	}
}

func ErrAIServiceUnavailable(service string) AppError {
	return AppError{
		HTTPCode: http.StatusServiceUnavailable,
		Code:     ErrorCode_AI_SERVICE_UNAVAILABLE,
		Message:  "AI service temporarily unavailable",
	}.WithDetail("service", service)
}

// Infrastructure Errors
func ErrDBQueryFailed(query string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_DB_QUERY_FAILED,
		Message:  "Database query failed",
	}.WithDetail("query", query)
}

func ErrCacheFailed(operation string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_INTEGRATION_CACHE_FAILED,
		Message:  fmt.Sprintf("Cache operation failed: %s", operation),
	}
}
