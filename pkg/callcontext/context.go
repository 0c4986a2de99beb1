package callcontext

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type contextKey string

var (
	keySessionID contextKey = "session_id"
	keyCallType  contextKey = "call_type"
	keyStartTime contextKey = "call_start_time"
)

// DefaultTimeout bounds one external AI call. Live coaching results are
// worthless if they arrive long after the conversation moved on.
const DefaultTimeout = 15 * time.Second

// Begin scopes one external AI call: a derived context with a hard timeout
// plus metadata for logging and tracing.
func Begin(parent context.Context, sessionID uuid.UUID, callType string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, DefaultTimeout)

	ctx = context.WithValue(ctx, keySessionID, sessionID)
	ctx = context.WithValue(ctx, keyCallType, callType)
	ctx = context.WithValue(ctx, keyStartTime, time.Now())

	return ctx, cancel
}

// SessionID extracts the session ID from a call context
func SessionID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(keySessionID).(uuid.UUID)
	return id, ok
}

// CallType extracts the call type from a call context
func CallType(ctx context.Context) (string, bool) {
	callType, ok := ctx.Value(keyCallType).(string)
	return callType, ok
}

// StartTime extracts the call start time from a call context
func StartTime(ctx context.Context) (time.Time, bool) {
	start, ok := ctx.Value(keyStartTime).(time.Time)
	return start, ok
}

// IsRetryable reports whether an AI service error is transient. Retryable
// errors include network failures, timeouts, rate limits and server errors.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	// Network errors
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "network unreachable") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "i/o timeout") {
		return true
	}

	// API rate limiting
	if strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "status 429") {
		return true
	}

	// Server errors (5xx)
	if strings.Contains(errStr, "status 5") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "bad gateway") {
		return true
	}

	return false
}
