package entities

import "errors"

// Domain errors
var (
	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session closed")
	ErrInvalidToken    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token expired")

	// Coaching errors
	ErrInsufficientContext = errors.New("insufficient conversation context")
	ErrCooldownActive      = errors.New("suggestion cooldown active")
	ErrNoSuggestion        = errors.New("no suggestion produced")
	ErrConnectionClosed    = errors.New("connection closed")

	// Generic errors
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid request")
)
