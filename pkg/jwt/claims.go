package jwt

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims represents JWT custom claims carried by a coaching client credential
type Claims struct {
	UserID         uuid.UUID `json:"user_id"`
	OrganizationID string    `json:"organization_id"`
	Email          string    `json:"email"`
	jwt.RegisteredClaims
}
