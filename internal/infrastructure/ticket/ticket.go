package ticket

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store interface for ticket storage (in-memory)
type Store interface {
	Set(key string, value string, expiration time.Duration)
	Take(key string) (string, bool)
}

// Claims is the identity bound to a one-time websocket ticket. It is issued
// by the authenticated REST endpoint and consumed during the websocket
// handshake, so the browser never puts a long-lived JWT in a query string.
type Claims struct {
	MeetingID      string    `json:"meeting_id"`
	OrganizationID string    `json:"organization_id"`
	UserID         uuid.UUID `json:"user_id"`
}

// Manager issues and validates one-time connection tickets
type Manager struct {
	store      Store
	expiration time.Duration
}

// NewManager creates a ticket manager with in-memory backend
func NewManager(store Store) *Manager {
	return &Manager{
		store:      store,
		expiration: 2 * time.Minute, // Tickets expire quickly; they exist only to bridge REST auth to the websocket handshake
	}
}

// Issue generates a random ticket bound to the given claims
func (m *Manager) Issue(claims Claims) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	ticket := base64.URLEncoding.EncodeToString(b)

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("coach:ticket:%s", ticket)
	m.store.Set(key, string(payload), m.expiration)

	return ticket, nil
}

// Consume validates a ticket and returns its claims (one-time use)
func (m *Manager) Consume(ticket string) (*Claims, bool) {
	key := fmt.Sprintf("coach:ticket:%s", ticket)

	payload, exists := m.store.Take(key)
	if !exists {
		return nil, false
	}

	var claims Claims
	if err := json.Unmarshal([]byte(payload), &claims); err != nil {
		return nil, false
	}
	return &claims, true
}
