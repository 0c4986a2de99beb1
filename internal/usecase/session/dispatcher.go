package session

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/salescoach-team/coaching-engine/internal/domain/entities"
)

// Conn is the subset of the websocket connection the dispatcher needs.
// *websocket.Conn satisfies it.
type Conn interface {
	WriteJSON(v interface{}) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// Dispatcher serializes outbound writes to one session's connection.
// Gorilla websocket connections allow at most one concurrent writer, and
// analysis results can arrive from multiple goroutines, so every write goes
// through the dispatcher's mutex. Once closed it silently drops events.
type Dispatcher struct {
	conn   Conn
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewDispatcher wraps a connection for serialized event delivery
func NewDispatcher(conn Conn, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{conn: conn, logger: logger}
}

// Send writes one event envelope to the client. Events sent after Close are
// dropped and reported as ErrConnectionClosed; late async results hitting a
// torn-down session are expected and callers treat that error as benign.
func (d *Dispatcher) Send(event entities.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return entities.ErrConnectionClosed
	}

	if err := d.conn.WriteJSON(event); err != nil {
		if d.logger != nil {
			d.logger.Warn("⚠️ Failed to write event to client",
				zap.String("event_type", string(event.Type)),
				zap.Error(err),
			)
		}
		return err
	}
	return nil
}

// Ping sends a websocket control ping with a short write deadline.
func (d *Dispatcher) Ping(messageType int, deadline time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return entities.ErrConnectionClosed
	}
	return d.conn.WriteControl(messageType, nil, deadline)
}

// Close marks the dispatcher closed and closes the underlying connection.
// Safe to call more than once.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.conn.Close()
}
