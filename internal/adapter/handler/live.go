package handler

import (
	"context"
	stdErrors "errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/salescoach-team/coaching-engine/errors"
	"github.com/salescoach-team/coaching-engine/internal/domain/entities"
	"github.com/salescoach-team/coaching-engine/internal/infrastructure/ticket"
	"github.com/salescoach-team/coaching-engine/internal/usecase/session"
	"github.com/salescoach-team/coaching-engine/pkg/jwt"
)

const (
	// maxMessageSize bounds inbound frames; transcript chunks are small.
	maxMessageSize = 32 * 1024

	writeWait = 10 * time.Second
)

// Live upgrades authenticated clients to the coaching websocket and runs the
// per-connection read loop.
type Live struct {
	manager    *session.Manager
	tickets    *ticket.Manager
	jwtManager *jwt.Manager
	upgrader   websocket.Upgrader

	pingInterval time.Duration
	pongWait     time.Duration
	logger       *zap.Logger
}

// NewLive creates the websocket handler. allowedOrigins guards the upgrade;
// an empty list allows same-origin only.
func NewLive(
	manager *session.Manager,
	tickets *ticket.Manager,
	jwtManager *jwt.Manager,
	allowedOrigins []string,
	pingInterval time.Duration,
	pingMisses int,
	logger *zap.Logger,
) *Live {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	if pingMisses <= 0 {
		pingMisses = 3
	}

	origins := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origins[origin] = true
	}

	return &Live{
		manager:    manager,
		tickets:    tickets,
		jwtManager: jwtManager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return origins[origin]
			},
		},
		pingInterval: pingInterval,
		pongWait:     time.Duration(pingMisses) * pingInterval,
		logger:       logger,
	}
}

// Serve handles GET /v1/coach/live/:meetingId. Authentication happens before
// the upgrade: either a one-time ticket from the session-create endpoint or a
// bearer JWT in the token query parameter. Refusals are plain HTTP errors so
// clients see a clean 4xx instead of a half-open socket.
func (h *Live) Serve(c echo.Context) error {
	meetingID := c.Param("meetingId")
	if meetingID == "" {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("meeting id is required"))
	}

	identity, err := h.authenticate(c, meetingID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		return nil
	}

	h.run(conn, meetingID, identity)
	return nil
}

// authenticate resolves the connecting identity from a ticket or a JWT.
func (h *Live) authenticate(c echo.Context, meetingID string) (*ticket.Claims, error) {
	if tk := c.QueryParam("ticket"); tk != "" {
		claims, ok := h.tickets.Consume(tk)
		if !ok {
			return nil, errors.ErrPendingTicketInvalid()
		}
		if claims.MeetingID != meetingID {
			return nil, errors.ErrForbidden("ticket was issued for a different meeting")
		}
		return claims, nil
	}

	token := c.QueryParam("token")
	if token == "" {
		return nil, errors.ErrUnauthenticated()
	}

	claims, err := h.jwtManager.VerifyAccessToken(token)
	if err != nil {
		if stdErrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ErrTokenExpired()
		}
		return nil, errors.ErrInvalidToken()
	}

	return &ticket.Claims{
		MeetingID:      meetingID,
		OrganizationID: claims.OrganizationID,
		UserID:         claims.UserID,
	}, nil
}

// run owns the connection from open to close: registers the session, keeps
// the peer alive with pings and pumps inbound messages into the manager.
func (h *Live) run(conn *websocket.Conn, meetingID string, identity *ticket.Claims) {
	ctx := context.Background()

	sess, err := h.manager.Open(ctx, meetingID, identity.OrganizationID, identity.UserID, conn)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("❌ Failed to open coaching session",
				zap.String("meeting_id", meetingID),
				zap.Error(err),
			)
		}
		conn.Close()
		return
	}

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.pongWait))
		return nil
	})

	dispatcher, err := h.manager.Dispatcher(sess.ID)
	if err == nil {
		go h.keepAlive(dispatcher)
	}

	closeReason := "client_disconnected"
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				closeReason = "client_closed"
			} else if h.logger != nil {
				h.logger.Debug("websocket read ended",
					zap.String("session_id", sess.ID.String()),
					zap.Error(err),
				)
			}
			break
		}

		if err := h.manager.HandleMessage(ctx, sess.ID, raw); err != nil {
			if stdErrors.Is(err, entities.ErrSessionNotFound) || stdErrors.Is(err, entities.ErrSessionClosed) {
				break
			}
			if h.logger != nil {
				h.logger.Warn("⚠️ Message handling failed",
					zap.String("session_id", sess.ID.String()),
					zap.Error(err),
				)
			}
		}
	}

	h.manager.Close(ctx, sess.ID, closeReason)
}

// keepAlive pings the peer on an interval until the dispatcher is closed.
// Missed pongs surface as a read deadline hit in the read loop.
func (h *Live) keepAlive(dispatcher *session.Dispatcher) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		if err := dispatcher.Ping(websocket.PingMessage, time.Now().Add(writeWait)); err != nil {
			return
		}
	}
}
