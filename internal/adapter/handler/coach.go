package handler

import (
	stdErrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/salescoach-team/coaching-engine/errors"
	"github.com/salescoach-team/coaching-engine/internal/adapter/dto/coach"
	"github.com/salescoach-team/coaching-engine/internal/domain/entities"
	"github.com/salescoach-team/coaching-engine/internal/domain/repositories"
	"github.com/salescoach-team/coaching-engine/internal/infrastructure/ticket"
	"github.com/salescoach-team/coaching-engine/internal/usecase/session"
	"github.com/salescoach-team/coaching-engine/pkg/jwt"
)

// Coach handles the REST surface around live coaching: session tickets,
// session lookup and per-organization config.
type Coach struct {
	manager    *session.Manager
	tickets    *ticket.Manager
	jwtManager *jwt.Manager
	configs    repositories.ConfigRepository
	snapshots  repositories.SessionSnapshotRepository
	logger     *zap.Logger
}

// NewCoach creates a new coach handler
func NewCoach(
	manager *session.Manager,
	tickets *ticket.Manager,
	jwtManager *jwt.Manager,
	configs repositories.ConfigRepository,
	snapshots repositories.SessionSnapshotRepository,
	logger *zap.Logger,
) *Coach {
	return &Coach{
		manager:    manager,
		tickets:    tickets,
		jwtManager: jwtManager,
		configs:    configs,
		snapshots:  snapshots,
		logger:     logger,
	}
}

// authenticate verifies the bearer token and returns its claims.
func (h *Coach) authenticate(c echo.Context) (*jwt.Claims, error) {
	token := ExtractToken(c.Request())
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
	return claims, nil
}

// CreateSession issues a one-time websocket ticket for a call.
// POST /v1/coach/sessions
func (h *Coach) CreateSession(c echo.Context) error {
	claims, err := h.authenticate(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	var req coach.CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	tk, err := h.tickets.Issue(ticket.Claims{
		MeetingID:      req.MeetingID,
		OrganizationID: claims.OrganizationID,
		UserID:         claims.UserID,
	})
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInternal(err))
	}

	if h.logger != nil {
		h.logger.Info("🎫 Session ticket issued",
			zap.String("meeting_id", req.MeetingID),
			zap.String("organization_id", claims.OrganizationID),
			zap.String("user_id", claims.UserID.String()),
		)
	}

	return HandleSuccess(h.logger, c, coach.CreateSessionResponse{
		Ticket:          tk,
		WebsocketPath:   fmt.Sprintf("/v1/coach/live/%s", req.MeetingID),
		TicketExpiresIn: 120,
		MeetingID:       req.MeetingID,
	})
}

// GetSession returns a finished session's recorded outcome.
// GET /v1/coach/sessions/:id
func (h *Coach) GetSession(c echo.Context) error {
	claims, err := h.authenticate(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid session id"))
	}

	snapshot, err := h.snapshots.Get(c.Request().Context(), sessionID)
	if err != nil {
		if stdErrors.Is(err, entities.ErrSessionNotFound) {
			return HandleError(h.logger, c, errors.ErrSessionNotFound(sessionID.String()))
		}
		return HandleError(h.logger, c, errors.ErrInternal(err))
	}

	if snapshot.OrganizationID != claims.OrganizationID {
		return HandleError(h.logger, c, errors.ErrForbidden("session belongs to another organization"))
	}

	return HandleSuccess(h.logger, c, coach.NewSessionResponse(snapshot))
}

// EndSession force-closes a live session.
// DELETE /v1/coach/sessions/:id
func (h *Coach) EndSession(c echo.Context) error {
	if _, err := h.authenticate(c); err != nil {
		return HandleError(h.logger, c, err)
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid session id"))
	}

	if err := h.manager.Close(c.Request().Context(), sessionID, "client_request"); err != nil {
		if stdErrors.Is(err, entities.ErrSessionNotFound) {
			return HandleError(h.logger, c, errors.ErrSessionNotFound(sessionID.String()))
		}
		return HandleError(h.logger, c, errors.ErrInternal(err))
	}

	return HandleSuccess(h.logger, c, map[string]string{"status": "closed"})
}

// GetConfig returns the organization's coaching config, falling back to
// defaults when nothing is stored.
// GET /v1/coach/organizations/:orgId/config
func (h *Coach) GetConfig(c echo.Context) error {
	claims, err := h.authenticate(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	orgID := c.Param("orgId")
	if orgID != claims.OrganizationID {
		return HandleError(h.logger, c, errors.ErrForbidden("config belongs to another organization"))
	}

	cfg, err := h.configs.Get(c.Request().Context(), orgID)
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInternal(err))
	}
	if cfg == nil {
		defaults := entities.DefaultCoachingConfig()
		cfg = &defaults
	}

	return HandleSuccess(h.logger, c, coach.NewConfigResponse(*cfg))
}

// UpdateConfig applies a partial update to the organization's stored config.
// PUT /v1/coach/organizations/:orgId/config
func (h *Coach) UpdateConfig(c echo.Context) error {
	claims, err := h.authenticate(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	orgID := c.Param("orgId")
	if orgID != claims.OrganizationID {
		return HandleError(h.logger, c, errors.ErrForbidden("config belongs to another organization"))
	}

	var req coach.UpdateConfigRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	ctx := c.Request().Context()
	current, err := h.configs.Get(ctx, orgID)
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInternal(err))
	}
	if current == nil {
		defaults := entities.DefaultCoachingConfig()
		current = &defaults
	}

	merged := current.Apply(req.ToEntity())
	if err := h.configs.Save(ctx, orgID, merged); err != nil {
		return HandleError(h.logger, c, errors.ErrInternal(err))
	}

	if h.logger != nil {
		h.logger.Info("⚙️ Organization coaching config updated",
			zap.String("organization_id", orgID),
		)
	}

	return HandleSuccess(h.logger, c, coach.NewConfigResponse(merged))
}
