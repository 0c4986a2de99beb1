package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/salescoach-team/coaching-engine/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg          *config.Config
	coachHandler *Coach
	liveHandler  *Live
}

// NewRouter creates a new router with all handlers
func NewRouter(cfg *config.Config, coachHandler *Coach, liveHandler *Live) *Router {
	return &Router{
		cfg:          cfg,
		coachHandler: coachHandler,
		liveHandler:  liveHandler,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", rt.healthCheck)

	// API v1 group
	v1 := e.Group("/v1")

	rt.setupCoachRoutes(v1)
}

// setupCoachRoutes configures coaching routes
func (rt *Router) setupCoachRoutes(g *echo.Group) {
	coachGroup := g.Group("/coach")

	coachGroup.POST("/sessions", rt.coachHandler.CreateSession)
	coachGroup.GET("/sessions/:id", rt.coachHandler.GetSession)
	coachGroup.DELETE("/sessions/:id", rt.coachHandler.EndSession)

	coachGroup.GET("/organizations/:orgId/config", rt.coachHandler.GetConfig)
	coachGroup.PUT("/organizations/:orgId/config", rt.coachHandler.UpdateConfig)

	coachGroup.GET("/live/:meetingId", rt.liveHandler.Serve)
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": rt.cfg.Server.Environment,
	})
}
