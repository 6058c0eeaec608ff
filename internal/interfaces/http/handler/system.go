package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openbooks/backend/internal/infrastructure/persistence"
)

// SystemHandler handles health and readiness endpoints
type SystemHandler struct {
	BaseHandler
	db        *persistence.Database
	appName   string
	startedAt time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db *persistence.Database, appName string) *SystemHandler {
	return &SystemHandler{
		db:        db,
		appName:   appName,
		startedAt: time.Now(),
	}
}

// RegisterRoutes registers system routes at the engine root, outside the
// versioned API group.
func (h *SystemHandler) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/health", h.Health)
	engine.GET("/ready", h.Ready)
}

// HealthResponse reports process liveness
type HealthResponse struct {
	Status string `json:"status"`
	App    string `json:"app"`
	Uptime string `json:"uptime"`
}

// Health reports liveness without touching dependencies
func (h *SystemHandler) Health(c *gin.Context) {
	h.Success(c, HealthResponse{
		Status: "ok",
		App:    h.appName,
		Uptime: time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// Ready reports readiness, including database connectivity
func (h *SystemHandler) Ready(c *gin.Context) {
	if err := h.db.Ping(); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, HealthResponse{
		Status: "ready",
		App:    h.appName,
		Uptime: time.Since(h.startedAt).Round(time.Second).String(),
	})
}
