package handler

import (
	"net/http"
	"time"

	"github.com/alexclassroom/woocommerce/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping() error
}

// HealthResponse is the body of the health endpoint
type HealthResponse struct {
	Status   string `json:"status"`
	Time     string `json:"time"`
	Database string `json:"database"`
	Sweeper  string `json:"sweeper,omitempty"`
}

// HealthHandler serves the health check endpoint
type HealthHandler struct {
	db      Pinger
	sweeper interface{ IsRunning() bool }
}

// NewHealthHandler creates a new HealthHandler. sweeper may be nil when the
// expiration sweep is disabled.
func NewHealthHandler(db Pinger, sweeper interface{ IsRunning() bool }) *HealthHandler {
	return &HealthHandler{db: db, sweeper: sweeper}
}

// Check godoc
//
//	@Summary	Health check
//	@Tags		system
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Failure	503	{object}	HealthResponse
//	@Router		/health [get]
func (h *HealthHandler) Check(c *gin.Context) {
	resp := HealthResponse{
		Status:   "healthy",
		Time:     time.Now().Format(time.RFC3339),
		Database: "ok",
	}
	if h.sweeper != nil {
		resp.Sweeper = "stopped"
		if h.sweeper.IsRunning() {
			resp.Sweeper = "running"
		}
	}

	if err := h.db.Ping(); err != nil {
		logger.GetGinLogger(c).Warn("Health check failed", zap.Error(err))
		resp.Status = "unhealthy"
		resp.Database = "error"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
