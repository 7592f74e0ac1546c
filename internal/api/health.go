package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/epgcast/internal/streaming"
)

const healthCheckTimeout = 2 * time.Second

// HealthResponse represents the response from the health check endpoint
type HealthResponse struct {
	Status   string                 `json:"status"`
	Database string                 `json:"database"`
	Time     string                 `json:"time"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

type healthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db       healthChecker
	registry *streaming.Registry
}

// NewHealthHandler creates a new health check handler. A nil database
// means history is disabled.
func NewHealthHandler(database healthChecker, registry *streaming.Registry) *HealthHandler {
	return &HealthHandler{db: database, registry: registry}
}

// Check handles the health check endpoint
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	response := HealthResponse{
		Status:  "ok",
		Time:    time.Now().UTC().Format(time.RFC3339),
		Details: make(map[string]interface{}),
	}
	if h.registry != nil {
		response.Details["active_streams"] = h.registry.Len()
	}

	if h.db == nil {
		response.Database = "disabled"
		c.JSON(http.StatusOK, response)
		return
	}

	if err := h.db.Health(ctx); err != nil {
		response.Status = "degraded"
		response.Database = "unhealthy"
		response.Details["database_error"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	response.Database = "healthy"
	c.JSON(http.StatusOK, response)
}

// SetupHealthRoutes registers health check routes
func SetupHealthRoutes(apiGroup *gin.RouterGroup, database healthChecker, registry *streaming.Registry) {
	handler := NewHealthHandler(database, registry)
	apiGroup.GET("/health", handler.Check)
}
