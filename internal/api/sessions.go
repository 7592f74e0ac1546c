package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stwalsh4118/epgcast/internal/db"
	"github.com/stwalsh4118/epgcast/internal/logger"
	"github.com/stwalsh4118/epgcast/internal/models"
)

// SessionListResponse represents a list of recorded streams
type SessionListResponse struct {
	Sessions []*models.StreamSession `json:"sessions"`
	Count    int                     `json:"count"`
}

type sessionStore interface {
	ListRecent(ctx context.Context, limit int) ([]*models.StreamSession, error)
	ListByChannel(ctx context.Context, channelID string, limit int) ([]*models.StreamSession, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.StreamSession, error)
}

// SessionHandler serves the stream history
type SessionHandler struct {
	store sessionStore
}

// NewSessionHandler creates a new session handler instance
func NewSessionHandler(store *db.SessionRepository) *SessionHandler {
	return &SessionHandler{store: store}
}

// ListSessions handles GET /api/sessions?limit=N&channel=ID
func (h *SessionHandler) ListSessions(c *gin.Context) {
	limit := db.DefaultSessionListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_limit",
				Message: "limit must be a positive integer",
			})
			return
		}
		limit = n
	}

	var (
		sessions []*models.StreamSession
		err      error
	)
	if channelID := c.Query("channel"); channelID != "" {
		sessions, err = h.store.ListByChannel(c.Request.Context(), channelID, limit)
	} else {
		sessions, err = h.store.ListRecent(c.Request.Context(), limit)
	}
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to list sessions")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "query_failed",
			Message: "Failed to list sessions",
		})
		return
	}

	c.JSON(http.StatusOK, SessionListResponse{Sessions: sessions, Count: len(sessions)})
}

// GetSession handles GET /api/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid session ID format",
		})
		return
	}

	session, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if db.IsNotFound(err) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Session not found",
			})
			return
		}
		logger.Log.Error().Err(err).Str("session_id", id.String()).Msg("Failed to get session")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "query_failed",
			Message: "Failed to retrieve session",
		})
		return
	}

	c.JSON(http.StatusOK, session)
}

// SetupSessionRoutes registers stream history routes
func SetupSessionRoutes(apiGroup *gin.RouterGroup, store *db.SessionRepository) {
	handler := NewSessionHandler(store)
	sessions := apiGroup.Group("/sessions")
	sessions.GET("", handler.ListSessions)
	sessions.GET("/:id", handler.GetSession)
}
