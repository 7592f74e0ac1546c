package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/epgcast/internal/guide"
	"github.com/stwalsh4118/epgcast/internal/logger"
	"github.com/stwalsh4118/epgcast/internal/streaming"
)

const contentTypeMatroska = "video/x-matroska"

// ActiveStreamsResponse lists the streams currently being served
type ActiveStreamsResponse struct {
	Streams []streaming.ActiveStream `json:"streams"`
	Count   int                      `json:"count"`
}

// StreamHandler serves channel streams
type StreamHandler struct {
	engine *streaming.Engine
}

// NewStreamHandler creates a new stream handler instance
func NewStreamHandler(engine *streaming.Engine) *StreamHandler {
	return &StreamHandler{engine: engine}
}

// flushWriter pushes every write to the client immediately
type flushWriter struct {
	w gin.ResponseWriter
}

func (f flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err == nil {
		f.w.Flush()
	}
	return n, err
}

// StreamChannel handles GET /channel/:channel_id.
// Errors are only reported before the response starts; once the headers are
// out the stream simply ends.
func (h *StreamHandler) StreamChannel(c *gin.Context) {
	channelID := c.Param("channel_id")
	ctx := c.Request.Context()

	logger.Log.Info().
		Str("channel_id", channelID).
		Str("client_ip", c.ClientIP()).
		Msg("Client requesting channel stream")

	session, err := h.engine.Prepare(ctx, channelID, c.ClientIP())
	if err != nil {
		switch {
		case guide.IsChannelNotFound(err):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "channel_not_found",
				Message: "Channel not found",
			})
		case guide.IsGuideFailure(err):
			logger.Log.Error().Err(err).Str("channel_id", channelID).Msg("Failed to load guide for stream")
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "guide_unavailable",
				Message: "Failed to load programme guide",
			})
		default:
			logger.Log.Error().Err(err).Str("channel_id", channelID).Msg("Failed to prepare stream")
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "stream_failed",
				Message: "Failed to start stream",
			})
		}
		return
	}

	c.Header("Content-Type", contentTypeMatroska)
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="channel_%s.mkv"`, channelID))
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	summary := session.Run(ctx, flushWriter{w: c.Writer})

	logger.Log.Info().
		Str("channel_id", channelID).
		Str("session_id", summary.SessionID.String()).
		Str("state", summary.State).
		Int64("bytes", summary.Bytes).
		Msg("Channel stream closed")
}

// ListActive handles GET /api/streams
func (h *StreamHandler) ListActive(c *gin.Context) {
	streams := h.engine.Registry().List()
	c.JSON(http.StatusOK, ActiveStreamsResponse{
		Streams: streams,
		Count:   len(streams),
	})
}

// SetupStreamRoutes registers the channel stream at the root and the stream list under /api
func SetupStreamRoutes(root gin.IRoutes, apiGroup *gin.RouterGroup, engine *streaming.Engine) {
	handler := NewStreamHandler(engine)
	root.GET("/channel/:channel_id", handler.StreamChannel)
	apiGroup.GET("/streams", handler.ListActive)
}
