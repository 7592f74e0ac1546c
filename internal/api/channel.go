package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/epgcast/internal/channel"
	"github.com/stwalsh4118/epgcast/internal/guide"
	"github.com/stwalsh4118/epgcast/internal/logger"
)

const contentTypeM3U = "audio/x-mpegurl"

type playlistBuilder interface {
	Playlist(ctx context.Context, baseURL string) (*channel.Playlist, error)
}

// ChannelHandler serves the channel catalog
type ChannelHandler struct {
	channels playlistBuilder
}

// NewChannelHandler creates a new channel handler instance
func NewChannelHandler(channels *channel.Service) *ChannelHandler {
	return &ChannelHandler{channels: channels}
}

// GetM3U handles GET /playlist.m3u
func (h *ChannelHandler) GetM3U(c *gin.Context) {
	p, ok := h.playlist(c)
	if !ok {
		return
	}
	c.Data(http.StatusOK, contentTypeM3U, []byte(p.M3U()))
}

// ListChannels handles GET /api/channels
func (h *ChannelHandler) ListChannels(c *gin.Context) {
	p, ok := h.playlist(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ChannelHandler) playlist(c *gin.Context) (*channel.Playlist, bool) {
	p, err := h.channels.Playlist(c.Request.Context(), requestBaseURL(c))
	if err == nil {
		return p, true
	}

	logger.Log.Error().Err(err).Msg("Failed to build channel playlist")

	switch {
	case guide.IsGuideFailure(err):
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "guide_unavailable",
			Message: "Failed to load programme guide",
		})
	case channel.IsInvalidBaseURL(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_host",
			Message: "Cannot build stream URLs for this host",
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "playlist_failed",
			Message: "Failed to build playlist",
		})
	}
	return nil, false
}

// SetupChannelRoutes registers the playlist at the root and the catalog under /api
func SetupChannelRoutes(root gin.IRoutes, apiGroup *gin.RouterGroup, channels *channel.Service) {
	handler := NewChannelHandler(channels)
	root.GET("/playlist.m3u", handler.GetM3U)
	apiGroup.GET("/channels", handler.ListChannels)
}
