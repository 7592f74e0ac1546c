// Package api implements the HTTP handlers: the channel stream, the M3U
// playlist and the JSON endpoints under /api.
package api

import (
	"github.com/gin-gonic/gin"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

const headerForwardedProto = "X-Forwarded-Proto"

// requestBaseURL returns the scheme and host the client used to reach us
func requestBaseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader(headerForwardedProto); proto == "http" || proto == "https" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host
}
