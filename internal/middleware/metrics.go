package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/epgcast/internal/metrics"
)

// Metrics counts requests and error responses
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		m.IncRequests()
		c.Next()
		if c.Writer.Status() >= http.StatusBadRequest {
			m.IncErrors()
		}
	}
}
