package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/miniworld/server/metrics"
)

// Metrics records request duration, in-flight count and error responses.
// Routes are labelled by their registered pattern; unmatched paths share one label.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		done := m.RequestStarted()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		done(c.Request.Method, path, c.Writer.Status())
	}
}
