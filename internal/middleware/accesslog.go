package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// AccessLog logs one line per request with method, path, status and
// latency. Errors pushed into the gin context are included.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger := logutil.GetLogger(c.Request.Context()).With(
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
		if reqID, ok := c.Get(ContextRequestIDKey); ok {
			logger = logger.With(zap.Any("request_id", reqID))
		}
		if c.Writer.Status() >= 500 {
			logger.Error("request failed")
			return
		}
		logger.Info("request completed")
	}
}
