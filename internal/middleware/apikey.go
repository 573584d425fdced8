package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/embedgate/internal/pkg/response"
)

const APIKeyHeader = "X-Api-Key"

// APIKeyAuth rejects any request whose key header does not match the
// configured key. The comparison is constant-time and the presented key
// is never logged.
func APIKeyAuth(expected string) gin.HandlerFunc {
	want := []byte(expected)
	return func(c *gin.Context) {
		got := c.GetHeader(APIKeyHeader)
		if got == "" {
			logutil.GetLogger(c.Request.Context()).Warn("missing api key",
				zap.String("path", c.Request.URL.Path))
			response.Error(c, http.StatusUnauthorized, "unauthenticated")
			c.Abort()
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			logutil.GetLogger(c.Request.Context()).Warn("invalid api key",
				zap.String("path", c.Request.URL.Path))
			response.Error(c, http.StatusUnauthorized, "unauthenticated")
			c.Abort()
			return
		}
		c.Next()
	}
}
