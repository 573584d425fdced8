package handler

import (
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/embedgate/internal/middleware"
	"github.com/xxxsen/embedgate/internal/pkg/errs"
)

type RouterDeps struct {
	Embed           *EmbedHandler
	Chat            *ChatHandler
	Admin           *AdminHandler
	APIKey          string
	CORSAllowlist   []string
	RateLimitWindow time.Duration
}

func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.CustomRecovery(func(c *gin.Context, _ interface{}) {
		handleError(c, errs.ErrInternal)
	}))
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog())
	router.Use(middleware.CORS(deps.CORSAllowlist))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	router.HandleMethodNotAllowed = true
	router.NoRoute(func(c *gin.Context) {
		handleError(c, errs.ErrNotFound)
	})
	router.NoMethod(func(c *gin.Context) {
		handleError(c, errs.ErrMethodNotAllowed)
	})

	api := router.Group("/api")
	api.Use(middleware.APIKeyAuth(deps.APIKey))
	if deps.RateLimitWindow > 0 {
		api.Use(middleware.RateLimit(deps.RateLimitWindow))
	}

	api.POST("/embed", deps.Embed.Embed)
	api.POST("/search", deps.Embed.Search)
	api.POST("/chat", deps.Chat.Chat)
	api.POST("/reset", deps.Admin.Reset)
	api.GET("/stats", deps.Admin.Stats)

	return router
}
