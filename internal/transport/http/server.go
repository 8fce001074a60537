package http

import (
	stdhttp "net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kmindev/chat-archiver/internal/config"
)

// maxBodyBytes bounds request bodies on the JSON endpoints.
const maxBodyBytes = 10 << 20

// NewServer builds the HTTP server with all API routes registered.
func NewServer(h *Handlers, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))
	router.Use(corsMiddleware(cfg.CORS))
	router.Use(bodyLimit(maxBodyBytes))

	router.GET("/health", h.Health)

	api := router.Group("/api")
	{
		api.POST("/join", h.Join)
		api.POST("/leave", h.Leave)
		api.GET("/messages", h.Messages)
		api.GET("/active-users", h.ActiveUsers)
		api.GET("/health", h.Health)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"status":  "error",
			"message": "endpoint not found",
			"path":    c.Request.URL.Path,
		})
	})

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func corsMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	return cors.New(corsCfg)
}

func bodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = stdhttp.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
