package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rnr/backend/internal/application/rnrform"
	"github.com/rnr/backend/internal/infrastructure/config"
	"github.com/rnr/backend/internal/infrastructure/logger"
	"github.com/rnr/backend/internal/interfaces/http/handler"
	"github.com/rnr/backend/internal/interfaces/http/middleware"
)

// Config holds the dependencies needed to build the HTTP router.
type Config struct {
	AppConfig *config.Config
	Logger    *zap.Logger
	Sessions  *rnrform.SessionManager
}

// New builds the gin engine with middleware and all API routes.
func New(cfg Config) *gin.Engine {
	if cfg.AppConfig.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.AppConfig.HTTP.TrustedProxies) > 0 {
		_ = engine.SetTrustedProxies(cfg.AppConfig.HTTP.TrustedProxies)
	}

	engine.Use(logger.Recovery(cfg.Logger))
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(cfg.Logger))
	engine.Use(middleware.CORSWithConfig(corsConfig(cfg.AppConfig)))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.AppConfig.App.Name})
	})

	rnrHandler := handler.NewRnRFormHandler(cfg.Sessions)

	v1 := engine.Group("/api/v1")
	{
		forms := v1.Group("/rnr-forms")
		{
			forms.GET("/:id", rnrHandler.Get)
			forms.PATCH("/:id/lines/:lineId", rnrHandler.PatchLine)
			forms.POST("/:id/flush", rnrHandler.Flush)
			forms.POST("/:id/finalise", rnrHandler.Finalise)
			forms.DELETE("/:id/session", rnrHandler.CloseSession)
		}
	}

	return engine
}

func corsConfig(cfg *config.Config) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	return cors
}
