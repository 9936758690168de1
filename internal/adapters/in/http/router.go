package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suchimauz/docplanner-slots-gateway/internal/config"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/ports/in"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/ports/out"
)

func NewRouter(cfg *config.Config, useCase in.SlotUseCase, auth *Authenticator, logger out.LoggerPort) *gin.Engine {
	router := gin.New()
	router.Use(requestID(), requestLogger(logger), recovery(logger))

	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": cfg.App.Version,
		})
	})

	var limits []gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		limiter := newIPRateLimiter(cfg.RateLimit.Tokens, cfg.RateLimit.Period)
		limits = append(limits, rateLimit(limiter, logger))
	}

	api := router.Group("/api/v1", limits...)

	NewAuthController(auth, logger.WithModule("AuthController")).RegisterRoutes(api)
	NewSlotController(useCase, logger.WithModule("SlotController")).RegisterRoutes(api, authRequired(auth))

	return router
}
