package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docqa/internal/middleware"
)

type RouterDeps struct {
	Run        *RunHandler
	Health     *HealthHandler
	APIKey     string
	RateWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/", deps.Health.Root)
	api.GET("/health", deps.Health.Health)

	protected := api.Group("")
	protected.Use(middleware.BearerAuth(deps.APIKey))
	if deps.RateWindow > 0 {
		protected.Use(middleware.RateLimit(deps.RateWindow))
	}
	protected.POST("/run", deps.Run.Run)
}
