package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/disputeflow-backend/internal/handlers"
)

type RouterConfig struct {
	ServiceName     string
	AllowedOrigins  []string
	PipelineHandler *handlers.PipelineHandler
	DisputeHandler  *handlers.DisputeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware(cfg.ServiceName))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/pipeline/run", cfg.PipelineHandler.Run)
		api.GET("/disputes/search", cfg.DisputeHandler.Search)
		api.GET("/disputes/:id", cfg.DisputeHandler.Get)
	}

	return router
}
