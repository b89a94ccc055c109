package transport

import (
	"net/http"
	"time"

	"github.com/ds124wfegd/imgenhance/internal/transport/middleware"
	"github.com/gin-gonic/gin"
)

func InitRoutes(enhanceHandler *EnhanceHandler, jobHandler *JobHandler, timeout time.Duration) *gin.Engine {

	router := gin.New()

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Timeout(timeout))

	// API routes
	api := router.Group("/api/v1")
	{
		api.POST("/enhance", enhanceHandler.Enhance)
		api.POST("/analyze", enhanceHandler.Analyze)
		api.POST("/filter", enhanceHandler.Filter)
		api.POST("/background-blur", enhanceHandler.BackgroundBlur)

		jobs := api.Group("/jobs")
		{
			jobs.POST("", jobHandler.Submit)
			jobs.GET("/:id", jobHandler.GetJob)
			jobs.GET("/:id/result", jobHandler.Result)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "image-enhancement-service",
		})
	})
	return router
}
