package routes

import (
	"vvg-world-api/controllers"
	"vvg-world-api/middleware"
	"vvg-world-api/services"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// One engine per process; config-backed DB, SMTP transport, real clock.
	controllers.InitRoutingEngine(services.NewRoutingEngine(nil, nil, nil))

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			public.POST("/login", controllers.Login)

			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "VVG World API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// User profile
			protected.GET("/profile", controllers.GetProfile)
			protected.PUT("/change-password", controllers.ChangePassword)

			// Pain point submissions; creating one triggers a routing pass
			painPoints := protected.Group("/pain-points")
			{
				painPoints.POST("", controllers.CreatePainPoint)
				painPoints.GET("", controllers.GetPainPoints)
				painPoints.GET("/:id", controllers.GetPainPoint)
			}

			// Admin-only: rule management and routing observability
			admin := protected.Group("/admin")
			admin.Use(middleware.RequireRole("admin"))
			{
				rules := admin.Group("/routing-rules")
				{
					rules.GET("", controllers.GetRoutingRules)
					rules.POST("", controllers.CreateRoutingRule)
					rules.GET("/:id", controllers.GetRoutingRule)
					rules.PUT("/:id", controllers.UpdateRoutingRule)
					rules.PATCH("/:id/toggle", controllers.ToggleRoutingRule)
					rules.DELETE("/:id", controllers.DeleteRoutingRule)
				}

				routing := admin.Group("/routing")
				{
					routing.GET("/stats", controllers.GetRoutingStats)
					routing.GET("/logs", controllers.GetRoutingLogs)
					routing.POST("/digest", controllers.SendRoutingDigest)
				}
			}
		}
	}

	// 404 catch-all
	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"error": "Route not found"})
	})
}
