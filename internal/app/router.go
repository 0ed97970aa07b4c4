package app

import (
	"quizforge_backend/internal/config"
	"quizforge_backend/internal/middleware"
	"quizforge_backend/internal/model"
	"quizforge_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// Public routes
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// Browsing works anonymously; a valid token additionally surfaces the
	// caller's own private quizzes.
	browse := router.Group("/api")
	browse.Use(middleware.TryAuthMiddleware(cfg))
	{
		browse.GET("/quizzes", c.quiz.Browse)
		browse.GET("/quizzes/:id", c.quiz.Get)
	}

	// Authenticated routes
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/profile", c.auth.GetProfile)
		authGroup.PUT("/user/profile", c.user.UpdateProfile)
		authGroup.POST("/user/avatar/upload", c.user.UploadAvatar)

		// Quiz CRUD
		authGroup.POST("/quizzes", c.quiz.Create)
		authGroup.GET("/quizzes/mine", c.quiz.List)
		authGroup.PUT("/quizzes/:id", c.quiz.Update)
		authGroup.DELETE("/quizzes/:id", c.quiz.Delete)
		authGroup.POST("/quizzes/:id/cover/upload", c.quiz.UploadCover)

		// Taking quizzes and leaderboards
		authGroup.POST("/quizzes/:id/submit", c.result.Submit)
		authGroup.GET("/quizzes/:id/leaderboard", c.result.QuizLeaderboard)
		authGroup.GET("/leaderboard", c.result.GlobalLeaderboard)
		authGroup.GET("/results/mine", c.result.MyResults)

		// AI generation
		authGroup.POST("/quizzes/generate", c.generation.Generate)
		authGroup.GET("/quizzes/generate/status", c.generation.Status)

		admin := authGroup.Group("/admin")
		admin.Use(middleware.RoleMiddleware(model.RoleAdmin))
		{
			admin.PUT("/users/:id/disabled", c.user.SetUserDisabled)
		}
	}
}
