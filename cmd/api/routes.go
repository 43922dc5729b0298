package main

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	attemptDelivery "github.com/quizdeck/quizdeck/internal/domain/attempts/delivery"
	topicDelivery "github.com/quizdeck/quizdeck/internal/domain/topics/delivery"
	userDelivery "github.com/quizdeck/quizdeck/internal/domain/users/delivery"
	"github.com/quizdeck/quizdeck/pkg/jwt"
	appMiddleware "github.com/quizdeck/quizdeck/pkg/middleware"
	"github.com/quizdeck/quizdeck/pkg/response"
)

func setupRoutes(e *echo.Echo, userHandler *userDelivery.Handler, topicHandler *topicDelivery.TopicHandler, attemptHandler *attemptDelivery.AttemptHandler, tokenSvc *jwt.TokenService) {
	// Middleware
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Gzip())
	e.Use(middleware.CORS())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	// Custom error handler
	e.HTTPErrorHandler = response.CustomErrorHandler

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status": "ok",
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1")

	// Auth routes
	auth := v1.Group("/auth")
	{
		auth.POST("/register", userHandler.Register)
		auth.POST("/login", userHandler.Login)
		auth.POST("/refresh", userHandler.Refresh)
		auth.POST("/logout", userHandler.Logout)

		// Protected: the middleware verifies the access token, Check
		// confirms the user record still exists
		auth.GET("/check", userHandler.Check, tokenSvc.JWTMiddleware())
	}

	// User self-service routes (require JWT)
	usersGroup := v1.Group("/users", tokenSvc.JWTMiddleware())
	{
		usersGroup.GET("/me", userHandler.GetMe)
		usersGroup.PUT("/me/settings", userHandler.UpdateSettings)
		usersGroup.PUT("/me/password", userHandler.ChangePassword)
	}

	// Topic routes (Public)
	topicsGroup := v1.Group("/topics")
	{
		topicsGroup.GET("", topicHandler.GetAllTopics)      // GET /api/v1/topics
		topicsGroup.GET("/:id", topicHandler.GetTopicDetail) // GET /api/v1/topics/:id
	}

	// Attempt routes (require JWT)
	attemptsGroup := v1.Group("/attempts", tokenSvc.JWTMiddleware())
	{
		attemptsGroup.POST("", attemptHandler.Start)              // POST /api/v1/attempts (start a test)
		attemptsGroup.POST("/:id/submit", attemptHandler.Submit)  // POST /api/v1/attempts/:id/submit
		attemptsGroup.GET("/me", attemptHandler.MyResults)        // GET /api/v1/attempts/me (history)
	}

	// Admin routes (Protected with JWT + AdminOnly middleware)
	admin := v1.Group("/admin")
	admin.Use(tokenSvc.JWTMiddleware(), appMiddleware.AdminOnly())
	{
		// Admin user management
		adminUsers := admin.Group("/users")
		{
			adminUsers.GET("", userHandler.ListUsers)                       // GET /api/v1/admin/users?page=1
			adminUsers.POST("", userHandler.CreateUser)                     // POST /api/v1/admin/users
			adminUsers.PUT("/:ext_id", userHandler.UpdateUser)              // PUT /api/v1/admin/users/:ext_id
			adminUsers.PATCH("/:ext_id/active", userHandler.SetUserActive)  // PATCH /api/v1/admin/users/:ext_id/active
			adminUsers.DELETE("/:ext_id", userHandler.DeleteUser)           // DELETE /api/v1/admin/users/:ext_id
		}

		// Admin topic and question management
		adminTopics := admin.Group("/topics")
		{
			adminTopics.POST("", topicHandler.CreateTopic)                 // POST /api/v1/admin/topics
			adminTopics.PUT("/:id", topicHandler.UpdateTopic)              // PUT /api/v1/admin/topics/:id
			adminTopics.DELETE("/:id", topicHandler.DeleteTopic)           // DELETE /api/v1/admin/topics/:id
			adminTopics.POST("/:id/questions", topicHandler.CreateQuestion) // POST /api/v1/admin/topics/:id/questions
		}

		adminQuestions := admin.Group("/questions")
		{
			adminQuestions.PUT("/:id", topicHandler.UpdateQuestion)              // PUT /api/v1/admin/questions/:id
			adminQuestions.DELETE("/:id", topicHandler.DeleteQuestion)           // DELETE /api/v1/admin/questions/:id
			adminQuestions.POST("/:id/image", topicHandler.UploadQuestionImage)  // POST /api/v1/admin/questions/:id/image
		}

		// Admin statistics
		admin.GET("/stats", attemptHandler.AdminStats) // GET /api/v1/admin/stats
	}
}
