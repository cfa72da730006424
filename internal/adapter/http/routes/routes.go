package routes

import (
	"todoweb/internal/adapter/http/handler"
	"todoweb/internal/adapter/http/middleware"
	. "todoweb/internal/shared"

	"github.com/gin-gonic/gin"
)

type HandlersConfig struct {
	TodoHandler  *handler.TodoHandler
	AdminHandler *handler.AdminHandler
}

func SetupRouter(handlers HandlersConfig, metrics *AppMetrics, logger *AppLogger) *gin.Engine {
	return SetupRouterWithConfig(handlers, metrics, logger, GetDefaultConfig())
}

func SetupRouterWithConfig(handlers HandlersConfig, metrics *AppMetrics, logger *AppLogger, config *AppConfig) *gin.Engine {
	if gin.Mode() == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Identity must resolve before the cache and rate limiter key on it.
	router.Use(middleware.ResolveIdentity())

	SetupGinMiddlewareWithConfig(router, "todoweb", metrics, logger, config)

	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	if handlers.TodoHandler != nil {
		setupTodoRoutes(router, handlers.TodoHandler)
	}

	if handlers.AdminHandler != nil {
		setupAdminRoutes(router, handlers.AdminHandler)
	}

	return router
}

func setupTodoRoutes(router *gin.Engine, todoHandler *handler.TodoHandler) {
	protected := router.Group("/")
	protected.Use(middleware.RequestMetaMiddleware())
	protected.Use(middleware.IdentityMiddleware())
	{
		protected.GET("/todos", todoHandler.GetAllTodos)
		protected.POST("/todos", todoHandler.CreateTodo)
		protected.GET("/todos/stats", todoHandler.GetStats)
		protected.GET("/todos/:id", todoHandler.GetTodo)
		protected.PUT("/todos/:id", todoHandler.UpdateTodo)
		protected.PATCH("/todos/:id/toggle", todoHandler.ToggleTodo)
		protected.DELETE("/todos/:id", todoHandler.DeleteTodo)
	}
}

func setupAdminRoutes(router *gin.Engine, adminHandler *handler.AdminHandler) {
	admin := router.Group("/admin")
	admin.Use(middleware.RequestMetaMiddleware())
	admin.Use(middleware.IdentityMiddleware())
	admin.Use(middleware.RequireAdmin())
	{
		admin.GET("/todos", adminHandler.GetAllTodos)
		admin.DELETE("/todos/:id", adminHandler.DeleteTodo)
		admin.DELETE("/users/:id/todos", adminHandler.DeleteUserTodos)
		admin.GET("/stats", adminHandler.GetSystemStats)
		admin.GET("/reports/owners", adminHandler.GetOwnerReport)
		admin.POST("/maintenance/cleanup", adminHandler.CleanupOrphans)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func SetupRouterForTests(handlers HandlersConfig) *gin.Engine {
	if gin.Mode() == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	if handlers.TodoHandler != nil {
		setupTodoRoutes(router, handlers.TodoHandler)
	}

	if handlers.AdminHandler != nil {
		setupAdminRoutes(router, handlers.AdminHandler)
	}

	return router
}
