package http

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"todoweb/internal/adapter/database"
	"todoweb/internal/adapter/http/routes"
	"todoweb/internal/shared"
)

func StartServer(metrics *shared.AppMetrics, logger *shared.AppLogger) {
	StartServerWithConfig(metrics, logger, shared.LoadConfig())
}

func StartServerWithConfig(metrics *shared.AppMetrics, logger *shared.AppLogger, config *shared.AppConfig) {
	db, err := openDatabase(config)

	if err != nil {
		slog.Error("Failed to open database", "error", err)
		return
	}
	defer db.Close()

	container := NewContainer(db, logger)

	router := routes.SetupRouterWithConfig(routes.HandlersConfig{
		TodoHandler:  container.TodoHandler,
		AdminHandler: container.AdminHandler,
	}, metrics, logger, config)

	port := os.Getenv("PORT")

	if port == "" {
		port = "8080"
	}

	slog.Info("Server starting",
		"port", port,
		"environment", config.Environment,
		"database_adapter", config.DatabaseAdapter,
		"rate_limit_enabled", config.RateLimitEnabled,
		"https_enforced", config.EnforceHTTPS)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Server failed to start", "error", err)
	}
}

func openDatabase(config *shared.AppConfig) (*database.DB, error) {
	if config.DatabaseAdapter == "postgres" {
		return database.NewPostgres(config.DatabaseURL, "infra/migrations")
	}

	return database.NewSQLite(config.DatabasePath, "db/migrations")
}
