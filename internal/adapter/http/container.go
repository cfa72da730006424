package http

import (
	"log/slog"

	"todoweb/internal/adapter/database"
	"todoweb/internal/adapter/database/repository"
	"todoweb/internal/adapter/http/handler"
	"todoweb/internal/core/port"
	"todoweb/internal/core/service"
	"todoweb/internal/core/telemetry"
	"todoweb/internal/shared"
)

type Container struct {
	TodoRepo port.TodoRepository
	UserRepo port.UserRepository

	TodoUseCase  port.TodoService
	AdminUseCase port.AdminService

	TodoHandler  *handler.TodoHandler
	AdminHandler *handler.AdminHandler
}

func NewContainer(db *database.DB, logger *shared.AppLogger) *Container {
	probe := telemetry.NewOTELProbe(slog.Default())

	todoRepo := repository.NewTodoRepository(db, probe)
	userRepo := repository.NewUserRepository(db)

	todoSvc := service.NewTodoService(todoRepo, probe)
	adminSvc := service.NewAdminService(todoRepo, userRepo, probe)

	todoHandler := handler.NewTodoHandler(todoSvc, logger)
	adminHandler := handler.NewAdminHandler(adminSvc, logger)

	return &Container{
		TodoRepo: todoRepo,
		UserRepo: userRepo,

		TodoUseCase:  todoSvc,
		AdminUseCase: adminSvc,

		TodoHandler:  todoHandler,
		AdminHandler: adminHandler,
	}
}
