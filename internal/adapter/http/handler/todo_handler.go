package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	. "todoweb/internal/adapter/http/helper"
	. "todoweb/internal/adapter/http/validation"
	"todoweb/internal/core/domain"
	"todoweb/internal/core/model/request"
	"todoweb/internal/core/model/response"
	"todoweb/internal/core/port"
	"todoweb/internal/core/util"
	"todoweb/internal/shared"
	. "todoweb/pkg/tracing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type TodoHandler struct {
	svc    port.TodoService
	Logger *shared.AppLogger
}

func NewTodoHandler(todoUseCase port.TodoService, logger *shared.AppLogger) *TodoHandler {
	return &TodoHandler{
		svc:    todoUseCase,
		Logger: logger,
	}
}

// todoID reads the :id route parameter. A malformed id maps to not
// found so the API never confirms which ids exist.
func todoID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))

	if err != nil || id <= 0 {
		SendNotFoundError(c, "Todo not found")
		return 0, false
	}

	return id, true
}

func completedFilter(c *gin.Context) (*bool, bool) {
	raw := c.Query("completed")

	if raw == "" {
		return nil, true
	}

	completed, err := strconv.ParseBool(raw)

	if err != nil {
		SendBadRequestError(c, "completed", "Invalid completed filter")
		return nil, false
	}

	return &completed, true
}

func (t *TodoHandler) GetAllTodos(c *gin.Context) {
	ctx, span := CreateChildSpan(c.Request.Context(), "handler.todo.GetAllTodos", []attribute.KeyValue{
		attribute.String("handler.operation", "GetAllTodos"),
		attribute.String("handler.method", c.Request.Method),
		attribute.String("handler.path", c.FullPath()),
	})

	defer span.End()

	userId := c.GetInt("x-user-id")

	completed, ok := completedFilter(c)

	if !ok {
		return
	}

	span.SetAttributes(
		attribute.Int("user.id", userId),
	)

	todos, err := t.svc.ListByOwner(ctx, userId, completed)

	if err != nil {
		AddSpanError(span, err)

		t.Logger.Logger.Ctx(ctx).Error("Failed to list todos",
			zap.Error(err),
			zap.Int("user_id", userId),
		)

		SendInternalError(c, "Error getting todos")
		return
	}

	data := make([]response.TodoResponse, 0, len(todos))
	for _, todo := range todos {
		data = append(data, response.NewTodoResponse(todo))
	}

	span.SetAttributes(
		attribute.Int("http.status_code", http.StatusOK),
		attribute.Int("todo.count", len(data)),
	)

	c.JSON(http.StatusOK, response.TodoListResponse{
		Size: len(data),
		Data: data,
	})
}

func (t *TodoHandler) CreateTodo(c *gin.Context) {
	ctx := c.Request.Context()

	userId := c.GetInt("x-user-id")

	params, err := util.ParamsToMap[request.CreateTodoRequest](c)

	if err != nil {
		SendBadRequestError(c, "request", "Invalid request parameters")
		return
	}

	if err := Validator.Struct(params); err != nil {
		SendValidationError(c, err)
		return
	}

	priority, err := domain.ParsePriority(params.Priority)

	if err != nil {
		SendBadRequestError(c, "priority", err.Error())
		return
	}

	slog.Info("Todo#create", "user_id", userId, "title", params.Title)

	todo, err := t.svc.Create(ctx, userId, params.Title, params.Description, priority, params.DueDate)

	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			SendBadRequestError(c, "todo", err.Error())
			return
		}

		slog.Error("Error creating todo", "error", err)

		SendInternalError(c, "Error creating todo")
		return
	}

	SendSuccess(c, http.StatusCreated, response.NewTodoResponse(todo))
}

func (t *TodoHandler) GetTodo(c *gin.Context) {
	ctx := c.Request.Context()

	userId := c.GetInt("x-user-id")

	id, ok := todoID(c)

	if !ok {
		return
	}

	todo, err := t.svc.GetByID(ctx, id, userId)

	if err != nil {
		if errors.Is(err, domain.ErrTodoNotFound) {
			SendNotFoundError(c, "Todo not found")
			return
		}

		slog.Error("Error getting todo", "error", err, "todo_id", id)

		SendInternalError(c, "Error getting todo")
		return
	}

	SendSuccess(c, http.StatusOK, response.NewTodoResponse(todo))
}

func (t *TodoHandler) UpdateTodo(c *gin.Context) {
	ctx := c.Request.Context()

	userId := c.GetInt("x-user-id")

	id, ok := todoID(c)

	if !ok {
		return
	}

	params, err := util.ParamsToMap[request.UpdateTodoRequest](c)

	if err != nil {
		SendBadRequestError(c, "request", "Invalid request parameters")
		return
	}

	if err := Validator.Struct(params); err != nil {
		SendValidationError(c, err)
		return
	}

	patch, err := params.ToPatch()

	if err != nil {
		SendBadRequestError(c, "priority", err.Error())
		return
	}

	todo, err := t.svc.Update(ctx, id, userId, patch)

	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTodoNotFound):
			SendNotFoundError(c, "Todo not found")
		case errors.Is(err, domain.ErrValidation):
			SendBadRequestError(c, "todo", err.Error())
		default:
			slog.Error("Error updating todo", "error", err, "todo_id", id)
			SendInternalError(c, "Error updating todo")
		}

		return
	}

	c.JSON(http.StatusOK, gin.H{"data": response.NewTodoResponse(todo)})
}

func (t *TodoHandler) ToggleTodo(c *gin.Context) {
	ctx := c.Request.Context()

	userId := c.GetInt("x-user-id")

	id, ok := todoID(c)

	if !ok {
		return
	}

	todo, err := t.svc.ToggleCompletion(ctx, id, userId)

	if err != nil {
		if errors.Is(err, domain.ErrTodoNotFound) {
			SendNotFoundError(c, "Todo not found")
			return
		}

		slog.Error("Error toggling todo", "error", err, "todo_id", id)

		SendInternalError(c, "Error toggling todo")
		return
	}

	SendSuccess(c, http.StatusOK, response.NewTodoResponse(todo))
}

func (t *TodoHandler) DeleteTodo(c *gin.Context) {
	ctx := c.Request.Context()

	userId := c.GetInt("x-user-id")

	id, ok := todoID(c)

	if !ok {
		return
	}

	err := t.svc.Delete(ctx, id, userId)

	if err != nil {
		if errors.Is(err, domain.ErrTodoNotFound) {
			SendNotFoundError(c, "Todo not found")
			return
		}

		slog.Error("Error deleting todo", "error", err, "todo_id", id)

		SendInternalError(c, "Error deleting todo")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Todo deleted successfully",
	})
}

func (t *TodoHandler) GetStats(c *gin.Context) {
	ctx, span := CreateChildSpan(c.Request.Context(), "handler.todo.GetStats", []attribute.KeyValue{
		attribute.String("handler.operation", "GetStats"),
	})

	defer span.End()

	userId := c.GetInt("x-user-id")

	stats, err := t.svc.StatsByOwner(ctx, userId)

	if err != nil {
		AddSpanError(span, err)

		t.Logger.Logger.Ctx(ctx).Error("Failed to compute stats",
			zap.Error(err),
			zap.Int("user_id", userId),
		)

		SendInternalError(c, "Error getting stats")
		return
	}

	SendSuccess(c, http.StatusOK, response.StatsResponse{
		Total:          stats.Total,
		Completed:      stats.Completed,
		Pending:        stats.Pending,
		CompletionRate: stats.CompletionRate,
	})
}
