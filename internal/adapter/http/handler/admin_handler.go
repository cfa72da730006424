package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	. "todoweb/internal/adapter/http/helper"
	"todoweb/internal/core/domain"
	"todoweb/internal/core/model/response"
	"todoweb/internal/core/port"
	"todoweb/internal/shared"
	. "todoweb/pkg/tracing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// AdminHandler exposes the operator surface. The routes wiring gates
// every method behind RequireAdmin.
type AdminHandler struct {
	svc    port.AdminService
	Logger *shared.AppLogger
}

func NewAdminHandler(adminUseCase port.AdminService, logger *shared.AppLogger) *AdminHandler {
	return &AdminHandler{
		svc:    adminUseCase,
		Logger: logger,
	}
}

func (a *AdminHandler) GetAllTodos(c *gin.Context) {
	ctx, span := CreateChildSpan(c.Request.Context(), "handler.admin.GetAllTodos", []attribute.KeyValue{
		attribute.String("handler.operation", "GetAllTodos"),
		attribute.String("handler.path", c.FullPath()),
	})

	defer span.End()

	completed, ok := completedFilter(c)

	if !ok {
		return
	}

	cursor := c.Query("cursor")
	limit, _ := strconv.Atoi(c.Query("limit"))

	span.SetAttributes(
		attribute.String("todo.cursor", cursor),
		attribute.Int("todo.limit", limit),
	)

	data, err := a.svc.ListAll(ctx, completed, limit, cursor)

	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			SendBadRequestError(c, "cursor", "Invalid cursor")
			return
		}

		AddSpanError(span, err)

		a.Logger.Logger.Ctx(ctx).Error("Failed to list todos across owners",
			zap.Error(err),
		)

		SendInternalError(c, "Error getting todos")
		return
	}

	c.JSON(http.StatusOK, data)
}

func (a *AdminHandler) DeleteTodo(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := todoID(c)

	if !ok {
		return
	}

	err := a.svc.DeleteAny(ctx, id)

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

func (a *AdminHandler) DeleteUserTodos(c *gin.Context) {
	ctx := c.Request.Context()

	ownerId, err := strconv.Atoi(c.Param("id"))

	if err != nil || ownerId <= 0 {
		SendBadRequestError(c, "id", "Invalid user id")
		return
	}

	adminId := c.GetInt("x-user-id")

	count, err := a.svc.DeleteAllForOwner(ctx, ownerId)

	if err != nil {
		slog.Error("Error purging user todos", "error", err, "owner_id", ownerId)

		SendInternalError(c, "Error deleting todos")
		return
	}

	slog.Info("Admin purged user todos", "admin_id", adminId, "owner_id", ownerId, "count", count)

	c.JSON(http.StatusOK, gin.H{
		"message": "Todos deleted successfully",
		"count":   count,
	})
}

func (a *AdminHandler) GetSystemStats(c *gin.Context) {
	ctx, span := CreateChildSpan(c.Request.Context(), "handler.admin.GetSystemStats", []attribute.KeyValue{
		attribute.String("handler.operation", "GetSystemStats"),
	})

	defer span.End()

	stats, err := a.svc.SystemStats(ctx)

	if err != nil {
		AddSpanError(span, err)

		a.Logger.Logger.Ctx(ctx).Error("Failed to compute system stats",
			zap.Error(err),
		)

		SendInternalError(c, "Error getting stats")
		return
	}

	counts := make(map[string]int, len(stats.CountsByPriority))
	for priority, count := range stats.CountsByPriority {
		counts[string(priority)] = count
	}

	activity := make([]response.ActivityResponse, 0, len(stats.RecentActivity))
	for _, entry := range stats.RecentActivity {
		activity = append(activity, response.ActivityResponse{
			Action:    entry.Action,
			Username:  entry.Username,
			Timestamp: entry.Timestamp,
		})
	}

	SendSuccess(c, http.StatusOK, response.SystemStatsResponse{
		TotalTodos:       stats.TotalTodos,
		CompletedTodos:   stats.CompletedTodos,
		PendingTodos:     stats.PendingTodos,
		CountsByPriority: counts,
		UserCount:        stats.UserCount,
		ActiveUsers:      stats.ActiveUsers,
		RecentActivity:   activity,
	})
}

func (a *AdminHandler) GetOwnerReport(c *gin.Context) {
	ctx := c.Request.Context()

	reports, err := a.svc.CountsByOwner(ctx)

	if err != nil {
		slog.Error("Error building owner report", "error", err)

		SendInternalError(c, "Error getting report")
		return
	}

	data := make([]response.OwnerReportResponse, 0, len(reports))
	for _, report := range reports {
		data = append(data, response.OwnerReportResponse{
			Username:       report.Username,
			Email:          report.Email,
			TotalTodos:     report.TotalTodos,
			CompletedTodos: report.CompletedTodos,
		})
	}

	SendSuccess(c, http.StatusOK, data)
}

func (a *AdminHandler) CleanupOrphans(c *gin.Context) {
	ctx := c.Request.Context()

	adminId := c.GetInt("x-user-id")

	count, err := a.svc.CleanupOrphans(ctx)

	if err != nil {
		slog.Error("Error cleaning orphaned todos", "error", err)

		SendInternalError(c, "Error running cleanup")
		return
	}

	slog.Info("Orphan cleanup finished", "admin_id", adminId, "count", count)

	c.JSON(http.StatusOK, gin.H{
		"message": "Cleanup completed",
		"count":   count,
	})
}
