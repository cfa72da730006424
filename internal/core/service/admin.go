package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"todoweb/internal/core/domain"
	"todoweb/internal/core/model/response"
	"todoweb/internal/core/port"
	tel "todoweb/internal/core/telemetry"
	"todoweb/internal/core/util"
)

const (
	defaultAdminListLimit = 50
	recentActivityLimit   = 10
)

// AdminService deliberately bypasses the ownership choke point. Routing must
// gate every entry with an admin role check; nothing here re-verifies it.
type AdminService struct {
	todos     port.TodoRepository
	users     port.UserRepository
	telemetry port.Telemetry
}

func NewAdminService(todos port.TodoRepository, users port.UserRepository, telemetry port.Telemetry) *AdminService {
	if telemetry == nil {
		telemetry = tel.NewNoOpProbe()
	}

	return &AdminService{todos: todos, users: users, telemetry: telemetry}
}

func (as *AdminService) ListAll(ctx context.Context, completed *bool, limit int, cursor string) (*response.AdminListResponse, error) {
	if limit <= 0 {
		limit = defaultAdminListLimit
	}

	rows, hasNext, err := as.todos.ListAllWithOwner(ctx, completed, limit, cursor)

	if errors.Is(err, domain.ErrValidation) {
		return nil, err
	}

	if err != nil {
		slog.Error("Error fetching admin todos", "error", err)
		return nil, domain.ErrStorage
	}

	data := make([]response.AdminTodoResponse, 0, len(rows))

	for _, row := range rows {
		data = append(data, response.AdminTodoResponse{
			TodoResponse:  response.NewTodoResponse(row.Todo),
			OwnerID:       row.UserId,
			OwnerUsername: row.OwnerUsername,
			OwnerEmail:    row.OwnerEmail,
		})
	}

	var nextCursor string

	if hasNext && len(rows) > 0 {
		last := rows[len(rows)-1]
		// Nanosecond precision; rows created within the same second must
		// still partition cleanly across pages.
		nextCursor = util.EncodeCursor(last.CreatedAt.Format(time.RFC3339Nano), last.ID)
	}

	dataBytes, err := util.Serialize(data)

	if err != nil {
		return nil, domain.ErrStorage
	}

	resp := &response.AdminListResponse{
		Size: len(data),
		Data: dataBytes,
	}
	resp.Pagination.HasNext = hasNext
	resp.Pagination.NextCursor = nextCursor

	return resp, nil
}

func (as *AdminService) DeleteAny(ctx context.Context, todoID int) error {
	err := as.todos.DeleteAny(ctx, todoID)

	if errors.Is(err, domain.ErrTodoNotFound) {
		return domain.ErrTodoNotFound
	}

	if err != nil {
		slog.Error("Admin delete failed", "error", err, "todo_id", todoID)
		return domain.ErrStorage
	}

	return nil
}

// DeleteAllForOwner runs when an account is removed upstream. Idempotent: an
// owner with nothing to delete yields 0.
func (as *AdminService) DeleteAllForOwner(ctx context.Context, ownerID int) (int, error) {
	count, err := as.todos.DeleteAllForOwner(ctx, ownerID)

	if err != nil {
		slog.Error("Admin cascade delete failed", "error", err, "owner_id", ownerID)
		return 0, domain.ErrStorage
	}

	slog.Info("Deleted owner todos", "owner_id", ownerID, "count", count)

	as.telemetry.RecordBusinessEvent(ctx, "owner_todos_purged", "todo", "", ownerID, map[string]interface{}{
		"count": count,
	})

	return count, nil
}

func (as *AdminService) SystemStats(ctx context.Context) (domain.SystemStats, error) {
	total, completed, err := as.todos.TodoTotals(ctx)

	if err != nil {
		return domain.SystemStats{}, domain.ErrStorage
	}

	byPriority, err := as.todos.CountsByPriority(ctx)

	if err != nil {
		return domain.SystemStats{}, domain.ErrStorage
	}

	userCount, activeUsers, err := as.users.Counts(ctx)

	if err != nil {
		return domain.SystemStats{}, domain.ErrStorage
	}

	activity, err := as.todos.RecentActivity(ctx, recentActivityLimit)

	if err != nil {
		return domain.SystemStats{}, domain.ErrStorage
	}

	return domain.SystemStats{
		TotalTodos:       total,
		CompletedTodos:   completed,
		PendingTodos:     total - completed,
		CountsByPriority: byPriority,
		UserCount:        userCount,
		ActiveUsers:      activeUsers,
		RecentActivity:   activity,
	}, nil
}

func (as *AdminService) CountsByOwner(ctx context.Context) ([]domain.OwnerReport, error) {
	reports, err := as.todos.CountsByOwner(ctx)

	if err != nil {
		return nil, domain.ErrStorage
	}

	return reports, nil
}

func (as *AdminService) CleanupOrphans(ctx context.Context) (int, error) {
	count, err := as.todos.CleanupOrphans(ctx)

	if err != nil {
		return 0, domain.ErrStorage
	}

	if count > 0 {
		slog.Warn("Removed orphaned todos", "count", count)
	}

	return count, nil
}
