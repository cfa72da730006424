package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"todoweb/internal/core/domain"
	"todoweb/internal/core/port"
	tel "todoweb/internal/core/telemetry"
)

type TodoService struct {
	repo      port.TodoRepository
	telemetry port.Telemetry
}

func NewTodoService(repo port.TodoRepository, telemetry port.Telemetry) *TodoService {
	if telemetry == nil {
		telemetry = tel.NewNoOpProbe()
	}

	return &TodoService{repo: repo, telemetry: telemetry}
}

// ownedTodo is the single ownership choke point. Every user-scoped read and
// mutation goes through it, against a fresh fetch: ownership established by
// an earlier call is never trusted. A blocked cross-user access is audited
// internally but surfaces as the same not-found a genuine absence produces.
func (ts *TodoService) ownedTodo(ctx context.Context, todoID int, ownerID int) (domain.Todo, error) {
	todo, err := ts.repo.GetByID(ctx, todoID)

	if errors.Is(err, domain.ErrTodoNotFound) {
		return domain.Todo{}, domain.ErrTodoNotFound
	}

	if err != nil {
		slog.Error("Todo lookup failed", "error", err, "todo_id", todoID)
		return domain.Todo{}, domain.ErrStorage
	}

	if !todo.BelongsToUser(ownerID) {
		ts.telemetry.RecordSecurityEvent(ctx, "ownership_violation_blocked", ownerID, map[string]interface{}{
			"todo_id":  todoID,
			"owner_id": todo.UserId,
		})
		slog.Warn("Blocked cross-user todo access",
			"user_id", ownerID,
			"todo_id", todoID,
			"owner_id", todo.UserId)

		return domain.Todo{}, domain.ErrTodoNotFound
	}

	return todo, nil
}

// Create assigns ownership from the authenticated identity only. The owner id
// must never come from client-supplied input.
func (ts *TodoService) Create(ctx context.Context, ownerID int, title string, description string, priority domain.Priority, dueDate *string) (domain.Todo, error) {
	ctx, span := ts.telemetry.StartServiceSpan(ctx, "todo", "Create", ownerID, nil)
	defer span.End()

	title = strings.TrimSpace(title)

	if title == "" {
		return domain.Todo{}, fmt.Errorf("%w: title cannot be blank", domain.ErrValidation)
	}

	if priority == "" {
		priority = domain.PriorityMedium
	}

	if !priority.Valid() {
		return domain.Todo{}, fmt.Errorf("%w: invalid priority %q", domain.ErrValidation, priority)
	}

	if dueDate != nil && *dueDate == "" {
		dueDate = nil
	}

	// UTC throughout; sqlite stores timestamps as text and mixed offsets
	// would break keyset ordering.
	now := time.Now().UTC()

	newTodo := domain.Todo{
		UUID:        uuid.New(),
		UserId:      ownerID,
		Title:       title,
		Description: strings.TrimSpace(description),
		Completed:   false,
		Priority:    priority,
		DueDate:     dueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	todo, err := ts.repo.Create(ctx, newTodo)

	if err != nil {
		span.RecordError(err)
		slog.Error("Repository create failed", "error", err, "title", newTodo.Title)
		return domain.Todo{}, domain.ErrStorage
	}

	return todo, nil
}

// ListByOwner re-verifies ownership of every returned row even though the
// query already filtered by owner. Rows that fail the check are dropped and
// audited, never returned.
func (ts *TodoService) ListByOwner(ctx context.Context, ownerID int, completed *bool) ([]domain.Todo, error) {
	todos, err := ts.repo.ListByOwner(ctx, ownerID, completed)

	if err != nil {
		slog.Error("Error fetching todos", "error", err, "user_id", ownerID)
		return nil, domain.ErrStorage
	}

	owned := make([]domain.Todo, 0, len(todos))

	for _, todo := range todos {
		if !todo.BelongsToUser(ownerID) {
			ts.telemetry.RecordSecurityEvent(ctx, "foreign_row_filtered", ownerID, map[string]interface{}{
				"todo_id":  todo.ID,
				"owner_id": todo.UserId,
			})
			slog.Warn("Filtered foreign todo from owner listing",
				"user_id", ownerID,
				"todo_id", todo.ID,
				"owner_id", todo.UserId)

			continue
		}

		owned = append(owned, todo)
	}

	return owned, nil
}

func (ts *TodoService) GetByID(ctx context.Context, todoID int, ownerID int) (domain.Todo, error) {
	return ts.ownedTodo(ctx, todoID, ownerID)
}

func (ts *TodoService) Update(ctx context.Context, todoID int, ownerID int, patch domain.TodoPatch) (domain.Todo, error) {
	ctx, span := ts.telemetry.StartServiceSpan(ctx, "todo", "Update", ownerID, map[string]interface{}{
		"todo.id": todoID,
	})
	defer span.End()

	current, err := ts.ownedTodo(ctx, todoID, ownerID)

	if err != nil {
		return domain.Todo{}, err
	}

	if patch.Empty() {
		return current, nil
	}

	merged, err := patch.ApplyTo(current, time.Now().UTC())

	if err != nil {
		return domain.Todo{}, err
	}

	updated, err := ts.repo.Update(ctx, merged)

	if errors.Is(err, domain.ErrTodoNotFound) {
		// The record moved or vanished between the ownership check and the
		// write. Same not-found contract applies.
		return domain.Todo{}, domain.ErrTodoNotFound
	}

	if err != nil {
		span.RecordError(err)
		slog.Error("Repository update failed", "error", err, "todo_id", todoID)
		return domain.Todo{}, domain.ErrStorage
	}

	return updated, nil
}

func (ts *TodoService) ToggleCompletion(ctx context.Context, todoID int, ownerID int) (domain.Todo, error) {
	if _, err := ts.ownedTodo(ctx, todoID, ownerID); err != nil {
		return domain.Todo{}, err
	}

	todo, err := ts.repo.ToggleCompletion(ctx, todoID, ownerID)

	if errors.Is(err, domain.ErrTodoNotFound) {
		return domain.Todo{}, domain.ErrTodoNotFound
	}

	if err != nil {
		slog.Error("Repository toggle failed", "error", err, "todo_id", todoID)
		return domain.Todo{}, domain.ErrStorage
	}

	ts.telemetry.RecordBusinessEvent(ctx, "toggled", "todo", todo.UUID.String(), ownerID, map[string]interface{}{
		"completed": todo.Completed,
	})

	return todo, nil
}

func (ts *TodoService) Delete(ctx context.Context, todoID int, ownerID int) error {
	if _, err := ts.ownedTodo(ctx, todoID, ownerID); err != nil {
		return err
	}

	err := ts.repo.Delete(ctx, todoID, ownerID)

	if errors.Is(err, domain.ErrTodoNotFound) {
		return domain.ErrTodoNotFound
	}

	if err != nil {
		slog.Error("Repository delete failed", "error", err, "todo_id", todoID)
		return domain.ErrStorage
	}

	return nil
}

func (ts *TodoService) StatsByOwner(ctx context.Context, ownerID int) (domain.OwnerStats, error) {
	todos, err := ts.ListByOwner(ctx, ownerID, nil)

	if err != nil {
		return domain.OwnerStats{}, err
	}

	stats := domain.OwnerStats{Total: len(todos)}

	for _, todo := range todos {
		if todo.Completed {
			stats.Completed++
		}
	}

	stats.Pending = stats.Total - stats.Completed

	if stats.Total > 0 {
		stats.CompletionRate = float64(stats.Completed) / float64(stats.Total)
	}

	return stats, nil
}
