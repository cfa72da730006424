package port

import (
	"context"

	"todoweb/internal/core/domain"
	"todoweb/internal/core/model/response"
)

type TodoRepository interface {
	Create(ctx context.Context, todo domain.Todo) (domain.Todo, error)
	// GetByID fetches regardless of owner. Only the service-level ownership
	// choke point and admin operations may call it.
	GetByID(ctx context.Context, id int) (domain.Todo, error)
	ListByOwner(ctx context.Context, ownerID int, completed *bool) ([]domain.Todo, error)
	Update(ctx context.Context, todo domain.Todo) (domain.Todo, error)
	ToggleCompletion(ctx context.Context, id int, ownerID int) (domain.Todo, error)
	Delete(ctx context.Context, id int, ownerID int) error

	ListAllWithOwner(ctx context.Context, completed *bool, limit int, cursor string) ([]domain.AdminTodo, bool, error)
	DeleteAny(ctx context.Context, id int) error
	DeleteAllForOwner(ctx context.Context, ownerID int) (int, error)
	TodoTotals(ctx context.Context) (total int, completed int, err error)
	CountsByPriority(ctx context.Context) (map[domain.Priority]int, error)
	RecentActivity(ctx context.Context, limit int) ([]domain.ActivityEntry, error)
	CountsByOwner(ctx context.Context) ([]domain.OwnerReport, error)
	CleanupOrphans(ctx context.Context) (int, error)
}

type TodoService interface {
	Create(ctx context.Context, ownerID int, title string, description string, priority domain.Priority, dueDate *string) (domain.Todo, error)
	ListByOwner(ctx context.Context, ownerID int, completed *bool) ([]domain.Todo, error)
	GetByID(ctx context.Context, todoID int, ownerID int) (domain.Todo, error)
	Update(ctx context.Context, todoID int, ownerID int, patch domain.TodoPatch) (domain.Todo, error)
	ToggleCompletion(ctx context.Context, todoID int, ownerID int) (domain.Todo, error)
	Delete(ctx context.Context, todoID int, ownerID int) error
	StatsByOwner(ctx context.Context, ownerID int) (domain.OwnerStats, error)
}

type AdminService interface {
	ListAll(ctx context.Context, completed *bool, limit int, cursor string) (*response.AdminListResponse, error)
	DeleteAny(ctx context.Context, todoID int) error
	DeleteAllForOwner(ctx context.Context, ownerID int) (int, error)
	SystemStats(ctx context.Context) (domain.SystemStats, error)
	CountsByOwner(ctx context.Context) ([]domain.OwnerReport, error)
	CleanupOrphans(ctx context.Context) (int, error)
}
