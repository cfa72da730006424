package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}

	return false
}

func ParsePriority(value string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "medium":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	case "high":
		return PriorityHigh, nil
	default:
		return "", fmt.Errorf("%w: invalid priority %q, valid priorities are: low, medium, high", ErrValidation, value)
	}
}

type Todo struct {
	ID          int
	UUID        uuid.UUID
	UserId      int
	Title       string `validate:"required,max=255"`
	Description string `validate:"max=1000"`
	Completed   bool
	Priority    Priority `validate:"oneof=low medium high"`
	DueDate     *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (t *Todo) BelongsToUser(userID int) bool {
	return t.UserId == userID
}

func (t *Todo) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"id":          t.ID,
		"uuid":        t.UUID,
		"user_id":     t.UserId,
		"title":       t.Title,
		"description": t.Description,
		"completed":   t.Completed,
		"priority":    string(t.Priority),
		"due_date":    t.DueDate,
		"created_at":  t.CreatedAt,
		"updated_at":  t.UpdatedAt,
	}
}

// TodoPatch carries a partial update. A nil field means "not supplied"; a
// non-nil pointer to an empty value means "set to empty". UserId and CreatedAt
// have no place here on purpose.
type TodoPatch struct {
	Title       *string
	Description *string
	Completed   *bool
	Priority    *Priority
	DueDate     *string
}

func (p *TodoPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil &&
		p.Priority == nil && p.DueDate == nil
}

// ApplyTo merges the supplied fields over an existing record. Ownership and
// creation time are preserved unconditionally.
func (p *TodoPatch) ApplyTo(todo Todo, now time.Time) (Todo, error) {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)

		if title == "" {
			return Todo{}, fmt.Errorf("%w: title cannot be blank", ErrValidation)
		}

		todo.Title = title
	}

	if p.Description != nil {
		todo.Description = strings.TrimSpace(*p.Description)
	}

	if p.Completed != nil {
		todo.Completed = *p.Completed
	}

	if p.Priority != nil {
		if !p.Priority.Valid() {
			return Todo{}, fmt.Errorf("%w: invalid priority %q", ErrValidation, *p.Priority)
		}

		todo.Priority = *p.Priority
	}

	if p.DueDate != nil {
		if *p.DueDate == "" {
			todo.DueDate = nil
		} else {
			dueDate := *p.DueDate
			todo.DueDate = &dueDate
		}
	}

	todo.UpdatedAt = now

	return todo, nil
}

// OwnerStats is the per-owner reporting shape. CompletionRate is 0 when the
// owner has no todos.
type OwnerStats struct {
	Total          int
	Completed      int
	Pending        int
	CompletionRate float64
}

// AdminTodo is a todo joined with its owner, for admin views only.
type AdminTodo struct {
	Todo
	OwnerUsername string
	OwnerEmail    string
}

type ActivityEntry struct {
	Action    string
	Username  string
	Timestamp time.Time
}

type OwnerReport struct {
	Username       string
	Email          string
	TotalTodos     int
	CompletedTodos int
}

type SystemStats struct {
	TotalTodos       int
	CompletedTodos   int
	PendingTodos     int
	CountsByPriority map[Priority]int
	UserCount        int
	ActiveUsers      int
	RecentActivity   []ActivityEntry
}
