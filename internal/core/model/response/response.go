package response

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"todoweb/internal/core/domain"
)

type TodoResponse struct {
	UUID        uuid.UUID `json:"uuid"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	Priority    string    `json:"priority"`
	DueDate     *string   `json:"due_date,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewTodoResponse(todo domain.Todo) TodoResponse {
	return TodoResponse{
		UUID:        todo.UUID,
		Title:       todo.Title,
		Description: todo.Description,
		Completed:   todo.Completed,
		Priority:    string(todo.Priority),
		DueDate:     todo.DueDate,
		CreatedAt:   todo.CreatedAt,
		UpdatedAt:   todo.UpdatedAt,
	}
}

type TodoListResponse struct {
	Size int            `json:"size"`
	Data []TodoResponse `json:"data"`
}

type StatsResponse struct {
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	Pending        int     `json:"pending"`
	CompletionRate float64 `json:"completion_rate"`
}

type AdminTodoResponse struct {
	TodoResponse
	OwnerID       int    `json:"owner_id"`
	OwnerUsername string `json:"owner_username"`
	OwnerEmail    string `json:"owner_email"`
}

type AdminListResponse struct {
	Size       int             `json:"size"`
	Data       json.RawMessage `json:"data"`
	Pagination struct {
		HasNext    bool   `json:"has_next"`
		NextCursor string `json:"next_cursor"`
	} `json:"pagination"`
}

type ActivityResponse struct {
	Action    string    `json:"action"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

type OwnerReportResponse struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	TotalTodos     int    `json:"total_todos"`
	CompletedTodos int    `json:"completed_todos"`
}

type SystemStatsResponse struct {
	TotalTodos       int                `json:"total_todos"`
	CompletedTodos   int                `json:"completed_todos"`
	PendingTodos     int                `json:"pending_todos"`
	CountsByPriority map[string]int     `json:"counts_by_priority"`
	UserCount        int                `json:"user_count"`
	ActiveUsers      int                `json:"active_users"`
	RecentActivity   []ActivityResponse `json:"recent_activity"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ResponseError struct {
	Code    string            `json:"code"`
	Errors  []ValidationError `json:"errors"`
	Details any               `json:"details,omitempty"`
}

type SuccessResponse struct {
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error ResponseError `json:"error"`
}
