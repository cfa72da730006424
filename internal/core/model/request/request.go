package request

import "todoweb/internal/core/domain"

type CreateTodoRequest struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description string  `json:"description,omitempty" validate:"max=1000"`
	Priority    string  `json:"priority,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
}

// UpdateTodoRequest is a patch: nil means "leave alone", a present empty
// value means "clear". This keeps partial updates from wiping fields that
// were simply omitted from the payload.
type UpdateTodoRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	Completed   *bool   `json:"completed,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
}

func (r *UpdateTodoRequest) ToPatch() (domain.TodoPatch, error) {
	patch := domain.TodoPatch{
		Title:       r.Title,
		Description: r.Description,
		Completed:   r.Completed,
		DueDate:     r.DueDate,
	}

	if r.Priority != nil {
		priority, err := domain.ParsePriority(*r.Priority)

		if err != nil {
			return domain.TodoPatch{}, err
		}

		patch.Priority = &priority
	}

	return patch, nil
}
