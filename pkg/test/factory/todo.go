package factory

import (
	"time"

	fab "github.com/Goldziher/fabricator"
	"github.com/google/uuid"

	"todoweb/internal/core/domain"
)

// NewTodo builds a todo with sane defaults; pass custom data maps to
// override individual fields.
func NewTodo(customData ...map[string]any) domain.Todo {
	defaults := map[string]any{
		"UUID":      uuid.New(),
		"Priority":  domain.PriorityMedium,
		"Completed": false,
		"DueDate":   (*string)(nil),
		"CreatedAt": time.Now().UTC(),
		"UpdatedAt": time.Now().UTC(),
	}

	instance := fab.New(domain.Todo{})

	return instance.Build(mergeData(defaults, customData))
}

// mergeData flattens defaults plus custom maps into the single override
// map fabricator applies; fabricator's Build only reads overrides[0].
func mergeData(defaults map[string]any, customData []map[string]any) map[string]any {
	merged := map[string]any{}

	for key, value := range defaults {
		merged[key] = value
	}

	for _, data := range customData {
		for key, value := range data {
			merged[key] = value
		}
	}

	return merged
}
