package factory

import (
	"time"

	fab "github.com/Goldziher/fabricator"
	"github.com/google/uuid"

	"todoweb/internal/core/domain"
)

func NewUser(customData ...map[string]any) domain.User {
	defaults := map[string]any{
		"UUID":      uuid.New(),
		"Role":      domain.RoleUser,
		"Active":    true,
		"CreatedAt": time.Now().UTC(),
		"UpdatedAt": time.Now().UTC(),
	}

	instance := fab.New(domain.User{})

	return instance.Build(mergeData(defaults, customData))
}
