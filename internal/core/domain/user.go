package domain

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// User mirrors the externally-owned users table. This service never creates,
// authenticates, or mutates users; it only reads them for admin joins.
type User struct {
	ID        int
	UUID      uuid.UUID
	Username  string `validate:"required,min=2,max=100"`
	Email     string `validate:"required,email,max=255"`
	Role      UserRole
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
