package port

import (
	"context"

	"todoweb/internal/core/domain"
)

// UserRepository reads the externally-owned users table. No writes: account
// lifecycle belongs to the auth service upstream.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (domain.User, error)
	Counts(ctx context.Context) (total int, active int, err error)
}
