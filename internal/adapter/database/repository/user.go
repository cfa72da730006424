package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"todoweb/internal/adapter/database"
	"todoweb/internal/core/domain"
	"todoweb/internal/core/port"
)

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) port.UserRepository {
	return &UserRepository{db: db}
}

func (ur *UserRepository) GetByID(ctx context.Context, id int) (domain.User, error) {
	query, args, err := ur.db.QueryBuilder.
		Select("id", "uuid", "username", "email", "role", "active", "created_at", "updated_at").
		From("users").
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()

	if err != nil {
		return domain.User{}, err
	}

	var (
		user domain.User
		uid  string
		role string
	)

	err = ur.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &uid, &user.Username, &user.Email, &role, &user.Active,
		&user.CreatedAt, &user.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, err
	}

	if err != nil {
		slog.Error("Error getting user by id", "error", err, "id", id)
		return domain.User{}, err
	}

	user.UUID, err = uuid.Parse(uid)

	if err != nil {
		return domain.User{}, err
	}

	user.Role = domain.UserRole(role)

	return user, nil
}

func (ur *UserRepository) Counts(ctx context.Context) (int, int, error) {
	query, args, err := ur.db.QueryBuilder.
		Select("COUNT(*)", "COALESCE(SUM(CASE WHEN active THEN 1 ELSE 0 END), 0)").
		From("users").
		ToSql()

	if err != nil {
		return 0, 0, err
	}

	var total, active int

	err = ur.db.QueryRowContext(ctx, query, args...).Scan(&total, &active)

	if err != nil {
		slog.Error("Error counting users", "error", err)
		return 0, 0, err
	}

	return total, active, nil
}
