package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"todoweb/internal/adapter/database"
	"todoweb/internal/core/domain"
	"todoweb/internal/core/port"
	tel "todoweb/internal/core/telemetry"
	"todoweb/internal/core/util"
)

var todoColumns = []string{
	"t.id", "t.uuid", "t.user_id", "t.title", "t.description",
	"t.completed", "t.priority", "t.due_date", "t.created_at", "t.updated_at",
}

type TodoRepository struct {
	db        *database.DB
	telemetry port.Telemetry
}

func NewTodoRepository(db *database.DB, telemetry port.Telemetry) port.TodoRepository {
	if telemetry == nil {
		telemetry = tel.NewNoOpProbe()
	}

	return &TodoRepository{
		db:        db,
		telemetry: telemetry,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (domain.Todo, error) {
	var (
		todo    domain.Todo
		uid     string
		prio    string
		dueDate sql.NullString
	)

	err := row.Scan(
		&todo.ID, &uid, &todo.UserId, &todo.Title, &todo.Description,
		&todo.Completed, &prio, &dueDate, &todo.CreatedAt, &todo.UpdatedAt,
	)

	if err != nil {
		return domain.Todo{}, err
	}

	todo.UUID, err = uuid.Parse(uid)

	if err != nil {
		return domain.Todo{}, err
	}

	todo.Priority = domain.Priority(prio)

	if dueDate.Valid {
		todo.DueDate = &dueDate.String
	}

	return todo, nil
}

func (tr *TodoRepository) Create(ctx context.Context, todo domain.Todo) (domain.Todo, error) {
	ctx, span := tr.telemetry.StartRepositorySpan(ctx, "Create", "todo", map[string]interface{}{
		"db.table":     "todos",
		"db.operation": "INSERT",
		"todo.uuid":    todo.UUID.String(),
		"user.id":      todo.UserId,
	})
	defer span.End()

	startTime := time.Now()

	query, args, err := tr.db.QueryBuilder.Insert("todos").
		Columns("uuid", "user_id", "title", "description", "completed", "priority", "due_date", "created_at", "updated_at").
		Values(todo.UUID.String(), todo.UserId, todo.Title, todo.Description, todo.Completed, string(todo.Priority), todo.DueDate, todo.CreatedAt, todo.UpdatedAt).
		ToSql()

	if err != nil {
		span.SetStatus("error", err.Error())
		span.RecordError(err)
		return domain.Todo{}, err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "Create", "todo", query, args)

	_, err = tr.db.ExecContext(ctx, query, args...)

	if err != nil {
		span.SetStatus("error", err.Error())
		span.RecordError(err)
		tr.telemetry.RecordRepositoryOperation(ctx, "Create", "todo", time.Since(startTime), err)
		slog.Error("Insert failed", "error", err, "uuid", todo.UUID.String())
		return domain.Todo{}, err
	}

	saved, err := tr.getByUUID(ctx, todo.UUID.String())

	if err != nil {
		span.SetStatus("error", err.Error())
		span.RecordError(err)
		tr.telemetry.RecordRepositoryOperation(ctx, "Create", "todo", time.Since(startTime), err)
		return domain.Todo{}, err
	}

	tr.telemetry.RecordBusinessEvent(ctx, "created", "todo", saved.UUID.String(), saved.UserId, map[string]interface{}{
		"title":      saved.Title,
		"priority":   string(saved.Priority),
		"created_at": saved.CreatedAt,
	})

	span.SetStatus("ok", "")
	tr.telemetry.RecordRepositoryOperation(ctx, "Create", "todo", time.Since(startTime), nil)

	return saved, nil
}

func (tr *TodoRepository) getByUUID(ctx context.Context, uid string) (domain.Todo, error) {
	query, args, err := tr.db.QueryBuilder.Select(todoColumns...).
		From("todos t").
		Where(sq.Eq{"t.uuid": uid}).
		Limit(1).
		ToSql()

	if err != nil {
		return domain.Todo{}, err
	}

	todo, err := scanTodo(tr.db.QueryRowContext(ctx, query, args...))

	if errors.Is(err, sql.ErrNoRows) {
		return domain.Todo{}, domain.ErrTodoNotFound
	}

	if err != nil {
		slog.Error("Error getting todo by uuid", "error", err)
		return domain.Todo{}, err
	}

	return todo, nil
}

// GetByID fetches without an ownership predicate. The service-level choke
// point owns the ownership decision; keeping the fetch raw lets it tell a
// genuine absence from a blocked cross-user access when auditing.
func (tr *TodoRepository) GetByID(ctx context.Context, id int) (domain.Todo, error) {
	query, args, err := tr.db.QueryBuilder.Select(todoColumns...).
		From("todos t").
		Where(sq.Eq{"t.id": id}).
		Limit(1).
		ToSql()

	if err != nil {
		return domain.Todo{}, err
	}

	todo, err := scanTodo(tr.db.QueryRowContext(ctx, query, args...))

	if errors.Is(err, sql.ErrNoRows) {
		return domain.Todo{}, domain.ErrTodoNotFound
	}

	if err != nil {
		slog.Error("Error getting todo by id", "error", err, "id", id)
		return domain.Todo{}, err
	}

	return todo, nil
}

func (tr *TodoRepository) ListByOwner(ctx context.Context, ownerID int, completed *bool) ([]domain.Todo, error) {
	ctx, span := tr.telemetry.StartRepositorySpan(ctx, "ListByOwner", "todo", map[string]interface{}{
		"db.table":     "todos",
		"db.operation": "SELECT",
		"user.id":      ownerID,
	})
	defer span.End()

	startTime := time.Now()

	builder := tr.db.QueryBuilder.Select(todoColumns...).
		From("todos t").
		Where(sq.Eq{"t.user_id": ownerID}).
		OrderBy("t.created_at DESC, t.id DESC")

	if completed != nil {
		builder = builder.Where(sq.Eq{"t.completed": *completed})
	}

	query, args, err := builder.ToSql()

	if err != nil {
		span.SetStatus("error", err.Error())
		span.RecordError(err)
		return nil, err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "ListByOwner", "todo", query, args)

	rows, err := tr.db.QueryContext(ctx, query, args...)

	if err != nil {
		span.SetStatus("error", err.Error())
		span.RecordError(err)
		tr.telemetry.RecordRepositoryOperation(ctx, "ListByOwner", "todo", time.Since(startTime), err)
		slog.Error("Error fetching todos", "error", err)
		return nil, err
	}

	defer rows.Close()

	todos := []domain.Todo{}

	for rows.Next() {
		todo, err := scanTodo(rows)

		if err != nil {
			return nil, err
		}

		todos = append(todos, todo)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	span.SetAttributes(map[string]interface{}{
		"db.rows_returned": len(todos),
	})
	span.SetStatus("ok", "")
	tr.telemetry.RecordRepositoryOperation(ctx, "ListByOwner", "todo", time.Since(startTime), nil)

	return todos, nil
}

// Update writes the full merged record. The WHERE clause pins both id and
// user_id so a concurrent reassignment or deletion makes the write miss
// instead of landing on a record the caller no longer owns. user_id and
// created_at are never part of the SET list.
func (tr *TodoRepository) Update(ctx context.Context, todo domain.Todo) (domain.Todo, error) {
	ctx, span := tr.telemetry.StartRepositorySpan(ctx, "Update", "todo", map[string]interface{}{
		"db.table":     "todos",
		"db.operation": "UPDATE",
		"todo.id":      todo.ID,
		"user.id":      todo.UserId,
	})
	defer span.End()

	startTime := time.Now()

	query, args, err := tr.db.QueryBuilder.Update("todos").
		Set("title", todo.Title).
		Set("description", todo.Description).
		Set("completed", todo.Completed).
		Set("priority", string(todo.Priority)).
		Set("due_date", todo.DueDate).
		Set("updated_at", todo.UpdatedAt).
		Where(sq.Eq{"id": todo.ID}).
		Where(sq.Eq{"user_id": todo.UserId}).
		ToSql()

	if err != nil {
		span.SetStatus("error", err.Error())
		span.RecordError(err)
		return domain.Todo{}, err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "Update", "todo", query, args)

	result, err := tr.db.ExecContext(ctx, query, args...)

	if err != nil {
		span.SetStatus("error", err.Error())
		span.RecordError(err)
		tr.telemetry.RecordRepositoryOperation(ctx, "Update", "todo", time.Since(startTime), err)
		slog.Error("Error updating todo", "error", err)
		return domain.Todo{}, err
	}

	rowsAffected, _ := result.RowsAffected()

	if rowsAffected == 0 {
		tr.telemetry.RecordRepositoryOperation(ctx, "Update", "todo", time.Since(startTime), domain.ErrTodoNotFound)
		return domain.Todo{}, domain.ErrTodoNotFound
	}

	updated, err := tr.GetByID(ctx, todo.ID)

	if err != nil {
		return domain.Todo{}, err
	}

	tr.telemetry.RecordBusinessEvent(ctx, "updated", "todo", updated.UUID.String(), updated.UserId, map[string]interface{}{
		"updated_at": updated.UpdatedAt,
	})

	span.SetStatus("ok", "")
	tr.telemetry.RecordRepositoryOperation(ctx, "Update", "todo", time.Since(startTime), nil)

	return updated, nil
}

// ToggleCompletion flips completed in a single statement so two concurrent
// toggles cannot lose an update.
func (tr *TodoRepository) ToggleCompletion(ctx context.Context, id int, ownerID int) (domain.Todo, error) {
	query, args, err := tr.db.QueryBuilder.Update("todos").
		Set("completed", sq.Expr("NOT completed")).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"user_id": ownerID}).
		ToSql()

	if err != nil {
		return domain.Todo{}, err
	}

	result, err := tr.db.ExecContext(ctx, query, args...)

	if err != nil {
		slog.Error("Error toggling todo", "error", err, "id", id)
		return domain.Todo{}, err
	}

	rowsAffected, _ := result.RowsAffected()

	if rowsAffected == 0 {
		return domain.Todo{}, domain.ErrTodoNotFound
	}

	return tr.GetByID(ctx, id)
}

func (tr *TodoRepository) Delete(ctx context.Context, id int, ownerID int) error {
	query, args, err := tr.db.QueryBuilder.Delete("todos").
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"user_id": ownerID}).
		ToSql()

	if err != nil {
		return err
	}

	result, err := tr.db.ExecContext(ctx, query, args...)

	if err != nil {
		slog.Error("Error deleting todo", "error", err, "id", id)
		return err
	}

	rowsAffected, _ := result.RowsAffected()

	if rowsAffected == 0 {
		return domain.ErrTodoNotFound
	}

	tr.telemetry.RecordBusinessEvent(ctx, "deleted", "todo", fmt.Sprintf("%d", id), ownerID, nil)

	return nil
}

func (tr *TodoRepository) ListAllWithOwner(ctx context.Context, completed *bool, limit int, cursor string) ([]domain.AdminTodo, bool, error) {
	ctx, span := tr.telemetry.StartRepositorySpan(ctx, "ListAllWithOwner", "todo", map[string]interface{}{
		"db.table":          "todos",
		"db.operation":      "SELECT",
		"pagination.limit":  limit,
		"pagination.cursor": cursor,
	})
	defer span.End()

	startTime := time.Now()

	actualLimit := limit + 1

	columns := append([]string{}, todoColumns...)
	columns = append(columns, "u.username", "u.email")

	builder := tr.db.QueryBuilder.Select(columns...).
		From("todos t").
		Join("users u ON t.user_id = u.id").
		OrderBy("t.created_at DESC, t.id DESC").
		Limit(uint64(actualLimit))

	if completed != nil {
		builder = builder.Where(sq.Eq{"t.completed": *completed})
	}

	if cursor != "" {
		// Cursors are client-supplied; a bad one is the caller's mistake,
		// not a storage failure.
		datetimeStr, id, err := util.DecodeCursor(cursor)

		if err != nil {
			span.SetStatus("error", err.Error())
			span.RecordError(err)
			slog.Warn("Rejected malformed cursor", "error", err)
			return nil, false, fmt.Errorf("%w: invalid cursor", domain.ErrValidation)
		}

		datetime, err := time.Parse(time.RFC3339Nano, datetimeStr)

		if err != nil {
			slog.Warn("Rejected cursor with bad datetime", "error", err, "datetime", datetimeStr)
			return nil, false, fmt.Errorf("%w: invalid cursor", domain.ErrValidation)
		}

		builder = builder.Where(sq.Or{
			sq.Lt{"t.created_at": datetime},
			sq.And{
				sq.Eq{"t.created_at": datetime},
				sq.Lt{"t.id": id},
			},
		})
	}

	query, args, err := builder.ToSql()

	if err != nil {
		span.SetStatus("error", err.Error())
		span.RecordError(err)
		return nil, false, err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "ListAllWithOwner", "todo", query, args)

	rows, err := tr.db.QueryContext(ctx, query, args...)

	if err != nil {
		span.SetStatus("error", err.Error())
		span.RecordError(err)
		tr.telemetry.RecordRepositoryOperation(ctx, "ListAllWithOwner", "todo", time.Since(startTime), err)
		return nil, false, err
	}

	defer rows.Close()

	data := []domain.AdminTodo{}

	for rows.Next() {
		var (
			item    domain.AdminTodo
			uid     string
			prio    string
			dueDate sql.NullString
		)

		err = rows.Scan(
			&item.ID, &uid, &item.UserId, &item.Title, &item.Description,
			&item.Completed, &prio, &dueDate, &item.CreatedAt, &item.UpdatedAt,
			&item.OwnerUsername, &item.OwnerEmail,
		)

		if err != nil {
			return nil, false, err
		}

		item.UUID, err = uuid.Parse(uid)

		if err != nil {
			return nil, false, err
		}

		item.Priority = domain.Priority(prio)

		if dueDate.Valid {
			item.DueDate = &dueDate.String
		}

		data = append(data, item)
	}

	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	hasNext := len(data) == actualLimit

	if hasNext {
		data = data[:limit]
	}

	span.SetAttributes(map[string]interface{}{
		"db.rows_returned": len(data),
		"db.has_next":      hasNext,
	})
	span.SetStatus("ok", "")
	tr.telemetry.RecordRepositoryOperation(ctx, "ListAllWithOwner", "todo", time.Since(startTime), nil)

	return data, hasNext, nil
}

func (tr *TodoRepository) DeleteAny(ctx context.Context, id int) error {
	// Fetch first so the audit trail records whose record an admin removed.
	todo, err := tr.GetByID(ctx, id)

	if err != nil {
		return err
	}

	query, args, err := tr.db.QueryBuilder.Delete("todos").
		Where(sq.Eq{"id": id}).
		ToSql()

	if err != nil {
		return err
	}

	result, err := tr.db.ExecContext(ctx, query, args...)

	if err != nil {
		slog.Error("Error deleting todo (admin)", "error", err, "id", id)
		return err
	}

	rowsAffected, _ := result.RowsAffected()

	if rowsAffected == 0 {
		return domain.ErrTodoNotFound
	}

	tr.telemetry.RecordBusinessEvent(ctx, "admin_deleted", "todo", todo.UUID.String(), todo.UserId, map[string]interface{}{
		"owner_id": todo.UserId,
	})

	return nil
}

func (tr *TodoRepository) DeleteAllForOwner(ctx context.Context, ownerID int) (int, error) {
	query, args, err := tr.db.QueryBuilder.Delete("todos").
		Where(sq.Eq{"user_id": ownerID}).
		ToSql()

	if err != nil {
		return 0, err
	}

	result, err := tr.db.ExecContext(ctx, query, args...)

	if err != nil {
		slog.Error("Error deleting owner todos", "error", err, "owner_id", ownerID)
		return 0, err
	}

	rowsAffected, _ := result.RowsAffected()

	return int(rowsAffected), nil
}

func (tr *TodoRepository) TodoTotals(ctx context.Context) (int, int, error) {
	query, args, err := tr.db.QueryBuilder.
		Select("COUNT(*)", "COALESCE(SUM(CASE WHEN completed THEN 1 ELSE 0 END), 0)").
		From("todos").
		ToSql()

	if err != nil {
		return 0, 0, err
	}

	var total, completed int

	err = tr.db.QueryRowContext(ctx, query, args...).Scan(&total, &completed)

	if err != nil {
		slog.Error("Error counting todos", "error", err)
		return 0, 0, err
	}

	return total, completed, nil
}

func (tr *TodoRepository) CountsByPriority(ctx context.Context) (map[domain.Priority]int, error) {
	query, args, err := tr.db.QueryBuilder.Select("priority", "COUNT(*)").
		From("todos").
		GroupBy("priority").
		ToSql()

	if err != nil {
		return nil, err
	}

	rows, err := tr.db.QueryContext(ctx, query, args...)

	if err != nil {
		slog.Error("Error counting todos by priority", "error", err)
		return nil, err
	}

	defer rows.Close()

	counts := map[domain.Priority]int{}

	for rows.Next() {
		var (
			prio  string
			count int
		)

		if err := rows.Scan(&prio, &count); err != nil {
			return nil, err
		}

		counts[domain.Priority(prio)] = count
	}

	return counts, rows.Err()
}

func (tr *TodoRepository) RecentActivity(ctx context.Context, limit int) ([]domain.ActivityEntry, error) {
	query, args, err := tr.db.QueryBuilder.
		Select("'Todo created'", "u.username", "t.created_at").
		From("todos t").
		Join("users u ON t.user_id = u.id").
		OrderBy("t.created_at DESC, t.id DESC").
		Limit(uint64(limit)).
		ToSql()

	if err != nil {
		return nil, err
	}

	rows, err := tr.db.QueryContext(ctx, query, args...)

	if err != nil {
		slog.Error("Error fetching recent activity", "error", err)
		return nil, err
	}

	defer rows.Close()

	entries := []domain.ActivityEntry{}

	for rows.Next() {
		var entry domain.ActivityEntry

		if err := rows.Scan(&entry.Action, &entry.Username, &entry.Timestamp); err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func (tr *TodoRepository) CountsByOwner(ctx context.Context) ([]domain.OwnerReport, error) {
	query, args, err := tr.db.QueryBuilder.
		Select(
			"u.username",
			"u.email",
			"COUNT(t.id) AS total_todos",
			"COALESCE(SUM(CASE WHEN t.completed THEN 1 ELSE 0 END), 0) AS completed_todos",
		).
		From("users u").
		LeftJoin("todos t ON u.id = t.user_id").
		GroupBy("u.id", "u.username", "u.email").
		OrderBy("total_todos DESC").
		ToSql()

	if err != nil {
		return nil, err
	}

	rows, err := tr.db.QueryContext(ctx, query, args...)

	if err != nil {
		slog.Error("Error getting todo counts by owner", "error", err)
		return nil, err
	}

	defer rows.Close()

	reports := []domain.OwnerReport{}

	for rows.Next() {
		var report domain.OwnerReport

		if err := rows.Scan(&report.Username, &report.Email, &report.TotalTodos, &report.CompletedTodos); err != nil {
			return nil, err
		}

		reports = append(reports, report)
	}

	return reports, rows.Err()
}

// CleanupOrphans removes todos whose owner no longer exists. The foreign key
// should make this a no-op; it exists for databases migrated from before the
// constraint was enforced.
func (tr *TodoRepository) CleanupOrphans(ctx context.Context) (int, error) {
	result, err := tr.db.ExecContext(ctx, "DELETE FROM todos WHERE user_id NOT IN (SELECT id FROM users)")

	if err != nil {
		slog.Error("Error cleaning up orphaned todos", "error", err)
		return 0, err
	}

	rowsAffected, _ := result.RowsAffected()

	return int(rowsAffected), nil
}
