package test

import (
	"database/sql"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/Masterminds/squirrel"

	"todoweb/internal/adapter/database"
	"todoweb/internal/core/domain"
)

// findProjectRoot finds the project root directory by looking for go.mod
func findProjectRoot() string {
	_, filename, _, _ := runtime.Caller(0)
	dir := filepath.Dir(filename)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if wd, err := os.Getwd(); err == nil {
		return wd
	}

	log.Fatal("Could not find project root directory")
	return ""
}

// InitTestDB opens an in-memory sqlite database with migrations applied.
// The pool is pinned to one connection; each sqlite :memory: connection
// is its own database.
func InitTestDB() *database.DB {
	sqlDB, err := sql.Open("sqlite3", ":memory:")

	if err != nil {
		log.Fatal(err)
	}

	sqlDB.SetMaxOpenConns(1)

	_, err = sqlDB.Exec("PRAGMA foreign_keys = ON")

	if err != nil {
		log.Fatal(err)
	}

	projectRoot := findProjectRoot()
	migrationsPath := filepath.Join(projectRoot, "db", "migrations")

	if err := database.RunSQLiteMigrations(sqlDB, migrationsPath); err != nil {
		log.Fatal(err)
	}

	queryBuilder := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

	return &database.DB{
		DB:           sqlDB,
		QueryBuilder: &queryBuilder,
	}
}

// SeedUser inserts a user row directly. The service itself never writes
// to users, so tests seed owners here.
func SeedUser(t *testing.T, db *database.DB, user domain.User) domain.User {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}

	if user.Role == "" {
		user.Role = domain.RoleUser
	}

	result, err := db.Exec(
		"INSERT INTO users (uuid, username, email, role, active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		user.UUID.String(), user.Username, user.Email, string(user.Role), user.Active, user.CreatedAt, user.UpdatedAt,
	)

	if err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}

	id, err := result.LastInsertId()

	if err != nil {
		t.Fatalf("Failed to read seeded user id: %v", err)
	}

	user.ID = int(id)

	return user
}

func CleanDB(t *testing.T, db *database.DB) {
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type = 'table' and name not in ('sqlite_sequence', 'schema_migrations')")
	if err != nil {
		t.Fatalf("Failed to query tables: %v", err)
	}
	defer rows.Close()

	var tables []string

	for rows.Next() {
		var table string

		if err := rows.Scan(&table); err != nil {
			t.Fatalf("Failed to scan table name: %v", err)
		}

		tables = append(tables, strings.TrimSpace(table))
	}

	if err := rows.Err(); err != nil {
		t.Fatalf("Error iterating over rows: %v", err)
	}

	// Reverse creation order so child rows go before their parents.
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := db.Exec("DELETE FROM " + tables[i]); err != nil {
			t.Fatalf("Failed to clean table %s: %v", tables[i], err)
		}
	}
}
