package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/suite"

	. "todoweb/pkg/test"

	"todoweb/internal/adapter/database"
	"todoweb/internal/adapter/database/repository"
	"todoweb/internal/core/domain"
	"todoweb/internal/core/port"
	"todoweb/pkg/test/factory"
)

type TodoRepositoryTestSuite struct {
	suite.Suite
	DB    *database.DB
	Repo  port.TodoRepository
	Users port.UserRepository

	owner domain.User
	other domain.User
}

func (s *TodoRepositoryTestSuite) SetupTest() {
	s.DB = InitTestDB()

	s.Repo = repository.NewTodoRepository(s.DB, nil)
	s.Users = repository.NewUserRepository(s.DB)

	s.owner = SeedUser(s.T(), s.DB, domain.User{
		UUID:     uuid.New(),
		Username: "owner",
		Email:    "owner@example.com",
		Active:   true,
	})

	s.other = SeedUser(s.T(), s.DB, domain.User{
		UUID:     uuid.New(),
		Username: "other",
		Email:    "other@example.com",
		Active:   true,
	})
}

func (s *TodoRepositoryTestSuite) TearDownTest() {
	s.DB.Close()
}

func TestTodoRepositoryTestSuite(t *testing.T) {
	RegisterTestingT(t)

	suite.Run(t, new(TodoRepositoryTestSuite))
}

func (s *TodoRepositoryTestSuite) seedTodo(user domain.User, custom ...map[string]any) domain.Todo {
	todo := factory.NewTodo(custom...)
	todo.UserId = user.ID

	created, err := s.Repo.Create(context.Background(), todo)

	Expect(err).To(BeNil())

	return created
}

func (s *TodoRepositoryTestSuite) TestCreate_RoundTrips() {
	due := "2026-12-01"

	created := s.seedTodo(s.owner, map[string]any{
		"Title":    "Round trip",
		"Priority": domain.PriorityHigh,
		"DueDate":  &due,
	})

	Expect(created.ID).NotTo(BeZero())
	Expect(created.Title).To(Equal("Round trip"))
	Expect(created.Priority).To(Equal(domain.PriorityHigh))
	Expect(created.DueDate).NotTo(BeNil())
	Expect(*created.DueDate).To(Equal("2026-12-01"))
	Expect(created.UserId).To(Equal(s.owner.ID))
}

func (s *TodoRepositoryTestSuite) TestGetByID_IsUnscoped() {
	created := s.seedTodo(s.owner)

	found, err := s.Repo.GetByID(context.Background(), created.ID)

	Expect(err).To(BeNil())
	Expect(found.UserId).To(Equal(s.owner.ID))

	_, err = s.Repo.GetByID(context.Background(), 987654)

	Expect(err).To(MatchError(domain.ErrTodoNotFound))
}

func (s *TodoRepositoryTestSuite) TestUpdate_ScopedToOwner() {
	created := s.seedTodo(s.owner, map[string]any{"Title": "Before"})

	created.Title = "After"
	created.UserId = s.other.ID

	// Update matches on id AND the original owner; passing a different
	// owner in the struct must not move the row.
	_, err := s.Repo.Update(context.Background(), created)

	Expect(err).To(MatchError(domain.ErrTodoNotFound))

	created.UserId = s.owner.ID
	updated, err := s.Repo.Update(context.Background(), created)

	Expect(err).To(BeNil())
	Expect(updated.Title).To(Equal("After"))
	Expect(updated.UserId).To(Equal(s.owner.ID))
}

func (s *TodoRepositoryTestSuite) TestToggleCompletion_Atomic() {
	created := s.seedTodo(s.owner, map[string]any{"Completed": false})

	toggled, err := s.Repo.ToggleCompletion(context.Background(), created.ID, s.owner.ID)

	Expect(err).To(BeNil())
	Expect(toggled.Completed).To(BeTrue())

	_, err = s.Repo.ToggleCompletion(context.Background(), created.ID, s.other.ID)

	Expect(err).To(MatchError(domain.ErrTodoNotFound))
}

func (s *TodoRepositoryTestSuite) TestDelete_ScopedToOwner() {
	created := s.seedTodo(s.owner)

	err := s.Repo.Delete(context.Background(), created.ID, s.other.ID)

	Expect(err).To(MatchError(domain.ErrTodoNotFound))

	err = s.Repo.Delete(context.Background(), created.ID, s.owner.ID)

	Expect(err).To(BeNil())
}

func (s *TodoRepositoryTestSuite) TestListByOwner_OrderedNewestFirst() {
	first := s.seedTodo(s.owner, map[string]any{
		"CreatedAt": time.Now().UTC().Add(-time.Hour),
		"UpdatedAt": time.Now().UTC().Add(-time.Hour),
	})
	second := s.seedTodo(s.owner)

	todos, err := s.Repo.ListByOwner(context.Background(), s.owner.ID, nil)

	Expect(err).To(BeNil())
	Expect(todos).To(HaveLen(2))
	Expect(todos[0].ID).To(Equal(second.ID))
	Expect(todos[1].ID).To(Equal(first.ID))
}

func (s *TodoRepositoryTestSuite) TestListAllWithOwner_MalformedCursorIsValidationError() {
	s.seedTodo(s.owner)

	_, _, err := s.Repo.ListAllWithOwner(context.Background(), nil, 10, "not-a-cursor")

	Expect(err).To(MatchError(domain.ErrValidation))

	// A well-formed but tampered cursor fails the signature check the
	// same way.
	_, _, err = s.Repo.ListAllWithOwner(context.Background(), nil, 10, "dGFtcGVyZWQ=.c2ln")

	Expect(err).To(MatchError(domain.ErrValidation))
}

func (s *TodoRepositoryTestSuite) TestTodoTotals() {
	s.seedTodo(s.owner, map[string]any{"Completed": true})
	s.seedTodo(s.owner, map[string]any{"Completed": false})
	s.seedTodo(s.other, map[string]any{"Completed": true})

	total, completed, err := s.Repo.TodoTotals(context.Background())

	Expect(err).To(BeNil())
	Expect(total).To(Equal(3))
	Expect(completed).To(Equal(2))
}

func (s *TodoRepositoryTestSuite) TestCountsByPriority() {
	s.seedTodo(s.owner, map[string]any{"Priority": domain.PriorityHigh})
	s.seedTodo(s.owner, map[string]any{"Priority": domain.PriorityHigh})
	s.seedTodo(s.owner, map[string]any{"Priority": domain.PriorityLow})

	counts, err := s.Repo.CountsByPriority(context.Background())

	Expect(err).To(BeNil())
	Expect(counts[domain.PriorityHigh]).To(Equal(2))
	Expect(counts[domain.PriorityLow]).To(Equal(1))
}

func (s *TodoRepositoryTestSuite) TestRecentActivity() {
	s.seedTodo(s.owner, map[string]any{"Title": "Recent"})

	entries, err := s.Repo.RecentActivity(context.Background(), 5)

	Expect(err).To(BeNil())
	Expect(entries).NotTo(BeEmpty())
	Expect(entries[0].Username).To(Equal("owner"))
	Expect(entries[0].Action).NotTo(BeEmpty())
}

func (s *TodoRepositoryTestSuite) TestCountsByOwner_IncludesOwnersWithoutTodos() {
	s.seedTodo(s.owner)

	reports, err := s.Repo.CountsByOwner(context.Background())

	Expect(err).To(BeNil())
	Expect(reports).To(HaveLen(2))
}

func (s *TodoRepositoryTestSuite) TestCleanupOrphans() {
	s.seedTodo(s.owner)

	// Sneak in an orphan with enforcement off; cleanup must remove only it.
	_, err := s.DB.Exec("PRAGMA foreign_keys = OFF")
	Expect(err).To(BeNil())

	_, err = s.DB.Exec(
		"INSERT INTO todos (uuid, user_id, title, created_at, updated_at) VALUES (?, 999999, 'orphan', ?, ?)",
		uuid.New().String(), time.Now().UTC(), time.Now().UTC(),
	)
	Expect(err).To(BeNil())

	_, err = s.DB.Exec("PRAGMA foreign_keys = ON")
	Expect(err).To(BeNil())

	count, err := s.Repo.CleanupOrphans(context.Background())

	Expect(err).To(BeNil())
	Expect(count).To(Equal(1))

	total, _, err := s.Repo.TodoTotals(context.Background())

	Expect(err).To(BeNil())
	Expect(total).To(Equal(1))
}
