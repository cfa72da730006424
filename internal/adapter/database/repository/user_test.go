package repository_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"

	. "todoweb/pkg/test"

	"todoweb/internal/adapter/database/repository"
	"todoweb/internal/core/domain"
)

func TestUserRepository_GetByID(t *testing.T) {
	RegisterTestingT(t)

	db := InitTestDB()
	defer db.Close()

	repo := repository.NewUserRepository(db)

	seeded := SeedUser(t, db, domain.User{
		UUID:     uuid.New(),
		Username: "carol",
		Email:    "carol@example.com",
		Role:     domain.RoleAdmin,
		Active:   true,
	})

	user, err := repo.GetByID(context.Background(), seeded.ID)

	assert.NoError(t, err)
	Expect(user.Username).To(Equal("carol"))
	Expect(user.Role).To(Equal(domain.RoleAdmin))
	Expect(user.IsAdmin()).To(BeTrue())

	_, err = repo.GetByID(context.Background(), 123456)

	assert.Error(t, err)
}

func TestUserRepository_Counts(t *testing.T) {
	RegisterTestingT(t)

	db := InitTestDB()
	defer db.Close()

	repo := repository.NewUserRepository(db)

	SeedUser(t, db, domain.User{UUID: uuid.New(), Username: "a", Email: "a@example.com", Active: true})
	SeedUser(t, db, domain.User{UUID: uuid.New(), Username: "b", Email: "b@example.com", Active: false})

	total, active, err := repo.Counts(context.Background())

	assert.NoError(t, err)
	Expect(total).To(Equal(2))
	Expect(active).To(Equal(1))
}
