package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/suite"

	. "todoweb/pkg/test"

	"todoweb/internal/adapter/database"
	"todoweb/internal/adapter/database/repository"
	"todoweb/internal/adapter/http/middleware"
	"todoweb/internal/core/domain"
	"todoweb/internal/core/port"
	"todoweb/internal/core/service"
	"todoweb/internal/shared"
	"todoweb/pkg/auth"
)

type AdminHandlerSuite struct {
	suite.Suite
	DB       *database.DB
	TodoRepo port.TodoRepository
	Router   *gin.Engine

	admin  domain.User
	member domain.User
}

func (s *AdminHandlerSuite) SetupTest() {
	s.DB = InitTestDB()

	s.TodoRepo = repository.NewTodoRepository(s.DB, nil)
	userRepo := repository.NewUserRepository(s.DB)

	adminUseCase := service.NewAdminService(s.TodoRepo, userRepo, nil)

	logger, err := shared.NewAppLogger("todoweb-test", "")

	if err != nil {
		s.T().Fatal(err)
	}

	adminHandler := NewAdminHandler(adminUseCase, logger)

	s.Router = setupAdminTestRouter(adminHandler)

	s.admin = SeedUser(s.T(), s.DB, domain.User{
		UUID:     uuid.New(),
		Username: "root",
		Email:    "root@example.com",
		Role:     domain.RoleAdmin,
		Active:   true,
	})

	s.member = SeedUser(s.T(), s.DB, domain.User{
		UUID:     uuid.New(),
		Username: "member",
		Email:    "member@example.com",
		Active:   true,
	})
}

func (s *AdminHandlerSuite) TearDownTest() {
	s.DB.Close()
}

func TestAdminHandlerSuite(t *testing.T) {
	RegisterTestingT(t)
	suite.Run(t, new(AdminHandlerSuite))
}

func setupAdminTestRouter(adminHandler *AdminHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	router.Use(gin.Recovery())

	admin := router.Group("/admin")
	admin.Use(middleware.RequestMetaMiddleware())
	admin.Use(middleware.IdentityMiddleware())
	admin.Use(middleware.RequireAdmin())
	{
		admin.GET("/todos", adminHandler.GetAllTodos)
		admin.DELETE("/todos/:id", adminHandler.DeleteTodo)
		admin.DELETE("/users/:id/todos", adminHandler.DeleteUserTodos)
		admin.GET("/stats", adminHandler.GetSystemStats)
		admin.GET("/reports/owners", adminHandler.GetOwnerReport)
		admin.POST("/maintenance/cleanup", adminHandler.CleanupOrphans)
	}

	return router
}

func (s *AdminHandlerSuite) request(method, path string, user domain.User) *httptest.ResponseRecorder {
	token, err := auth.CreateJwtTokenForUser(user.ID, string(user.Role))

	Expect(err).To(BeNil())

	var req *http.Request

	if method == "POST" {
		req = httptest.NewRequest(method, path, strings.NewReader("{}"))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)

	return w
}

func (s *AdminHandlerSuite) seedTodo(user domain.User, title string) domain.Todo {
	now := time.Now().UTC()

	todo, err := s.TodoRepo.Create(ctx, domain.Todo{
		UUID:      uuid.New(),
		UserId:    user.ID,
		Title:     title,
		Priority:  domain.PriorityMedium,
		CreatedAt: now,
		UpdatedAt: now,
	})

	Expect(err).To(BeNil())

	return todo
}

func (s *AdminHandlerSuite) TestNonAdminForbidden() {
	w := s.request("GET", "/admin/todos", s.member)

	Expect(w.Code).To(Equal(http.StatusForbidden))
}

func (s *AdminHandlerSuite) TestGetAllTodos_SpansOwners() {
	s.seedTodo(s.admin, "Admin's own")
	s.seedTodo(s.member, "Member's")

	w := s.request("GET", "/admin/todos", s.admin)

	Expect(w.Code).To(Equal(http.StatusOK))

	var body struct {
		Size int `json:"size"`
	}

	Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
	Expect(body.Size).To(Equal(2))
}

func (s *AdminHandlerSuite) TestGetAllTodos_GarbageCursorIsBadRequest() {
	s.seedTodo(s.member, "Anything")

	w := s.request("GET", "/admin/todos?cursor=garbage", s.admin)

	Expect(w.Code).To(Equal(http.StatusBadRequest))
}

func (s *AdminHandlerSuite) TestDeleteAnyTodo() {
	todo := s.seedTodo(s.member, "Member's todo")

	w := s.request("DELETE", fmt.Sprintf("/admin/todos/%d", todo.ID), s.admin)

	Expect(w.Code).To(Equal(http.StatusOK))

	w = s.request("DELETE", fmt.Sprintf("/admin/todos/%d", todo.ID), s.admin)

	Expect(w.Code).To(Equal(http.StatusNotFound))
}

func (s *AdminHandlerSuite) TestDeleteUserTodos() {
	s.seedTodo(s.member, "One")
	s.seedTodo(s.member, "Two")

	w := s.request("DELETE", fmt.Sprintf("/admin/users/%d/todos", s.member.ID), s.admin)

	Expect(w.Code).To(Equal(http.StatusOK))

	var body struct {
		Count int `json:"count"`
	}

	Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
	Expect(body.Count).To(Equal(2))

	// Idempotent.
	w = s.request("DELETE", fmt.Sprintf("/admin/users/%d/todos", s.member.ID), s.admin)

	Expect(w.Code).To(Equal(http.StatusOK))
	Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
	Expect(body.Count).To(Equal(0))
}

func (s *AdminHandlerSuite) TestSystemStats() {
	s.seedTodo(s.member, "Anything")

	w := s.request("GET", "/admin/stats", s.admin)

	Expect(w.Code).To(Equal(http.StatusOK))

	var body struct {
		Data struct {
			TotalTodos int `json:"total_todos"`
			UserCount  int `json:"user_count"`
		} `json:"data"`
	}

	Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
	Expect(body.Data.TotalTodos).To(Equal(1))
	Expect(body.Data.UserCount).To(Equal(2))
}

func (s *AdminHandlerSuite) TestOwnerReport() {
	s.seedTodo(s.member, "Counted")

	w := s.request("GET", "/admin/reports/owners", s.admin)

	Expect(w.Code).To(Equal(http.StatusOK))

	var body struct {
		Data []struct {
			Username   string `json:"username"`
			TotalTodos int    `json:"total_todos"`
		} `json:"data"`
	}

	Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
	Expect(body.Data).To(HaveLen(2))
}

func (s *AdminHandlerSuite) TestCleanup() {
	w := s.request("POST", "/admin/maintenance/cleanup", s.admin)

	Expect(w.Code).To(Equal(http.StatusOK))

	var body struct {
		Count int `json:"count"`
	}

	Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
	Expect(body.Count).To(Equal(0))
}
