package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	. "todoweb/pkg/test"

	"todoweb/internal/adapter/database"
	"todoweb/internal/adapter/database/repository"
	"todoweb/internal/adapter/http/handler"
	"todoweb/internal/core/domain"
	"todoweb/internal/core/port"
	"todoweb/internal/core/service"
	"todoweb/internal/shared"
	"todoweb/pkg/auth"
)

var ctxBackground = context.Background()

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "routes-test-secret")
	os.Exit(m.Run())
}

// RouterSuite drives the fully assembled router, identity resolution,
// response cache and rate limiter included, exactly as production wires it.
type RouterSuite struct {
	suite.Suite
	DB       *database.DB
	TodoRepo port.TodoRepository
	Router   *gin.Engine

	alice domain.User
	bob   domain.User
}

func (s *RouterSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	s.DB = InitTestDB()

	s.TodoRepo = repository.NewTodoRepository(s.DB, nil)
	userRepo := repository.NewUserRepository(s.DB)

	todoUseCase := service.NewTodoService(s.TodoRepo, nil)
	adminUseCase := service.NewAdminService(s.TodoRepo, userRepo, nil)

	logger, err := shared.NewAppLogger("todoweb-test", "")

	if err != nil {
		s.T().Fatal(err)
	}

	metrics := shared.NewAppMetrics(prometheus.NewRegistry())

	s.Router = SetupRouterWithConfig(HandlersConfig{
		TodoHandler:  handler.NewTodoHandler(todoUseCase, logger),
		AdminHandler: handler.NewAdminHandler(adminUseCase, logger),
	}, metrics, logger, shared.GetDefaultConfig())

	s.alice = SeedUser(s.T(), s.DB, domain.User{
		UUID:     uuid.New(),
		Username: "alice",
		Email:    "alice@example.com",
		Active:   true,
	})

	s.bob = SeedUser(s.T(), s.DB, domain.User{
		UUID:     uuid.New(),
		Username: "bob",
		Email:    "bob@example.com",
		Active:   true,
	})
}

func (s *RouterSuite) TearDownTest() {
	s.DB.Close()
}

func TestRouterSuite(t *testing.T) {
	RegisterTestingT(t)
	suite.Run(t, new(RouterSuite))
}

// get issues a GET as the given user. httptest gives every request the
// same RemoteAddr, so all callers here share one client IP.
func (s *RouterSuite) get(path string, user domain.User) *httptest.ResponseRecorder {
	token, err := auth.CreateJwtTokenForUser(user.ID, string(user.Role))

	Expect(err).To(BeNil())

	req := httptest.NewRequest("GET", path, nil)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)

	return w
}

func (s *RouterSuite) seedTodo(user domain.User, title string) domain.Todo {
	now := time.Now().UTC()

	todo, err := s.TodoRepo.Create(ctxBackground, domain.Todo{
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

func (s *RouterSuite) TestResponseCache_ScopedToAuthenticatedUser() {
	s.seedTodo(s.alice, "Alice's private todo")

	w1 := s.get("/todos", s.alice)

	Expect(w1.Code).To(Equal(http.StatusOK))
	Expect(w1.Header().Get("X-Cache")).To(Equal("MISS"))

	var aliceBody struct {
		Size int `json:"size"`
	}

	Expect(json.Unmarshal(w1.Body.Bytes(), &aliceBody)).To(Succeed())
	Expect(aliceBody.Size).To(Equal(1))

	// Bob shares alice's client IP; within the cache TTL he must still
	// get his own listing, never alice's cached payload.
	w2 := s.get("/todos", s.bob)

	Expect(w2.Code).To(Equal(http.StatusOK))
	Expect(w2.Header().Get("X-Cache")).To(Equal("MISS"))

	var bobBody struct {
		Size int `json:"size"`
	}

	Expect(json.Unmarshal(w2.Body.Bytes(), &bobBody)).To(Succeed())
	Expect(bobBody.Size).To(Equal(0))
	Expect(w2.Body.String()).ToNot(Equal(w1.Body.String()))

	// Alice's own repeat is served from cache.
	w3 := s.get("/todos", s.alice)

	Expect(w3.Header().Get("X-Cache")).To(Equal("HIT"))
	Expect(w3.Body.String()).To(Equal(w1.Body.String()))
}

func (s *RouterSuite) TestRateLimiter_KeysOnAuthenticatedUser() {
	w1 := s.get("/todos", s.alice)

	Expect(w1.Code).To(Equal(http.StatusOK))
	Expect(w1.Header().Get("X-RateLimit-Remaining")).To(Equal("99"))

	// Bob's quota is his own even though he shares alice's IP. Were the
	// limiter keyed by IP his first request would read 98.
	w2 := s.get("/todos", s.bob)

	Expect(w2.Code).To(Equal(http.StatusOK))
	Expect(w2.Header().Get("X-RateLimit-Remaining")).To(Equal("99"))
}

func (s *RouterSuite) TestUnauthenticatedRequestStillRejected() {
	req := httptest.NewRequest("GET", "/todos", nil)

	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)

	Expect(w.Code).To(Equal(http.StatusUnauthorized))
}
