package handlers

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/projectmanager/backend/internal/database"
	"github.com/projectmanager/backend/internal/middleware"
	"github.com/projectmanager/backend/internal/models"
	"github.com/projectmanager/backend/internal/services"
	"github.com/projectmanager/backend/internal/storage"
	"github.com/projectmanager/backend/pkg/auth"
	"github.com/projectmanager/backend/pkg/logger"
	"github.com/projectmanager/backend/pkg/utils"
	"gorm.io/gorm"
)

type testEnv struct {
	app    *fiber.App
	db     *gorm.DB
	store  *memStore
	tokens *auth.TokenService
}

var testSetupOnce sync.Once

// memStore keeps uploaded objects in a map so document tests run without a
// MinIO instance.
type memStore struct {
	mu      sync.Mutex
	objects map[string]memObject
}

type memObject struct {
	data        []byte
	contentType string
}

func newMemStore() *memStore {
	return &memStore{objects: map[string]memObject{}}
}

func (s *memStore) Upload(_ context.Context, objectName string, reader io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectName] = memObject{data: data, contentType: contentType}
	return nil
}

func (s *memStore) Download(_ context.Context, objectName string) (*storage.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[objectName]
	if !ok {
		return nil, fmt.Errorf("object %q not found", objectName)
	}
	return &storage.Object{
		Reader:      io.NopCloser(bytes.NewReader(obj.data)),
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
	}, nil
}

func (s *memStore) Delete(_ context.Context, objectName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, objectName)
	return nil
}

func (s *memStore) has(objectName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[objectName]
	return ok
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		gosqlite.MustRegisterScalarFunction("NOW", 0, func(ctx *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			return time.Now().UTC(), nil
		})
		logger.Init()
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	tokens := auth.NewTokenService("test-secret", 24)
	store := newMemStore()
	relations := services.NewRelationService(db)

	usersHandler := NewUsersHandler(db, tokens)
	companiesHandler := NewCompaniesHandler(db)
	projectsHandler := NewProjectsHandler(db)
	documentsHandler := NewDocumentsHandler(db, store, relations, 25*1024*1024)
	commentsHandler := NewCommentsHandler(db, relations)

	authMiddleware := middleware.NewAuthMiddleware(db, tokens)

	app := fiber.New(fiber.Config{BodyLimit: 26 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())
	app.Use(authMiddleware.Authenticate)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	userRole := middleware.RequireRoles("user")
	adminRole := middleware.RequireRoles("admin")

	userRoutes := api.Group("/users")
	userRoutes.Post("/", usersHandler.Register)
	userRoutes.Post("/login", usersHandler.Login)
	userRoutes.Get("/", userRole, usersHandler.List)
	userRoutes.Get("/:id", userRole, usersHandler.Get)
	userRoutes.Put("/:id", userRole, usersHandler.Update)
	userRoutes.Delete("/:id", adminRole, usersHandler.Delete)

	companyRoutes := api.Group("/companies")
	companyRoutes.Get("/", adminRole, companiesHandler.List)
	companyRoutes.Get("/:id", userRole, companiesHandler.Get)
	companyRoutes.Post("/", adminRole, companiesHandler.Create)
	companyRoutes.Put("/:id", adminRole, companiesHandler.Update)
	companyRoutes.Delete("/:id", adminRole, companiesHandler.Delete)

	projectRoutes := api.Group("/projects")
	projectRoutes.Get("/", userRole, projectsHandler.List)
	projectRoutes.Get("/titles", userRole, projectsHandler.Titles)
	projectRoutes.Get("/user/:id", userRole, projectsHandler.ByUser)
	projectRoutes.Get("/company/:id", userRole, projectsHandler.ByCompany)
	projectRoutes.Get("/:id", userRole, projectsHandler.Get)
	projectRoutes.Post("/", adminRole, projectsHandler.Create)
	projectRoutes.Put("/:id", adminRole, projectsHandler.Update)
	projectRoutes.Delete("/:id", adminRole, projectsHandler.Delete)

	documentRoutes := api.Group("/documents")
	documentRoutes.Get("/", userRole, documentsHandler.List)
	documentRoutes.Get("/project/:id", userRole, documentsHandler.ByProject)
	documentRoutes.Get("/file/:id", userRole, documentsHandler.File)
	documentRoutes.Get("/:id", userRole, documentsHandler.Get)
	documentRoutes.Post("/", adminRole, documentsHandler.Create)
	documentRoutes.Put("/:id", userRole, documentsHandler.Update)
	documentRoutes.Delete("/:id", userRole, documentsHandler.Delete)

	commentRoutes := api.Group("/comments")
	commentRoutes.Get("/", commentsHandler.List)
	commentRoutes.Get("/project/:id", commentsHandler.ByProject)
	commentRoutes.Get("/document/:id", commentsHandler.ByDocument)
	commentRoutes.Get("/:id", commentsHandler.Get)
	commentRoutes.Post("/", userRole, commentsHandler.Create)
	commentRoutes.Put("/:id", userRole, commentsHandler.Update)
	commentRoutes.Delete("/:id", userRole, commentsHandler.Delete)

	return &testEnv{app: app, db: db, store: store, tokens: tokens}
}

func createTestUser(t *testing.T, env *testEnv, username, password string, roles ...string) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	if len(roles) == 0 {
		roles = []string{models.RoleUser}
	}

	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Roles:        models.RoleList(roles),
	}
	if err := env.db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := env.tokens.Generate(user)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if got, _ := body["error"].(string); got != expected {
		t.Fatalf("expected error %q, got %q (body %+v)", expected, got, body)
	}
}
