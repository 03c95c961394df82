package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/projectmanager/backend/internal/config"
	"github.com/projectmanager/backend/internal/database"
	"github.com/projectmanager/backend/internal/handlers"
	"github.com/projectmanager/backend/internal/middleware"
	"github.com/projectmanager/backend/internal/services"
	"github.com/projectmanager/backend/internal/storage"
	"github.com/projectmanager/backend/pkg/auth"
	"github.com/projectmanager/backend/pkg/logger"
)

func main() {
	logger.Init()

	cfg := config.Load()
	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	storageClient, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("minio initialization failed: %v", err)
	}
	if err := storageClient.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("failed ensuring minio bucket: %v", err)
	}

	relations := services.NewRelationService(db)

	usersHandler := handlers.NewUsersHandler(db, tokens)
	companiesHandler := handlers.NewCompaniesHandler(db)
	projectsHandler := handlers.NewProjectsHandler(db)
	documentsHandler := handlers.NewDocumentsHandler(db, storageClient, relations, cfg.Upload.MaxFileSize)
	commentsHandler := handlers.NewCommentsHandler(db, relations)

	authMiddleware := middleware.NewAuthMiddleware(db, tokens)

	app := fiber.New(fiber.Config{BodyLimit: int(cfg.Upload.MaxFileSize) + 1024*1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())
	app.Use(authMiddleware.Authenticate)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	registerRoutes(app, usersHandler, companiesHandler, projectsHandler, documentsHandler, commentsHandler)

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}

// registerRoutes wires the REST surface. Every route passes through the
// token middleware first; the role guards below decide what an anonymous
// caller may still reach. Static segments are registered before their
// parameterized siblings so "/projects/titles" is not swallowed by
// "/projects/:id".
func registerRoutes(
	app *fiber.App,
	users *handlers.UsersHandler,
	companies *handlers.CompaniesHandler,
	projects *handlers.ProjectsHandler,
	documents *handlers.DocumentsHandler,
	comments *handlers.CommentsHandler,
) {
	api := app.Group("/api")

	userRole := middleware.RequireRoles("user")
	adminRole := middleware.RequireRoles("admin")

	userRoutes := api.Group("/users")
	userRoutes.Post("/", users.Register)
	userRoutes.Post("/login", users.Login)
	userRoutes.Get("/", userRole, users.List)
	userRoutes.Get("/:id", userRole, users.Get)
	userRoutes.Put("/:id", userRole, users.Update)
	userRoutes.Delete("/:id", adminRole, users.Delete)

	companyRoutes := api.Group("/companies")
	companyRoutes.Get("/", adminRole, companies.List)
	companyRoutes.Get("/:id", userRole, companies.Get)
	companyRoutes.Post("/", adminRole, companies.Create)
	companyRoutes.Put("/:id", adminRole, companies.Update)
	companyRoutes.Delete("/:id", adminRole, companies.Delete)

	projectRoutes := api.Group("/projects")
	projectRoutes.Get("/", userRole, projects.List)
	projectRoutes.Get("/titles", userRole, projects.Titles)
	projectRoutes.Get("/user/:id", userRole, projects.ByUser)
	projectRoutes.Get("/company/:id", userRole, projects.ByCompany)
	projectRoutes.Get("/:id", userRole, projects.Get)
	projectRoutes.Post("/", adminRole, projects.Create)
	projectRoutes.Put("/:id", adminRole, projects.Update)
	projectRoutes.Delete("/:id", adminRole, projects.Delete)

	documentRoutes := api.Group("/documents")
	documentRoutes.Get("/", userRole, documents.List)
	documentRoutes.Get("/project/:id", userRole, documents.ByProject)
	documentRoutes.Get("/file/:id", userRole, documents.File)
	documentRoutes.Get("/:id", userRole, documents.Get)
	documentRoutes.Post("/", adminRole, documents.Create)
	documentRoutes.Put("/:id", userRole, documents.Update)
	documentRoutes.Delete("/:id", userRole, documents.Delete)

	commentRoutes := api.Group("/comments")
	commentRoutes.Get("/", comments.List)
	commentRoutes.Get("/project/:id", comments.ByProject)
	commentRoutes.Get("/document/:id", comments.ByDocument)
	commentRoutes.Get("/:id", comments.Get)
	commentRoutes.Post("/", userRole, comments.Create)
	commentRoutes.Put("/:id", userRole, comments.Update)
	commentRoutes.Delete("/:id", userRole, comments.Delete)
}
