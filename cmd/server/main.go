package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron"

	config "github.com/crosscast/crosscast/configs"
	"github.com/crosscast/crosscast/internal/api/handlers"
	"github.com/crosscast/crosscast/internal/api/middleware"
	"github.com/crosscast/crosscast/internal/guard"
	job "github.com/crosscast/crosscast/internal/jobs"
	"github.com/crosscast/crosscast/internal/platforms"
	"github.com/crosscast/crosscast/internal/queue"
	"github.com/crosscast/crosscast/internal/repository"
	"github.com/crosscast/crosscast/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	workspaceRepo := repository.NewWorkspaceRepository(db)
	postRepo := repository.NewPostRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	usedCodeRepo := repository.NewUsedCodeRepository(db)
	publicationRepo := repository.NewPublicationRepository(db)
	apiKeyRepository := repository.NewApiKeyRepository(db)

	registry := platforms.NewRegistry(
		platforms.NewFacebookAdapter(cfg.FacebookClientID, cfg.FacebookClientSecret, cfg.FacebookRedirectURI),
		platforms.NewTwitterAdapter(cfg.TwitterClientID, cfg.TwitterClientSecret, cfg.TwitterRedirectURI),
		platforms.NewLinkedinAdapter(cfg.LinkedinClientID, cfg.LinkedinClientSecret, cfg.LinkedinRedirectURI),
		platforms.NewInstagramAdapter(cfg.InstagramClientID, cfg.InstagramClientSecret, cfg.InstagramRedirectURI),
		platforms.NewYoutubeAdapter(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI),
	)

	codeGuard := guard.NewCodeGuard(usedCodeRepo, guard.AllowOnGuardError{})

	authService := service.NewAuthService(*cfg, workspaceRepo)
	mediaService := service.NewMediaService(*cfg)
	tokenService := service.NewTokenService(*cfg, registry, socialAccountRepo)
	accountService := service.NewAccountService(*cfg, registry, codeGuard, tokenService, socialAccountRepo)
	publisher := service.NewPublisher(postRepo, socialAccountRepo, publicationRepo, tokenService, registry)
	postService := service.NewPostService(postRepo, registry, mediaService)
	apiKeyService := service.NewApiKeyService(apiKeyRepository)

	authMiddleware := middleware.NewAuthMiddleware(*cfg, apiKeyService)

	auth := handlers.NewAuthHandler(*cfg, authService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)

	platform := handlers.NewPlatformHandler(*cfg, accountService)
	app.Get("/connect/:platform/callback", platform.CallbackHandler)

	scheduler := handlers.NewSchedulerHandler(publisher)
	app.Post("/tasks/publish-due", scheduler.PublishDue)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	api.Get("/connect/:platform", platform.ConnectAccount)

	apiKeys := handlers.NewApiKeyHandler(apiKeyService)
	api.Post("/api_key/new", apiKeys.CreateApiKey)
	api.Get("/api_key/list", apiKeys.ListKeys)
	api.Post("/api_key/remove", apiKeys.RemoveAPIKey)

	post := handlers.NewPostHandler(postService, publisher, client)
	api.Post("/posts/create", post.CreatePost)
	api.Post("/posts/publish", post.PublishNow)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/remove", post.RemovePost)

	api.Get("/accounts", platform.ListSocialAccounts)
	api.Post("/accounts/remove", platform.DeleteSocialAccount)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(socialAccountRepo, tokenService)

	// queue
	queueW := queue.NewQueue(postRepo, publisher)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	c.AddFunc("@every 00h01m00s", func() {
		processed, err := publisher.ProcessDue(context.Background(), time.Now())
		if err != nil {
			log.Printf("Error processing due posts: %v", err)
			return
		}
		if processed > 0 {
			log.Printf("Processed %d due posts", processed)
		}
	})
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishPost, queueW.HandlePublishPostTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
