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
	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/api/handlers"
	"github.com/maheshrc27/postflow/internal/api/middleware"
	"github.com/maheshrc27/postflow/internal/credentials"
	"github.com/maheshrc27/postflow/internal/engine"
	job "github.com/maheshrc27/postflow/internal/jobs"
	"github.com/maheshrc27/postflow/internal/oauth"
	"github.com/maheshrc27/postflow/internal/platforms"
	"github.com/maheshrc27/postflow/internal/queue"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/service"
	"github.com/maheshrc27/postflow/internal/uploader"
	"github.com/robfig/cron"
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
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-API-Key",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	userRepo := repository.NewUserRepository(db)
	publishRepo := repository.NewPublishRequestRepository(db)
	attemptRepo := repository.NewPublishAttemptRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	apiKeyRepo := repository.NewApiKeyRepository(db)
	pendingAuthRepo := repository.NewPendingAuthRepository(db)
	credentialRepo := repository.NewCredentialRepository(db)

	registry := platforms.NewRegistry()
	connector := oauth.NewConnector(*cfg, registry, pendingAuthRepo)
	store := credentials.NewStore(credentialRepo, socialAccountRepo, connector, []byte(cfg.SecretKey), cfg.Engine.RefreshMargin)

	engineCfg := engine.Config{
		Workers:        cfg.Engine.Workers,
		MaxAttempts:    cfg.Engine.MaxAttempts,
		BaseBackoff:    cfg.Engine.BaseBackoff,
		MaxBackoff:     cfg.Engine.MaxBackoff,
		JitterFraction: 0.2,
		GraceWindow:    cfg.Engine.GraceWindow,
		CallTimeout:    cfg.Engine.CallTimeout,
	}

	uploaders := uploader.NewRegistry()
	uploaders.Register(platforms.Tiktok, uploader.NewTiktokUploader(engineCfg.CallTimeout))
	uploaders.Register(platforms.Instagram, uploader.NewInstagramUploader(engineCfg.CallTimeout))
	uploaders.Register(platforms.Youtube, uploader.NewYoutubeUploader(engineCfg.CallTimeout))

	authService := service.NewAuthService(*cfg, userRepo)
	userService := service.NewUserService(userRepo)
	r2Service := service.NewR2Service(*cfg)
	mediaService := service.NewMediaService(mediaAssetRepo, r2Service)
	platformService := service.NewPlatformService(registry, connector, store, socialAccountRepo)
	apiKeyService := service.NewApiKeyService(apiKeyRepo)

	dispatcher := queue.NewAsynqDispatcher(client)
	scheduler := engine.NewScheduler(engineCfg, publishRepo, dispatcher)
	worker := engine.NewWorker(engineCfg, store, socialAccountRepo, publishRepo, attemptRepo, mediaService, uploaders, scheduler)
	publishService := service.NewPublishService(engineCfg, registry, scheduler, publishRepo, attemptRepo, socialAccountRepo, mediaAssetRepo)

	rootCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()

	if err := scheduler.Recover(rootCtx); err != nil {
		log.Fatalf("Failed to recover scheduled requests: %v", err)
	}
	go scheduler.Run(rootCtx)

	authMiddleware := middleware.NewAuthMiddleware(*cfg, apiKeyService)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "queued": scheduler.QueueLen()})
	})

	auth := handlers.NewAuthHandler(*cfg, authService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)

	platform := handlers.NewPlatformHandler(platformService, *cfg)
	app.Get("/auth/:platform/callback", platform.CallbackHandler)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	api.Get("/auth/:platform", platform.AddSocialAccount)
	api.Get("/platforms", platform.ListPlatforms)

	user := handlers.NewUserHandler(userService)
	api.Get("/user/info", user.GetUserInfo)

	apiKeys := handlers.NewApiKeyHandler(apiKeyService)
	api.Post("/api_key/new", apiKeys.CreateApiKey)
	api.Get("/api_key/list", apiKeys.ListKeys)
	api.Post("/api_key/remove", apiKeys.RemoveAPIKey)

	media := handlers.NewMediaHandler(mediaService)
	api.Post("/media/upload", media.UploadMedia)
	api.Get("/media", media.ListMedia)

	publish := handlers.NewPublishHandler(publishService)
	api.Post("/publish", publish.CreatePublish)
	api.Get("/publish", publish.ListPublish)
	api.Get("/publish/status", publish.AccountStatus)
	api.Get("/publish/:id", publish.GetStatus)
	api.Post("/publish/:id/cancel", publish.CancelPublish)

	// social accounts api routes
	api.Get("/accounts", platform.ListSocialAccounts)
	api.Post("/accounts/remove", platform.DeleteSocialAccount)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(credentialRepo, store, 30*time.Minute)
	cleanupJob := job.NewPendingAuthCleanupJob(pendingAuthRepo)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	c.AddFunc("@every 00h10m00s", cleanupJob.Cleanup)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: cfg.Engine.Workers,
		})

		mux := asynq.NewServeMux()
		queue.NewHandler(worker).Register(mux)

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

	gracefulShutdown(app, db, stopScheduler)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB, stopScheduler context.CancelFunc) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	stopScheduler()

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
