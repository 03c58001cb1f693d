package main

import (
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

	config "github.com/pulseboard/publisher/configs"
	"github.com/pulseboard/publisher/internal/api/handlers"
	"github.com/pulseboard/publisher/internal/api/middleware"
	job "github.com/pulseboard/publisher/internal/jobs"
	"github.com/pulseboard/publisher/internal/publisher"
	"github.com/pulseboard/publisher/internal/queue"
	"github.com/pulseboard/publisher/internal/repository"
	"github.com/pulseboard/publisher/internal/service"
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

	postRepo := repository.NewScheduledPostRepository(db)
	accountRepo := repository.NewConnectedAccountRepository(db)

	registry := publisher.NewRegistry(
		publisher.NewInstagramPublisher(),
		publisher.NewTiktokPublisher(),
		publisher.NewYoutubePublisher(),
	)

	mediaService := service.NewMediaService(*cfg)
	recurrenceService := service.NewRecurrenceService(postRepo)
	dispatchService := service.NewDispatchService(*cfg, postRepo, accountRepo, registry, recurrenceService)
	postService := service.NewPostService(db, postRepo, accountRepo, mediaService)
	accountService := service.NewAccountService(accountRepo)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	post := handlers.NewPostHandler(postService, recurrenceService, client)
	api.Post("/posts/create", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/edit", post.EditPost)
	api.Post("/posts/retry", post.RetryPost)
	api.Post("/posts/reschedule", post.ReschedulePost)
	api.Post("/posts/remove", post.RemovePost)

	publish := handlers.NewPublishHandler(dispatchService)
	api.Post("/publish/run/:platform", publish.RunDue)
	api.Post("/publish/post", publish.PublishNow)

	account := handlers.NewAccountHandler(accountService)
	api.Get("/accounts", account.ListAccounts)

	// cron jobs
	sweepJob := job.NewDispatchSweepJob(dispatchService)

	c := cron.New()
	c.AddFunc(cfg.DispatchSpec, sweepJob.SweepDuePosts)
	c.Start()

	//queue
	queueW := queue.NewQueue(dispatchService)

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
