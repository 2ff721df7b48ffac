package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/shotflow/api/internal/client"
	"github.com/shotflow/api/internal/config"
	"github.com/shotflow/api/internal/continuity"
	"github.com/shotflow/api/internal/handler"
	"github.com/shotflow/api/internal/media"
	"github.com/shotflow/api/internal/middleware"
	"github.com/shotflow/api/internal/service"
	"github.com/shotflow/api/internal/storage"
	"github.com/shotflow/api/internal/store"
	ws "github.com/shotflow/api/internal/websocket"
	"github.com/shotflow/api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	// Postgres
	pool, err := store.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		log.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	pg := store.NewPostgres(pool)
	if err := pg.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	validate := validator.New()

	hub := ws.NewHub()
	go hub.Run()

	// Artifact storage
	storageClient, err := storage.New(&cfg.Storage, cfg.Media.Root)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// External clients
	breakdownClient := client.NewBreakdownClient(&cfg.Breakdown)
	embeddingClient := client.NewEmbeddingClient(&cfg.Embedding)

	var videoBackend continuity.VideoGenerator = client.UnconfiguredVideoBackend{}
	veoConfigured := false
	if cfg.Veo.ProjectID != "" {
		veoClient, err := client.NewVeoClient(&cfg.Veo)
		if err != nil {
			log.Fatalf("Failed to initialize Veo client: %v", err)
		}
		videoBackend = veoClient
		veoConfigured = true
	} else {
		log.Println("Info: Veo not configured, render jobs will fail until it is")
	}

	// Continuity engine
	states := store.NewCachedContinuityStore(pg, redisClient)
	engine := continuity.NewEngine(
		states,
		pg,
		videoBackend,
		media.NewFFmpegExtractor(),
		service.NewEmbeddingQueue(asynqClient),
		cfg.Media.Root,
	)

	// Services
	projectService := service.NewProjectService(pg)
	scriptService := service.NewScriptService(pg, breakdownClient)
	renderService := service.NewRenderService(pg, asynqClient)
	characterService := service.NewCharacterService(pg, asynqClient, cfg.Media.Root)
	continuityService := service.NewContinuityService(states, engine)

	// Handlers
	projectHandler := handler.NewProjectHandler(projectService, validate)
	scriptHandler := handler.NewScriptHandler(scriptService, validate)
	renderHandler := handler.NewRenderHandler(renderService, validate)
	characterHandler := handler.NewCharacterHandler(characterService, validate)
	continuityHandler := handler.NewContinuityHandler(continuityService, validate)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, cfg.JWT.Expiration)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    50 * 1024 * 1024, // anchor image uploads
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"veo":       veoConfigured,
				"breakdown": breakdownClient.IsConfigured(),
				"redis":     redisClient.Ping(c.Context()).Err() == nil,
			},
		})
	})

	// Generated media (local storage driver)
	if cfg.Storage.Driver == "" || cfg.Storage.Driver == "local" {
		app.Static("/media", cfg.Media.Root)
	}

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	api.Post("/projects", projectHandler.Create)
	api.Get("/projects/:projectId", projectHandler.Get)
	api.Get("/projects/:projectId/shots", projectHandler.ListShots)
	api.Get("/projects/:projectId/jobs", renderHandler.ListByProject)

	api.Post("/scripts/analyze", rateLimiter.ScriptLimit(cfg.RateLimit.ScriptsPerHour), scriptHandler.Analyze)

	render := api.Group("/render", rateLimiter.RenderLimit(cfg.RateLimit.RenderPerHour))
	render.Post("/shot", renderHandler.StartShot)
	render.Post("/project", renderHandler.StartProject)
	api.Get("/render/jobs/:jobId", renderHandler.Status)
	api.Get("/shots/:shotId/jobs", renderHandler.ListByShot)

	api.Post("/characters", characterHandler.Register)
	api.Get("/characters/:characterId", characterHandler.Get)
	api.Get("/projects/:projectId/characters", characterHandler.List)

	api.Get("/projects/:projectId/continuity", continuityHandler.GetState)
	api.Put("/projects/:projectId/continuity/facts", continuityHandler.SetFact)
	api.Put("/projects/:projectId/continuity/characters", continuityHandler.SetActiveCharacters)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("jobId"))
	}))

	// Asynq worker server
	go startWorkerServer(cfg, pg, engine, renderService, storageClient, embeddingClient, redisClient, hub)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(
	cfg *config.Config,
	pg *store.Postgres,
	engine *continuity.Engine,
	renderService *service.RenderService,
	storageClient storage.Client,
	embeddingClient *client.EmbeddingClient,
	redisClient *redis.Client,
	hub *ws.Hub,
) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"render":    6,
				"embedding": 4,
			},
		},
	)

	locker := store.NewProjectLocker(redisClient, cfg.Veo.PollTimeout+5*time.Minute)
	renderWorker := worker.NewRenderWorker(renderService, pg, engine, storageClient, locker, hub)
	embeddingWorker := worker.NewEmbeddingWorker(pg, embeddingClient)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeRenderShot, renderWorker.ProcessTask)
	mux.HandleFunc(service.TaskTypeEmbedding, embeddingWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
