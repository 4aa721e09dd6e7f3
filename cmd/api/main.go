package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"alfredoptarigan/cv-analysis-tool/internal/config"
	"alfredoptarigan/cv-analysis-tool/internal/handlers"
	"alfredoptarigan/cv-analysis-tool/internal/logger"
	"alfredoptarigan/cv-analysis-tool/internal/repositories"
	"alfredoptarigan/cv-analysis-tool/internal/services"
)

func main() {
	cfg := config.Load()

	zlog, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		log.Fatalf("❌ Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	zlog.Info("✅ Config loaded successfully",
		zap.String("env", cfg.Server.Env),
		zap.String("api_base_url", cfg.AnalysisAPI.BaseURL),
		zap.String("blob_provider", cfg.Blob.Provider),
		zap.String("session_store", cfg.Session.Store),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessionRepo, sweeper, err := initSessionStore(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("❌ Failed to initialize session store", zap.Error(err))
	}
	zlog.Info("✅ Session store initialized", zap.String("store", cfg.Session.Store))

	// Initialize services
	extractor := services.NewTextExtractor()
	analysisClient := services.NewAnalysisClient(cfg.AnalysisAPI, &http.Client{}, zlog.Named("analysis"))
	batchRunner := services.NewBatchRunner(
		extractor,
		analysisClient,
		cfg.Batch.Delay,
		cfg.Batch.Concurrency,
		zlog.Named("batch"),
	)
	workflow := services.NewWorkflowService(sessionRepo, batchRunner, analysisClient, zlog.Named("workflow"))
	jobCriteria := services.NewJobCriteriaService(
		extractor,
		services.NewBlobStoreFactory(cfg.Blob),
		zlog.Named("job_criteria"),
	)
	zlog.Info("✅ Services initialized successfully")

	if sweeper != nil {
		sweeper.Start(ctx)
	}

	// Initialize Handlers
	h := handlers.Handlers{
		Analysis:    handlers.NewAnalysisHandler(workflow, cfg.Storage.MaxFileSize),
		Results:     handlers.NewResultHandler(workflow),
		JobCriteria: handlers.NewJobCriteriaHandler(jobCriteria, cfg.Storage.MaxFileSize),
	}

	app := fiber.New(fiber.Config{
		AppName:      "CV Analysis Tool API",
		ReadTimeout:  30 * time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize) * 10,
		ErrorHandler: handlers.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + handlers.SessionHeader,
	}))

	handlers.SetupRoutes(app, h, cfg.Session.CookieName, cfg.Session.TTL)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		zlog.Info("🛑 Shutting down server...")
		if sweeper != nil {
			sweeper.Stop()
		}
		cancel()
		if err := app.Shutdown(); err != nil {
			zlog.Error("❌ Server forced to shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	zlog.Info("🚀 Server starting", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		zlog.Fatal("❌ Failed to start server", zap.Error(err))
	}
}

// initSessionStore returns the configured store and, for stores without
// native expiry, a sweeper to purge stale sessions.
func initSessionStore(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (repositories.SessionRepository, services.SessionSweeper, error) {
	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		client, err := config.InitRedis(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return repositories.NewRedisSessionRepository(client, cfg.Session.TTL), nil, nil

	case config.SessionStorePostgres:
		db, err := config.InitDatabase(cfg)
		if err != nil {
			return nil, nil, err
		}
		repo := repositories.NewGormSessionRepository(db, cfg.Session.TTL)
		return repo, services.NewSessionSweeper(repo, 5*time.Minute, zlog.Named("sweeper")), nil

	case config.SessionStoreMemory, "":
		repo := repositories.NewMemorySessionRepository(cfg.Session.TTL)
		return repo, services.NewSessionSweeper(repo, time.Minute, zlog.Named("sweeper")), nil

	default:
		return nil, nil, fmt.Errorf("unknown session store: %s", cfg.Session.Store)
	}
}
