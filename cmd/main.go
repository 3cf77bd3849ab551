package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	consolehttp "cowork-console/internal/console/adapter/http"
	"cowork-console/internal/console/adapter/persistence"
	"cowork-console/internal/console/adapter/persistence/mongodb"
	"cowork-console/internal/console/adapter/storage/s3"
	"cowork-console/internal/console/config"
	"cowork-console/internal/console/domain/repository"
	"cowork-console/internal/console/usecase"
	"cowork-console/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.NewLogger()
	appLogger.Info("Configuration loaded")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			appLogger.Errorf("Failed to disconnect MongoDB: %v", err)
		}
	}()
	if err := mongoClient.Ping(ctx, nil); err != nil {
		log.Fatalf("Failed to ping MongoDB: %v", err)
	}
	appLogger.Info("MongoDB connection established")

	var journal repository.EventJournal
	if cfg.Redis.Enabled() {
		redisClient := config.NewRedisClient(cfg.Redis)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to ping Redis: %v", err)
		}
		defer redisClient.Close()
		journal = persistence.NewRedisEventJournal(redisClient, cfg.Redis.StreamMaxLength, appLogger)
		appLogger.Info("Redis event journal enabled")
	} else {
		appLogger.Warn("REDIS_HOST not set, change events will not be journaled")
	}

	blobStore, err := s3.New(ctx, s3.Config{
		Region:        cfg.Storage.Region,
		Bucket:        cfg.Storage.Bucket,
		Endpoint:      cfg.Storage.Endpoint,
		PathStyle:     cfg.Storage.PathStyle,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
	}, appLogger)
	if err != nil {
		log.Fatalf("Failed to initialize blob store: %v", err)
	}

	schemas := usecase.DefaultSchemas()
	itemRepo := mongodb.NewItemRepository(mongoClient.Database(cfg.MongoDatabase), appLogger)
	syncUC := usecase.NewSyncUsecase(itemRepo, journal, schemas, appLogger)
	uploadUC := usecase.NewUploadUsecase(blobStore, appLogger)
	draftManager := usecase.NewDraftManager(schemas, uploadUC, syncUC, appLogger)

	auth := consolehttp.NewAuthMiddleware(cfg.AdminJWTSecret, appLogger)
	router := consolehttp.NewRouter(
		auth,
		consolehttp.NewItemHandler(syncUC, appLogger),
		consolehttp.NewUploadHandler(uploadUC, appLogger),
		consolehttp.NewDraftHandler(draftManager, appLogger),
		consolehttp.NewWebSocketHandler(syncUC, cfg.Realtime.ClientSendChannelBuffer, appLogger),
		appLogger,
	)

	app := fiber.New(fiber.Config{
		AppName:      "cowork-console",
		ErrorHandler: fiberErrorHandler(appLogger),
	})
	router.Register(app)

	go func() {
		appLogger.Infof("Listening on %s", cfg.Server.Addr())
		if err := app.Listen(cfg.Server.Addr()); err != nil {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLogger.Errorf("Graceful shutdown failed: %v", err)
	}
}

func fiberErrorHandler(log logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}
		log.WithContext(c.UserContext()).Errorf("unhandled request error: %v", err)
		return c.Status(code).JSON(fiber.Map{"error": "INTERNAL_ERROR", "message": err.Error()})
	}
}
