package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"sharing-service/internal/config"
	"sharing-service/internal/database/mongo"
	"sharing-service/internal/database/redis"
	"sharing-service/internal/events"
	"sharing-service/internal/handlers"
	"sharing-service/internal/middleware"
	"sharing-service/internal/repository"
	"sharing-service/internal/service"
	"sharing-service/pkg/discovery"

	"github.com/gofiber/fiber/v3"
)

func setupLogging() (*os.File, error) {
	logDir := filepath.Join("/evolvia", "log", "sharing_service")
	err := os.MkdirAll(logDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	currentTime := time.Now()
	logFileName := fmt.Sprintf("log_%s.log", currentTime.Format("2006-01-02"))
	logFile := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	log.SetOutput(file)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	return file, nil
}

func main() {
	logFile, err := setupLogging()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	cfg := config.ServiceConfig

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	app.Get("/health", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString("Sharing Service is healthy")
	})

	// Initialize repositories
	repos := repository.NewRepositories(mongo.Mongo_Database, redis.Redis_Client)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := repos.ShareRepository.InitializeIndexes(ctx); err != nil {
		cancel()
		log.Fatalf("Failed to initialize share indexes: %v", err)
	}
	cancel()

	// Initialize event publisher
	eventPublisher, err := events.NewEventPublisher(cfg.RabbitMQURI)
	if err != nil {
		log.Printf("Warning: Failed to initialize event publisher: %v", err)
		eventPublisher, _ = events.NewEventPublisher("")
	}

	// Initialize services
	accessService := service.NewAccessService(repos.ShareRepository, repos.ResourceRepository)
	shareService := service.NewShareService(repos.ShareRepository, repos.ResourceRepository, repos.ProfileRepository, eventPublisher)

	jwtService := service.NewJWTService(cfg.JWTSecret)
	sessionService := service.NewSessionService(jwtService, repos.RedisRepository)

	// Initialize event consumer for resource deletions
	eventConsumer, err := events.NewEventConsumer(cfg.RabbitMQURI, repos.ShareRepository)
	if err != nil {
		log.Printf("Warning: Failed to initialize event consumer: %v", err)
	} else {
		if err := eventConsumer.Start(); err != nil {
			log.Printf("Warning: Failed to start event consumer: %v", err)
			eventConsumer.Close()
		} else {
			log.Println("Successfully started event consumer for resource deletions")
			defer eventConsumer.Close()
		}
	}

	// Actor resolution guards everything under /protected
	app.Use("/protected", middleware.RequireActor(sessionService))

	// Initialize and register handlers
	shareHandler := handlers.NewShareHandler(shareService, accessService)
	shareHandler.RegisterRoutes(app)

	resourceHandler := handlers.NewResourceHandler(accessService)
	resourceHandler.RegisterRoutes(app)

	if err := discovery.ServiceDiscovery.Register(); err != nil {
		log.Printf("Warning: Failed to register with Consul: %v", err)
	}

	shutdownChan := make(chan os.Signal, 1)
	doneChan := make(chan bool, 1)

	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Error starting server: %v", err)
		}
		doneChan <- true
	}()

	<-shutdownChan
	log.Println("Shutting down server...")

	if err := discovery.ServiceDiscovery.Deregister(); err != nil {
		log.Printf("Error deregistering from Consul: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	if eventPublisher != nil {
		if err := eventPublisher.Close(); err != nil {
			log.Printf("Error closing event publisher: %v", err)
		}
	}

	mongo.DisconnectMongo()

	<-doneChan
	log.Println("Server exited, goodbye!")
}
