package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PrepBot/backend/go/internal/config"
	"PrepBot/backend/go/internal/rag_service/api"
	"PrepBot/backend/go/internal/rag_service/service"
	pkghttp "PrepBot/backend/go/pkg/http"
	"PrepBot/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const defaultConfigPath = "config/config.yaml"

func main() {
	// 1. Load .env and configuration
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to load .env file: %v", err)
	}
	configPath := os.Getenv("PREPBOT_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize Logger
	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	appLogger := logger.New("chat_service")
	appLogger.WithFields(map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
		"sources":     len(cfg.Knowledge.Sources),
	}).Info("Starting chat service...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Initialize Dependencies
	deps, cleanup, err := service.NewDependencies(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal(fmt.Sprintf("Failed to initialize dependencies: %v", err))
	}
	defer cleanup()

	chatService, err := service.NewServer(cfg, deps, appLogger)
	if err != nil {
		appLogger.Fatal(fmt.Sprintf("Failed to create chat service: %v", err))
	}

	// 4. Create the HTTP server
	gin.SetMode(gin.ReleaseMode)
	router := api.SetupRouter(api.NewHandler(chatService))
	srv := pkghttp.NewServer(cfg.Server, router, appLogger)

	// 5. Build the index, then serve. With serveDuringBuild the listener is
	// up first and /chat answers 503 until the index is published.
	errCh := make(chan error, 2)
	serve := func() {
		lis, err := srv.Listen()
		if err != nil {
			errCh <- err
			return
		}
		go func() { errCh <- srv.Serve(lis) }()
	}

	if cfg.Server.ServeDuringBuild {
		serve()
		go func() {
			if err := chatService.BuildIndex(ctx); err != nil {
				errCh <- fmt.Errorf("failed to build index: %w", err)
			}
		}()
	} else {
		if err := chatService.BuildIndex(ctx); err != nil {
			cleanup()
			appLogger.Fatal(fmt.Sprintf("Failed to build index: %v", err))
		}
		serve()
	}

	// 6. Graceful Shutdown
	exitCode := 0
	select {
	case <-ctx.Done():
		appLogger.Info("Shutting down server...")
	case err := <-errCh:
		if err != nil {
			appLogger.WithError(err).Error("Chat service stopped")
			exitCode = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Duration(cfg.Server.ShutdownTimeout, 10*time.Second))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
		exitCode = 1
	}
	appLogger.Info("Server gracefully stopped")

	if exitCode != 0 {
		cancel()
		cleanup()
		os.Exit(exitCode)
	}
}
