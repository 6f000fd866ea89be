package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/nlsql-console/internal/api"
	"github.com/timmy/nlsql-console/internal/api/middleware"
	"github.com/timmy/nlsql-console/internal/config"
	"github.com/timmy/nlsql-console/internal/logger"
	"github.com/timmy/nlsql-console/internal/wiring"
)

func main() {
	// Initialize logger from LOG_* environment variables
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	ctx := context.Background()
	components, err := wiring.Build(ctx, cfg, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize services")
	}
	defer components.Close()

	appLogger.WithFields(logger.Fields{
		"backend":      cfg.Backend.BaseURL,
		"storage":      cfg.Storage.Type,
		"slots":        len(components.Orchestrator.Slots()),
		"catalog":      components.Catalog != nil,
		"qdrant":       cfg.Qdrant.Enabled,
		"upload_limit": cfg.Upload.MaxFileSize,
	}).Info("Services initialized")

	router := api.SetupRouter(&api.Services{
		Orchestrator: components.Orchestrator,
		Staging:      components.Staging,
		Databases:    components.Backend,
		VectorDB:     components.VectorDB,
	}, appLogger, cfg.Server.Mode, middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Event streams stay open until the client leaves, so shutdown is bounded.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
