// Package wiring assembles the console's services from configuration.
// Both the HTTP server and the upload CLI build on it.
package wiring

import (
	"context"
	"errors"
	"fmt"

	"github.com/timmy/nlsql-console/internal/config"
	"github.com/timmy/nlsql-console/internal/domain"
	"github.com/timmy/nlsql-console/internal/logger"
	"github.com/timmy/nlsql-console/internal/repository"
	"github.com/timmy/nlsql-console/internal/service"
	"github.com/timmy/nlsql-console/internal/storage"
)

// Components holds every service built from a Config.
type Components struct {
	Storage      storage.ObjectStorage
	Catalog      *repository.StagedFileRepository // nil when the database is disabled
	Backend      *service.BackendClient
	Staging      *service.StagingService
	Orchestrator *service.UploadOrchestrator
	VectorDB     *service.VectorDBService

	closers []func() error
}

// Build connects storage, the staged-file catalog and the optional vector store,
// then creates the backend client, staging service and orchestrator.
// Parameters:
//   - ctx: used for startup checks such as ensuring the bucket exists.
//   - cfg: loaded configuration.
//   - log: application logger.
//
// Returns:
//   - *Components: wired services; call Close when done.
//   - error: non-nil if any dependency cannot be initialized.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Components, error) {
	c := &Components{}

	objectStorage, err := storage.NewStorage(StorageConfig(&cfg.Storage))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := objectStorage.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure storage bucket: %w", err)
	}
	c.Storage = objectStorage

	var catalog service.StagedFileCatalog
	if cfg.Database.Enabled {
		db, err := repository.InitDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			c.closers = append(c.closers, sqlDB.Close)
		}
		c.Catalog = repository.NewStagedFileRepository(db)
		catalog = c.Catalog
	}

	var vectorReader service.VectorStatusReader
	if cfg.Qdrant.Enabled {
		qdrantRepo, err := repository.NewQdrantRepository(&repository.QdrantConnectionConfig{
			Host:       cfg.Qdrant.Host,
			Port:       cfg.Qdrant.Port,
			Collection: cfg.Qdrant.Collection,
			APIKey:     cfg.Qdrant.APIKey,
			UseTLS:     cfg.Qdrant.UseTLS,
		})
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize Qdrant repository: %w", err)
		}
		c.closers = append(c.closers, qdrantRepo.Close)
		vectorReader = qdrantRepo
	}
	c.VectorDB = service.NewVectorDBService(vectorReader, 0)

	c.Backend = service.NewBackendClient(&service.BackendConfig{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
	})
	c.Staging = service.NewStagingService(objectStorage, catalog, log, &service.StagingConfig{
		MaxFileSize: cfg.Upload.MaxFileSize,
	})

	c.Orchestrator, err = service.NewUploadOrchestrator(c.Backend, c.Staging, log, UploadConfig(&cfg.Upload))
	if err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}

// Close releases database and gRPC connections.
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// StorageConfig converts the storage section into a storage.Config.
func StorageConfig(cfg *config.StorageConfig) *storage.Config {
	return &storage.Config{
		Type:      storage.StorageType(cfg.Type),
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		UseSSL:    cfg.UseSSL,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		Prefix:    cfg.Prefix,
		LocalPath: cfg.LocalPath,
	}
}

// UploadConfig converts the upload section into orchestrator settings.
// An empty progress list leaves the built-in table in place.
func UploadConfig(cfg *config.UploadConfig) *service.UploadConfig {
	out := &service.UploadConfig{
		Slots: cfg.InputSlots(),
		Pacing: service.PacingConfig{
			Integration:      cfg.Pacing.Integration,
			Embedding:        cfg.Pacing.Embedding,
			VectorStoreWrite: cfg.Pacing.VectorStoreWrite,
		},
	}
	for _, p := range cfg.Progress {
		out.Progress = append(out.Progress, service.StageWeight{
			Stage: domain.StageID(p.Stage),
			Entry: p.Entry,
			Exit:  p.Exit,
		})
	}
	return out
}
