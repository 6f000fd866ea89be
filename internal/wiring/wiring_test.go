package wiring

import (
	"context"
	"testing"
	"time"

	"github.com/timmy/nlsql-console/internal/config"
	"github.com/timmy/nlsql-console/internal/domain"
	"github.com/timmy/nlsql-console/internal/storage"
)

func TestUploadConfig(t *testing.T) {
	cfg := &config.UploadConfig{
		Profile: string(domain.SlotProfileThreeFile),
		Pacing:  config.PacingConfig{Integration: time.Second, Embedding: 2 * time.Second},
		Progress: []config.ProgressCheckpoint{
			{Stage: "validation", Entry: 5, Exit: 10},
			{Stage: "schema-lookup", Entry: 20, Exit: 40},
		},
	}

	out := UploadConfig(cfg)
	if len(out.Slots) != 3 || out.Slots[0].ID != "table_info" {
		t.Errorf("unexpected slots %+v", out.Slots)
	}
	if out.Pacing.Integration != time.Second || out.Pacing.Embedding != 2*time.Second || out.Pacing.VectorStoreWrite != 0 {
		t.Errorf("unexpected pacing %+v", out.Pacing)
	}
	if len(out.Progress) != 2 || out.Progress[1].Stage != domain.StageSchemaLookup || out.Progress[1].Exit != 40 {
		t.Errorf("unexpected progress %+v", out.Progress)
	}

	if got := UploadConfig(&config.UploadConfig{}).Progress; got != nil {
		t.Errorf("expected no progress override, got %+v", got)
	}
}

func TestStorageConfig(t *testing.T) {
	out := StorageConfig(&config.StorageConfig{Type: "minio", Endpoint: "localhost:9000", Bucket: "b", Prefix: "p"})
	if out.Type != storage.StorageTypeMinIO || out.Endpoint != "localhost:9000" || out.Bucket != "b" || out.Prefix != "p" {
		t.Errorf("unexpected storage config %+v", out)
	}
}

func TestBuild_LocalStack(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Backend: config.BackendConfig{BaseURL: "http://localhost:8000", Timeout: time.Second},
		Upload:  config.UploadConfig{Profile: string(domain.SlotProfileTwoFile), MaxFileSize: 1024},
		Storage: config.StorageConfig{Type: "local", LocalPath: dir + "/uploads"},
	}

	c, err := Build(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer c.Close()

	if c.Orchestrator == nil || c.Staging == nil || c.Backend == nil {
		t.Fatalf("missing components: %+v", c)
	}
	if c.Catalog != nil {
		t.Error("catalog should be nil with the database disabled")
	}
	if got := len(c.Orchestrator.Slots()); got != 2 {
		t.Errorf("slots = %d, want 2", got)
	}
	if status := c.VectorDB.Status(context.Background()); status.Enabled {
		t.Error("vector store should be disabled")
	}
}

func TestBuild_RejectsBadProgressTable(t *testing.T) {
	cfg := &config.Config{
		Backend: config.BackendConfig{BaseURL: "http://localhost:8000"},
		Upload: config.UploadConfig{
			MaxFileSize: 1024,
			Progress:    []config.ProgressCheckpoint{{Stage: "validation", Entry: 0, Exit: 100}},
		},
		Storage: config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
	}
	if _, err := Build(context.Background(), cfg, nil); err == nil {
		t.Error("expected an error for an incomplete progress table")
	}
}
