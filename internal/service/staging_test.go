package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/timmy/nlsql-console/internal/domain"
	"github.com/timmy/nlsql-console/internal/storage"
)

type memCatalog struct {
	mu       sync.Mutex
	files    map[string]*domain.StagedFile
	released []string
}

func newMemCatalog() *memCatalog {
	return &memCatalog{files: make(map[string]*domain.StagedFile)}
}

func (c *memCatalog) Create(ctx context.Context, file *domain.StagedFile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[file.StorageKey] = file
	return nil
}

func (c *memCatalog) MarkReleased(ctx context.Context, keys []string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for _, k := range keys {
		if f, ok := c.files[k]; ok && f.Status == domain.StagedFileStatusActive {
			f.Status = domain.StagedFileStatusReleased
			c.released = append(c.released, k)
			n++
		}
	}
	return n, nil
}

func newTestStaging(t *testing.T, maxSize int64) (*StagingService, storage.ObjectStorage, *memCatalog) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewLocalStorage failed: %v", err)
	}
	catalog := newMemCatalog()
	return NewStagingService(store, catalog, nil, &StagingConfig{MaxFileSize: maxSize}), store, catalog
}

func TestStagingService_StageAndRelease(t *testing.T) {
	ctx := context.Background()
	svc, store, catalog := newTestStaging(t, 1024)

	body := "table_name,description\nEMPLOYEES,staff\n"
	handle, err := svc.Stage(ctx, "table_metadata", "../../etc/Tables.CSV", strings.NewReader(body))
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	if handle.Name() != "Tables.CSV" {
		t.Errorf("expected sanitized name, got %s", handle.Name())
	}
	if !strings.HasPrefix(handle.Key(), "uploads/") || !strings.HasSuffix(handle.Key(), "/Tables.CSV") {
		t.Errorf("unexpected key %s", handle.Key())
	}
	if handle.Size() != int64(len(body)) {
		t.Errorf("expected size %d, got %d", len(body), handle.Size())
	}

	rec := catalog.files[handle.Key()]
	if rec == nil {
		t.Fatal("expected catalog record")
	}
	if rec.Slot != "table_metadata" || rec.MD5Hash == "" || rec.Status != domain.StagedFileStatusActive {
		t.Errorf("unexpected record %+v", rec)
	}

	rc, err := handle.Open(ctx)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close()
	if string(got) != body {
		t.Errorf("unexpected content %q", got)
	}

	if err := svc.Release(ctx, handle, &memHandle{name: "other.csv"}); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if ok, _ := store.Exists(ctx, handle.Key()); ok {
		t.Error("expected object to be deleted")
	}
	if rec.Status != domain.StagedFileStatusReleased {
		t.Errorf("expected record released, got %s", rec.Status)
	}
}

func TestStagingService_Rejects(t *testing.T) {
	svc, _, catalog := newTestStaging(t, 16)

	tests := []struct {
		name     string
		fileName string
		body     string
	}{
		{"wrong extension", "tables.xlsx", "a,b\n"},
		{"no name", "", "a,b\n"},
		{"too large", "big.csv", strings.Repeat("x", 17)},
		{"empty", "empty.csv", ""},
		{"blank header", "blank.csv", ",,\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Stage(context.Background(), "table_metadata", tt.fileName, strings.NewReader(tt.body))
			if !errors.Is(err, ErrInvalidInputFile) {
				t.Errorf("expected ErrInvalidInputFile, got %v", err)
			}
		})
	}

	if len(catalog.files) != 0 {
		t.Errorf("expected no records for rejected files, got %d", len(catalog.files))
	}
}
