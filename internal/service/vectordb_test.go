package service

import (
	"context"
	"errors"
	"testing"

	"github.com/timmy/nlsql-console/internal/repository"
)

type fakeVectorReader struct {
	healthErr error
	statsErr  error
	stats     *repository.CollectionStats
}

func (f *fakeVectorReader) HealthCheck(ctx context.Context) (*repository.ServerInfo, error) {
	if f.healthErr != nil {
		return nil, f.healthErr
	}
	return &repository.ServerInfo{Title: "qdrant", Version: "1.16.2"}, nil
}

func (f *fakeVectorReader) CollectionStats(ctx context.Context) (*repository.CollectionStats, error) {
	return f.stats, f.statsErr
}

func TestVectorDBService_Status(t *testing.T) {
	ctx := context.Background()

	if s := NewVectorDBService(nil, 0).Status(ctx); s.Enabled {
		t.Error("expected disabled status without a reader")
	}

	ok := NewVectorDBService(&fakeVectorReader{stats: &repository.CollectionStats{
		Name: "table_metadata", Exists: true, Status: "Green", PointsCount: 120, VectorSize: 1024,
	}}, 0).Status(ctx)
	if !ok.Enabled || !ok.Healthy || ok.Version != "1.16.2" {
		t.Errorf("unexpected health %+v", ok)
	}
	if !ok.CollectionExists || ok.PointsCount != 120 || ok.VectorSize != 1024 || ok.Collection != "table_metadata" {
		t.Errorf("unexpected collection %+v", ok)
	}

	down := NewVectorDBService(&fakeVectorReader{healthErr: errors.New("unavailable")}, 0).Status(ctx)
	if down.Healthy || down.Error == "" {
		t.Errorf("expected unhealthy status with error, got %+v", down)
	}

	noStats := NewVectorDBService(&fakeVectorReader{statsErr: errors.New("denied")}, 0).Status(ctx)
	if !noStats.Healthy || noStats.Error != "denied" {
		t.Errorf("expected healthy status with collection error, got %+v", noStats)
	}
}
