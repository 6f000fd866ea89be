package service

import (
	"context"
	"time"

	"github.com/timmy/nlsql-console/internal/logger"
	"github.com/timmy/nlsql-console/internal/repository"
)

// VectorStatusReader reads the state of the vector store.
type VectorStatusReader interface {
	HealthCheck(ctx context.Context) (*repository.ServerInfo, error)
	CollectionStats(ctx context.Context) (*repository.CollectionStats, error)
}

var _ VectorStatusReader = (*repository.QdrantRepository)(nil)

// VectorDBStatus is what the console shows about the vector store the backend writes to.
type VectorDBStatus struct {
	Enabled             bool   `json:"enabled"`
	Healthy             bool   `json:"healthy"`
	Version             string `json:"version,omitempty"`
	Collection          string `json:"collection,omitempty"`
	CollectionExists    bool   `json:"collection_exists"`
	CollectionStatus    string `json:"collection_status,omitempty"`
	PointsCount         uint64 `json:"points_count"`
	IndexedVectorsCount uint64 `json:"indexed_vectors_count"`
	VectorSize          uint64 `json:"vector_size,omitempty"`
	Error               string `json:"error,omitempty"`
}

// VectorDBService reports vector store health. A nil reader means the store is not configured.
type VectorDBService struct {
	reader  VectorStatusReader
	timeout time.Duration
}

// NewVectorDBService creates a new vector store status service.
func NewVectorDBService(reader VectorStatusReader, timeout time.Duration) *VectorDBService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &VectorDBService{reader: reader, timeout: timeout}
}

// Status queries the vector store. Failures are reported in the status, not as errors.
func (s *VectorDBService) Status(ctx context.Context) *VectorDBStatus {
	if s.reader == nil {
		return &VectorDBStatus{Enabled: false}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	status := &VectorDBStatus{Enabled: true}
	info, err := s.reader.HealthCheck(ctx)
	if err != nil {
		logger.CtxWarn(ctx, "Vector store health check failed: %v", err)
		status.Error = err.Error()
		return status
	}
	status.Healthy = true
	status.Version = info.Version

	stats, err := s.reader.CollectionStats(ctx)
	if err != nil {
		logger.CtxWarn(ctx, "Vector store collection lookup failed: %v", err)
		status.Error = err.Error()
		return status
	}
	status.Collection = stats.Name
	status.CollectionExists = stats.Exists
	status.CollectionStatus = stats.Status
	status.PointsCount = stats.PointsCount
	status.IndexedVectorsCount = stats.IndexedVectorsCount
	status.VectorSize = stats.VectorSize
	return status
}
