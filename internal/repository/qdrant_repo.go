package repository

import (
	"context"
	"crypto/tls"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// QdrantConnectionConfig holds configuration for Qdrant connection
type QdrantConnectionConfig struct {
	Host       string
	Port       int
	Collection string
	APIKey     string // Qdrant Cloud API Key (enables TLS automatically)
	UseTLS     bool
}

// apiKeyInterceptor adds the API key to every unary call.
func apiKeyInterceptor(apiKey string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", apiKey)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// QdrantRepository reads the state of the collection the backend writes table embeddings to.
// The console never writes vectors itself.
type QdrantRepository struct {
	conn           *grpc.ClientConn
	qdrantClient   pb.QdrantClient
	collectClient  pb.CollectionsClient
	collectionName string
}

// ServerInfo is the reply of the Qdrant health check.
type ServerInfo struct {
	Title   string
	Version string
}

// CollectionStats summarizes the embedding collection.
type CollectionStats struct {
	Name                string
	Exists              bool
	Status              string
	PointsCount         uint64
	IndexedVectorsCount uint64
	SegmentsCount       uint64
	VectorSize          uint64
}

// NewQdrantRepository creates a new QdrantRepository.
// Supports both local Qdrant (insecure) and Qdrant Cloud (TLS + API Key).
func NewQdrantRepository(cfg *QdrantConnectionConfig) (*QdrantRepository, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	var opts []grpc.DialOption
	if cfg.UseTLS || cfg.APIKey != "" {
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{
			MinVersion: tls.VersionTLS13,
		})))
		if cfg.APIKey != "" {
			opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
		}
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &QdrantRepository{
		conn:           conn,
		qdrantClient:   pb.NewQdrantClient(conn),
		collectClient:  pb.NewCollectionsClient(conn),
		collectionName: cfg.Collection,
	}, nil
}

// Close closes the gRPC connection
func (r *QdrantRepository) Close() error {
	return r.conn.Close()
}

// CollectionName returns the monitored collection.
func (r *QdrantRepository) CollectionName() string {
	return r.collectionName
}

// HealthCheck pings the Qdrant server.
func (r *QdrantRepository) HealthCheck(ctx context.Context) (*ServerInfo, error) {
	reply, err := r.qdrantClient.HealthCheck(ctx, &pb.HealthCheckRequest{})
	if err != nil {
		return nil, fmt.Errorf("qdrant health check failed: %w", err)
	}
	return &ServerInfo{Title: reply.GetTitle(), Version: reply.GetVersion()}, nil
}

// CollectionStats returns the status of the collection. A missing collection
// is reported with Exists=false rather than an error.
func (r *QdrantRepository) CollectionStats(ctx context.Context) (*CollectionStats, error) {
	stats := &CollectionStats{Name: r.collectionName}

	resp, err := r.collectClient.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: r.collectionName,
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return stats, nil
		}
		return nil, fmt.Errorf("failed to get collection info: %w", err)
	}

	info := resp.GetResult()
	stats.Exists = true
	stats.Status = info.GetStatus().String()
	stats.PointsCount = info.GetPointsCount()
	stats.IndexedVectorsCount = info.GetIndexedVectorsCount()
	stats.SegmentsCount = info.GetSegmentsCount()
	if size, ok := collectionVectorSize(info); ok {
		stats.VectorSize = size
	}
	return stats, nil
}

func collectionVectorSize(info *pb.CollectionInfo) (uint64, bool) {
	vectors := info.GetConfig().GetParams().GetVectorsConfig()
	if vectors == nil {
		return 0, false
	}

	if single := vectors.GetParams(); single != nil && single.GetSize() > 0 {
		return single.GetSize(), true
	}

	for _, params := range vectors.GetParamsMap().GetMap() {
		if size := params.GetSize(); size > 0 {
			return size, true
		}
	}

	return 0, false
}
