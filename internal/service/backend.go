package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/nlsql-console/internal/domain"
	"github.com/timmy/nlsql-console/internal/logger"
)

const (
	processMetadataPath = "/api/v1/metadata/process"
	listDatabasesPath   = "/api/v1/databases/list"
)

// MetadataProcessor performs the backend call that ingests a run's input files.
type MetadataProcessor interface {
	ProcessMetadata(ctx context.Context, target domain.TargetRef, inputs map[domain.InputSlotID]domain.FileHandle) (*ProcessResult, error)
}

// DatabaseLister lists the data sources registered with the backend.
type DatabaseLister interface {
	ListDatabases(ctx context.Context) ([]domain.RegisteredDatabase, error)
}

// ProcessResult is the backend's answer to a metadata processing request.
type ProcessResult struct {
	Success         bool   `json:"success"`
	TablesProcessed int    `json:"tables_processed"`
	DatabaseSID     string `json:"database_sid,omitempty"`
	SchemaName      string `json:"schema_name,omitempty"`
	Error           string `json:"error,omitempty"`
}

// BackendError is a failure reported by the backend rather than by the transport.
type BackendError struct {
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	return e.Message
}

// BackendConfig holds configuration for the backend client.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// BackendClient talks to the NL-SQL management backend.
type BackendClient struct {
	client *resty.Client
}

// Compile-time interface checks.
var (
	_ MetadataProcessor = (*BackendClient)(nil)
	_ DatabaseLister    = (*BackendClient)(nil)
)

// NewBackendClient creates a new backend client.
func NewBackendClient(cfg *BackendConfig) *BackendClient {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	client.SetHeader("Accept", "application/json")

	return &BackendClient{client: client}
}

type errorDetail struct {
	Detail string `json:"detail"`
}

type databaseListResponse struct {
	Databases  []domain.RegisteredDatabase `json:"databases"`
	TotalCount int                         `json:"total_count"`
}

// ProcessMetadata uploads the input files for target in a single multipart request.
// A response with success=false is returned as a *BackendError carrying the backend's message.
func (c *BackendClient) ProcessMetadata(ctx context.Context, target domain.TargetRef, inputs map[domain.InputSlotID]domain.FileHandle) (*ProcessResult, error) {
	req := c.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"db_key":       target.SourceID,
			"database_sid": target.SourceID,
			"schema_name":  target.Namespace,
		})

	for slot, handle := range inputs {
		if handle == nil {
			continue
		}
		rc, err := handle.Open(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", slot, err)
		}
		defer rc.Close()
		req.SetFileReader(string(slot), handle.Name(), rc)
	}

	var result ProcessResult
	var detail errorDetail
	start := time.Now()
	httpResp, err := req.
		SetResult(&result).
		SetError(&detail).
		Post(processMetadataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to call metadata process API: %w", err)
	}

	logger.With(logger.Fields{logger.FieldStatus: httpResp.StatusCode()}).
		WithElapsed(start).
		Debug(ctx, "Metadata process API responded: target=%s", target.Key())

	if httpResp.IsError() {
		msg := detail.Detail
		if msg == "" {
			msg = fmt.Sprintf("metadata process API error: status %d", httpResp.StatusCode())
		}
		return nil, &BackendError{StatusCode: httpResp.StatusCode(), Message: msg}
	}

	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "metadata processing failed"
		}
		return &result, &BackendError{StatusCode: httpResp.StatusCode(), Message: msg}
	}

	return &result, nil
}

// ListDatabases returns the databases registered with the backend.
func (c *BackendClient) ListDatabases(ctx context.Context) ([]domain.RegisteredDatabase, error) {
	var resp databaseListResponse
	var detail errorDetail
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetResult(&resp).
		SetError(&detail).
		Get(listDatabasesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to call database list API: %w", err)
	}

	if httpResp.StatusCode() != http.StatusOK {
		if detail.Detail != "" {
			return nil, &BackendError{StatusCode: httpResp.StatusCode(), Message: detail.Detail}
		}
		return nil, &BackendError{
			StatusCode: httpResp.StatusCode(),
			Message:    fmt.Sprintf("database list API error: status %d", httpResp.StatusCode()),
		}
	}

	return resp.Databases, nil
}

