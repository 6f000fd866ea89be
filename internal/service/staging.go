package service

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/timmy/nlsql-console/internal/domain"
	"github.com/timmy/nlsql-console/internal/logger"
	"github.com/timmy/nlsql-console/internal/repository"
	"github.com/timmy/nlsql-console/internal/source"
	"github.com/timmy/nlsql-console/internal/storage"
)

// ErrInvalidInputFile is returned when an uploaded file cannot be used as a run input.
var ErrInvalidInputFile = errors.New("invalid input file")

// StagedFileCatalog records staged files. It is optional: without it files are
// only kept in object storage.
type StagedFileCatalog interface {
	Create(ctx context.Context, file *domain.StagedFile) error
	MarkReleased(ctx context.Context, keys []string) (int64, error)
}

var (
	_ StagedFileCatalog = (*repository.StagedFileRepository)(nil)
	_ InputReleaser     = (*StagingService)(nil)
)

// StagingService stores uploaded CSV files in object storage until a run consumes them.
type StagingService struct {
	storage     storage.ObjectStorage
	catalog     StagedFileCatalog
	maxFileSize int64
	logger      *logger.Logger
}

// StagingConfig holds configuration for the staging service.
type StagingConfig struct {
	MaxFileSize int64
}

// NewStagingService creates a new staging service. catalog may be nil.
func NewStagingService(objectStorage storage.ObjectStorage, catalog StagedFileCatalog, log *logger.Logger, cfg *StagingConfig) *StagingService {
	if log == nil {
		log = logger.GetDefault()
	}
	return &StagingService{
		storage:     objectStorage,
		catalog:     catalog,
		maxFileSize: cfg.MaxFileSize,
		logger:      log,
	}
}

func (s *StagingService) log(ctx context.Context) *logger.Logger {
	if l, ok := logger.Lookup(ctx); ok {
		return l
	}
	return s.logger
}

// Stage validates and stores a file for slot and returns a handle to it.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - slot: input slot the file is bound to.
//   - fileName: original file name; only its base name is kept.
//   - r: file contents.
//
// Returns:
//   - *source.ObjectFile: handle reading the staged object.
//   - error: wraps ErrInvalidInputFile when the file is rejected.
func (s *StagingService) Stage(ctx context.Context, slot domain.InputSlotID, fileName string, r io.Reader) (*source.ObjectFile, error) {
	name := filepath.Base(filepath.Clean("/" + fileName))
	if name == "/" || name == "." || !strings.EqualFold(filepath.Ext(name), ".csv") {
		return nil, fmt.Errorf("%w: %q is not a .csv file", ErrInvalidInputFile, fileName)
	}

	reader := r
	if s.maxFileSize > 0 {
		reader = io.LimitReader(r, s.maxFileSize+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if s.maxFileSize > 0 && int64(len(data)) > s.maxFileSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrInvalidInputFile, name, s.maxFileSize)
	}
	if err := checkCSVHeader(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidInputFile, name, err)
	}

	hash := md5.Sum(data)
	md5Hash := hex.EncodeToString(hash[:])
	id := uuid.New().String()
	key := fmt.Sprintf("uploads/%s/%s", id, name)

	if err := s.storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), "text/csv"); err != nil {
		return nil, fmt.Errorf("failed to stage %s: %w", name, err)
	}

	if s.catalog != nil {
		record := &domain.StagedFile{
			ID:         id,
			Slot:       slot,
			FileName:   name,
			StorageKey: key,
			FileSize:   int64(len(data)),
			MD5Hash:    md5Hash,
			Status:     domain.StagedFileStatusActive,
		}
		if err := s.catalog.Create(ctx, record); err != nil {
			_ = s.storage.Delete(ctx, key)
			return nil, fmt.Errorf("failed to record staged file: %w", err)
		}
	}

	logger.With(logger.Fields{
		logger.FieldSlot: slot,
		logger.FieldSize: len(data),
		"storage_key":    key,
		"md5":            md5Hash,
	}).Info(ctx, "Staged input file %s", name)

	return source.NewObjectFile(s.storage, key, name, int64(len(data))), nil
}

// checkCSVHeader requires a non-empty, parseable first record.
func checkCSVHeader(data []byte) error {
	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err == io.EOF {
		return errors.New("file is empty")
	}
	if err != nil {
		return fmt.Errorf("malformed CSV header: %w", err)
	}
	for _, col := range header {
		if strings.TrimSpace(col) != "" {
			return nil
		}
	}
	return errors.New("CSV header has no column names")
}

// Release deletes staged objects and marks their catalog rows released.
// Handles that were not staged by this service are ignored.
func (s *StagingService) Release(ctx context.Context, handles ...domain.FileHandle) error {
	var keys []string
	var errs []error
	for _, h := range handles {
		obj, ok := h.(*source.ObjectFile)
		if !ok {
			continue
		}
		if err := s.storage.Delete(ctx, obj.Key()); err != nil {
			errs = append(errs, err)
			continue
		}
		keys = append(keys, obj.Key())
	}

	if s.catalog != nil && len(keys) > 0 {
		if _, err := s.catalog.MarkReleased(ctx, keys); err != nil {
			errs = append(errs, fmt.Errorf("failed to mark files released: %w", err))
		}
	}

	if len(keys) > 0 {
		s.log(ctx).WithField(logger.FieldCount, len(keys)).Info("Released staged input files")
	}
	return errors.Join(errs...)
}
