package repository

import (
	"context"
	"time"

	"github.com/timmy/nlsql-console/internal/domain"
	"gorm.io/gorm"
)

// StagedFileRepository catalogs input files held in object storage.
type StagedFileRepository struct {
	db *gorm.DB
}

// NewStagedFileRepository creates a new StagedFileRepository.
// Parameters:
//   - db: GORM database handle used for queries.
//
// Returns:
//   - *StagedFileRepository: repository instance bound to db.
func NewStagedFileRepository(db *gorm.DB) *StagedFileRepository {
	return &StagedFileRepository{db: db}
}

// Create inserts a staged file record.
func (r *StagedFileRepository) Create(ctx context.Context, file *domain.StagedFile) error {
	return r.db.WithContext(ctx).Create(file).Error
}

// GetByStorageKey retrieves a staged file by its storage key.
func (r *StagedFileRepository) GetByStorageKey(ctx context.Context, key string) (*domain.StagedFile, error) {
	var file domain.StagedFile
	if err := r.db.WithContext(ctx).First(&file, "storage_key = ?", key).Error; err != nil {
		return nil, err
	}
	return &file, nil
}

// MarkReleased flags the files with the given storage keys as released.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - keys: storage keys of the released files.
//
// Returns:
//   - int64: number of rows updated.
//   - error: non-nil if the update fails.
func (r *StagedFileRepository) MarkReleased(ctx context.Context, keys []string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&domain.StagedFile{}).
		Where("storage_key IN ? AND status = ?", keys, domain.StagedFileStatusActive).
		Updates(map[string]interface{}{
			"status":      domain.StagedFileStatusReleased,
			"released_at": &now,
		})
	return result.RowsAffected, result.Error
}

// ListActive returns staged files not yet released, oldest first.
func (r *StagedFileRepository) ListActive(ctx context.Context, limit int) ([]domain.StagedFile, error) {
	var files []domain.StagedFile
	q := r.db.WithContext(ctx).
		Where("status = ?", domain.StagedFileStatusActive).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

// CountByStatus returns the number of staged files with the given status.
func (r *StagedFileRepository) CountByStatus(ctx context.Context, status domain.StagedFileStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.StagedFile{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}
