package domain

import "time"

// StagedFileStatus represents the lifecycle of a staged input file.
// Values include StagedFileStatusActive and StagedFileStatusReleased.
type StagedFileStatus string

const (
	StagedFileStatusActive   StagedFileStatus = "active"
	StagedFileStatusReleased StagedFileStatus = "released"
)

// StagedFile records an input file uploaded into object storage and bound to a slot.
type StagedFile struct {
	ID         string           `gorm:"type:text;primaryKey" json:"id"`
	Slot       InputSlotID      `gorm:"type:text;not null;index" json:"slot"`
	FileName   string           `gorm:"type:text;not null" json:"file_name"`
	StorageKey string           `gorm:"type:text;not null;uniqueIndex" json:"storage_key"`
	FileSize   int64            `json:"file_size"`
	MD5Hash    string           `gorm:"type:text;index" json:"md5_hash"`
	Status     StagedFileStatus `gorm:"type:text;default:active;index" json:"status"`
	ReleasedAt *time.Time       `json:"released_at,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// TableName returns the database table name for StagedFile.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (StagedFile) TableName() string {
	return "staged_files"
}
