package domain

import (
	"context"
	"io"
)

// InputSlotID names one of the reference files a run needs, e.g. "table_metadata".
// The slot ID doubles as the multipart field name sent to the backend.
type InputSlotID string

// InputSlot declares a named input file expected by every run.
type InputSlot struct {
	ID           InputSlotID `mapstructure:"id" json:"id"`
	Label        string      `mapstructure:"label" json:"label"`
	TemplateName string      `mapstructure:"template_name" json:"template_name"`
}

// FileHandle is a readable reference to a selected input file.
type FileHandle interface {
	// Name returns the file name presented to the backend.
	Name() string

	// Open opens the file contents for reading. The caller closes the reader.
	Open(ctx context.Context) (io.ReadCloser, error)
}

// SlotProfile selects one of the known input slot layouts.
type SlotProfile string

const (
	// SlotProfileTwoFile matches the table/column definition upload.
	SlotProfileTwoFile SlotProfile = "two-file"
	// SlotProfileThreeFile matches the table info / common columns / code definitions upload.
	SlotProfileThreeFile SlotProfile = "three-file"
)

// Slots returns the input slots declared by the profile.
// Unknown profiles fall back to SlotProfileTwoFile.
func (p SlotProfile) Slots() []InputSlot {
	switch p {
	case SlotProfileThreeFile:
		return []InputSlot{
			{ID: "table_info", Label: "Table info", TemplateName: "table_info_template.csv"},
			{ID: "common_columns", Label: "Common columns", TemplateName: "common_columns_template.csv"},
			{ID: "code_definitions", Label: "Code definitions", TemplateName: "code_definitions_template.csv"},
		}
	default:
		return []InputSlot{
			{ID: "table_metadata", Label: "Table metadata", TemplateName: "table_metadata.csv"},
			{ID: "column_definitions", Label: "Column definitions", TemplateName: "column_definitions.csv"},
		}
	}
}
