package service

import (
	"fmt"
	"strings"

	"github.com/timmy/nlsql-console/internal/domain"
)

// ValidationCode classifies why a run may not start.
type ValidationCode string

const (
	ValidationMissingTarget ValidationCode = "missing_target"
	ValidationMissingFiles  ValidationCode = "missing_files"
)

// ValidationError is returned when pre-flight checks reject a run.
type ValidationError struct {
	Code    ValidationCode
	Missing []domain.InputSlotID // set for ValidationMissingFiles
}

func (e *ValidationError) Error() string {
	switch e.Code {
	case ValidationMissingTarget:
		return "select a registered database with a schema before processing"
	case ValidationMissingFiles:
		names := make([]string, len(e.Missing))
		for i, id := range e.Missing {
			names[i] = string(id)
		}
		return fmt.Sprintf("all input files are required (missing: %s)", strings.Join(names, ", "))
	default:
		return "invalid run request"
	}
}

// Validator gates whether a run may start. It holds no run state.
type Validator struct {
	slots []domain.InputSlot
}

// NewValidator creates a validator for the declared input slots.
func NewValidator(slots []domain.InputSlot) *Validator {
	return &Validator{slots: append([]domain.InputSlot(nil), slots...)}
}

// CanStart checks the target first, then the input slots; the first failure wins.
func (v *Validator) CanStart(target *domain.TargetRef, inputs map[domain.InputSlotID]domain.FileHandle) error {
	if target == nil || target.SourceID == "" ||
		target.Namespace == "" || target.Namespace == domain.PlaceholderNamespace {
		return &ValidationError{Code: ValidationMissingTarget}
	}

	var missing []domain.InputSlotID
	for _, slot := range v.slots {
		if inputs[slot.ID] == nil {
			missing = append(missing, slot.ID)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Code: ValidationMissingFiles, Missing: missing}
	}

	return nil
}
