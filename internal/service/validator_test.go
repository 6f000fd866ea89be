package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/timmy/nlsql-console/internal/domain"
)

type memHandle struct {
	name string
	body string
}

func (h *memHandle) Name() string { return h.name }

func (h *memHandle) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(h.body)), nil
}

func fullInputs(slots []domain.InputSlot) map[domain.InputSlotID]domain.FileHandle {
	inputs := domain.EmptyInputs(slots)
	for _, slot := range slots {
		inputs[slot.ID] = &memHandle{name: string(slot.ID) + ".csv", body: "col\nv\n"}
	}
	return inputs
}

func TestValidator_CanStart(t *testing.T) {
	slots := domain.SlotProfileTwoFile.Slots()
	v := NewValidator(slots)
	full := fullInputs(slots)
	partial := fullInputs(slots)
	partial["column_definitions"] = nil

	tests := []struct {
		name        string
		target      *domain.TargetRef
		inputs      map[domain.InputSlotID]domain.FileHandle
		wantCode    ValidationCode
		wantMissing []domain.InputSlotID
	}{
		{"nil target", nil, full, ValidationMissingTarget, nil},
		{"placeholder namespace", &domain.TargetRef{SourceID: "S", Namespace: "undefined"}, full, ValidationMissingTarget, nil},
		{"empty namespace", &domain.TargetRef{SourceID: "S"}, full, ValidationMissingTarget, nil},
		{"empty source", &domain.TargetRef{Namespace: "NS"}, full, ValidationMissingTarget, nil},
		{"target checked before files", nil, domain.EmptyInputs(slots), ValidationMissingTarget, nil},
		{"missing one file", &domain.TargetRef{SourceID: "S", Namespace: "NS"}, partial, ValidationMissingFiles, []domain.InputSlotID{"column_definitions"}},
		{"nil inputs", &domain.TargetRef{SourceID: "S", Namespace: "NS"}, nil, ValidationMissingFiles, []domain.InputSlotID{"table_metadata", "column_definitions"}},
		{"valid", &domain.TargetRef{SourceID: "S", Namespace: "NS"}, full, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.CanStart(tt.target, tt.inputs)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if verr.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, verr.Code)
			}
			if len(verr.Missing) != len(tt.wantMissing) {
				t.Fatalf("expected missing %v, got %v", tt.wantMissing, verr.Missing)
			}
			for i := range tt.wantMissing {
				if verr.Missing[i] != tt.wantMissing[i] {
					t.Errorf("expected missing %v, got %v", tt.wantMissing, verr.Missing)
				}
			}
			if verr.Error() == "" {
				t.Error("expected a user-facing message")
			}
		})
	}
}

func TestValidator_IgnoresUndeclaredSlots(t *testing.T) {
	slots := domain.SlotProfileTwoFile.Slots()
	inputs := fullInputs(slots)
	inputs["extra"] = nil

	if err := NewValidator(slots).CanStart(&domain.TargetRef{SourceID: "S", Namespace: "NS"}, inputs); err != nil {
		t.Errorf("expected undeclared slots to be ignored, got %v", err)
	}
}
