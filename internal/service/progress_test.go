package service

import (
	"testing"

	"github.com/timmy/nlsql-console/internal/domain"
)

func TestDefaultProgressTable_IsValid(t *testing.T) {
	if err := DefaultProgressTable().Validate(); err != nil {
		t.Fatalf("default table rejected: %v", err)
	}

	w, ok := DefaultProgressTable().Weight(domain.StageSchemaLookup)
	if !ok || w.Entry != 30 || w.Exit != 50 {
		t.Errorf("unexpected schema-lookup weight %+v", w)
	}
	if _, ok := DefaultProgressTable().Weight("missing"); ok {
		t.Error("expected lookup of unknown stage to fail")
	}
}

func TestProgressTable_ValidateRejects(t *testing.T) {
	swapped := DefaultProgressTable()
	swapped[0], swapped[1] = swapped[1], swapped[0]

	decreasing := DefaultProgressTable()
	decreasing[2].Entry = 40

	inverted := DefaultProgressTable()
	inverted[3].Exit = 70

	short := DefaultProgressTable()[:4]

	notFull := DefaultProgressTable()
	notFull[4].Exit = 99

	tests := []struct {
		name  string
		table ProgressTable
	}{
		{"wrong order", swapped},
		{"entry below previous exit", decreasing},
		{"exit below entry", inverted},
		{"missing stage", short},
		{"does not reach 100", notFull},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.table.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
