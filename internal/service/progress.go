package service

import (
	"fmt"

	"github.com/timmy/nlsql-console/internal/domain"
)

// StageWeight is the overall progress reported when a stage starts and when it completes.
type StageWeight struct {
	Stage domain.StageID `mapstructure:"stage"`
	Entry int            `mapstructure:"entry"`
	Exit  int            `mapstructure:"exit"`
}

// ProgressTable maps every registered stage to its progress checkpoints, in stage order.
type ProgressTable []StageWeight

// DefaultProgressTable returns the checkpoints used by the console.
func DefaultProgressTable() ProgressTable {
	return ProgressTable{
		{Stage: domain.StageValidation, Entry: 10, Exit: 20},
		{Stage: domain.StageSchemaLookup, Entry: 30, Exit: 50},
		{Stage: domain.StageIntegration, Entry: 60, Exit: 70},
		{Stage: domain.StageEmbedding, Entry: 80, Exit: 90},
		{Stage: domain.StageVectorStoreWrite, Entry: 95, Exit: 100},
	}
}

// Validate checks that the table covers the stage registry in order and that
// checkpoints never decrease and end at 100.
func (t ProgressTable) Validate() error {
	stages := domain.Stages()
	if len(t) != len(stages) {
		return fmt.Errorf("progress table has %d entries, stage registry has %d", len(t), len(stages))
	}

	last := 0
	for i, w := range t {
		if w.Stage != stages[i].ID {
			return fmt.Errorf("progress table entry %d is %q, expected %q", i, w.Stage, stages[i].ID)
		}
		if w.Entry < last || w.Exit < w.Entry {
			return fmt.Errorf("progress table entry %q is not monotonic (%d -> %d after %d)", w.Stage, w.Entry, w.Exit, last)
		}
		last = w.Exit
	}
	if last != 100 {
		return fmt.Errorf("progress table must end at 100, ends at %d", last)
	}

	return nil
}

// Weight returns the checkpoints for a stage.
func (t ProgressTable) Weight(id domain.StageID) (StageWeight, bool) {
	for _, w := range t {
		if w.Stage == id {
			return w, true
		}
	}
	return StageWeight{}, false
}
