package source

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/timmy/nlsql-console/internal/domain"
)

// FromDirectory fills input slots from files in dir. For each slot it looks
// for "<slot id>.csv" and then the slot's template name; slots without a
// matching file are left empty.
// Parameters:
//   - dir: directory holding the input CSV files.
//   - slots: declared input slots.
//
// Returns:
//   - map: slot ID to handle, with every declared slot present.
//   - error: non-nil if dir cannot be read.
func FromDirectory(dir string, slots []domain.InputSlot) (map[domain.InputSlotID]domain.FileHandle, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	inputs := domain.EmptyInputs(slots)
	for _, slot := range slots {
		candidates := []string{string(slot.ID) + ".csv"}
		if slot.TemplateName != "" {
			candidates = append(candidates, slot.TemplateName)
		}
		for _, name := range candidates {
			p := filepath.Join(dir, name)
			if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
				inputs[slot.ID] = NewLocalFile(p)
				break
			}
		}
	}
	return inputs, nil
}
