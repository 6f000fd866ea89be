package domain

import "time"

// RunPhase represents the overall phase of an upload run.
// Values include RunPhaseIdle, RunPhaseRunning, RunPhaseSucceeded, and RunPhaseFailed.
type RunPhase string

const (
	RunPhaseIdle      RunPhase = "idle"
	RunPhaseRunning   RunPhase = "running"
	RunPhaseSucceeded RunPhase = "succeeded"
	RunPhaseFailed    RunPhase = "failed"
)

// IsTerminal reports whether the phase ends a run.
func (p RunPhase) IsTerminal() bool {
	return p == RunPhaseSucceeded || p == RunPhaseFailed
}

// StageState is a stage definition paired with its status in the current run.
type StageState struct {
	StageDefinition
	Status  StageStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

// RunState is the mutable record of one upload attempt.
type RunState struct {
	RunID           string
	SelectedTarget  *TargetRef
	Slots           []InputSlot
	Inputs          map[InputSlotID]FileHandle
	Stages          []StageState
	OverallProgress int
	Phase           RunPhase
	ResultMessage   string
	StartedAt       *time.Time
	FinishedAt      *time.Time
}

// NewRunState creates an Idle run state with every stage Pending and every slot empty.
func NewRunState(slots []InputSlot) *RunState {
	s := &RunState{
		Slots: append([]InputSlot(nil), slots...),
		Phase: RunPhaseIdle,
	}
	s.Inputs = EmptyInputs(slots)
	s.ResetStages()
	return s
}

// EmptyInputs returns an input mapping with every declared slot unset.
func EmptyInputs(slots []InputSlot) map[InputSlotID]FileHandle {
	inputs := make(map[InputSlotID]FileHandle, len(slots))
	for _, slot := range slots {
		inputs[slot.ID] = nil
	}
	return inputs
}

// ResetStages marks every registered stage Pending and zeroes progress.
func (s *RunState) ResetStages() {
	defs := Stages()
	s.Stages = make([]StageState, len(defs))
	for i, def := range defs {
		s.Stages[i] = StageState{StageDefinition: def, Status: StageStatusPending}
	}
	s.OverallProgress = 0
}

// Stage returns a pointer to the stage entry for id, or nil.
func (s *RunState) Stage(id StageID) *StageState {
	for i := range s.Stages {
		if s.Stages[i].ID == id {
			return &s.Stages[i]
		}
	}
	return nil
}

// ActiveStage returns the stage currently InProgress, or nil.
func (s *RunState) ActiveStage() *StageState {
	for i := range s.Stages {
		if s.Stages[i].Status == StageStatusInProgress {
			return &s.Stages[i]
		}
	}
	return nil
}

// FailedStage returns the stage in Error, or nil.
func (s *RunState) FailedStage() *StageState {
	for i := range s.Stages {
		if s.Stages[i].Status == StageStatusError {
			return &s.Stages[i]
		}
	}
	return nil
}

// Clone returns a deep copy suitable for handing to readers.
// File handles are shared; they are treated as immutable.
func (s *RunState) Clone() RunState {
	out := *s
	out.Slots = append([]InputSlot(nil), s.Slots...)
	out.Stages = append([]StageState(nil), s.Stages...)
	out.Inputs = make(map[InputSlotID]FileHandle, len(s.Inputs))
	for k, v := range s.Inputs {
		out.Inputs[k] = v
	}
	if s.SelectedTarget != nil {
		t := *s.SelectedTarget
		out.SelectedTarget = &t
	}
	if s.StartedAt != nil {
		t := *s.StartedAt
		out.StartedAt = &t
	}
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		out.FinishedAt = &t
	}
	return out
}
