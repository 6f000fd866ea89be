package domain

import (
	"context"
	"io"
	"strings"
	"testing"
)

type stubHandle string

func (h stubHandle) Name() string { return string(h) }

func (h stubHandle) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func TestNewRunState_FreshIdleShape(t *testing.T) {
	slots := SlotProfileTwoFile.Slots()
	s := NewRunState(slots)

	if s.Phase != RunPhaseIdle {
		t.Errorf("expected idle phase, got %s", s.Phase)
	}
	if s.OverallProgress != 0 {
		t.Errorf("expected progress 0, got %d", s.OverallProgress)
	}
	if len(s.Stages) != len(Stages()) {
		t.Fatalf("expected %d stages, got %d", len(Stages()), len(s.Stages))
	}
	for _, st := range s.Stages {
		if st.Status != StageStatusPending {
			t.Errorf("stage %s: expected pending, got %s", st.ID, st.Status)
		}
	}
	if len(s.Inputs) != len(slots) {
		t.Fatalf("expected %d input slots, got %d", len(slots), len(s.Inputs))
	}
	for id, h := range s.Inputs {
		if h != nil {
			t.Errorf("slot %s: expected empty", id)
		}
	}
	if s.ActiveStage() != nil || s.FailedStage() != nil {
		t.Error("fresh state must have no active or failed stage")
	}
}

func TestRunState_CloneIsIndependent(t *testing.T) {
	s := NewRunState(SlotProfileTwoFile.Slots())
	s.SelectedTarget = &TargetRef{SourceID: "ORCL", Namespace: "HR"}
	s.Inputs["table_metadata"] = stubHandle("tables.csv")

	snap := s.Clone()
	s.Stage(StageValidation).Status = StageStatusCompleted
	s.Inputs["table_metadata"] = nil
	s.SelectedTarget.Namespace = "FIN"

	if snap.Stage(StageValidation).Status != StageStatusPending {
		t.Error("clone stages must not follow the original")
	}
	if snap.Inputs["table_metadata"] == nil {
		t.Error("clone inputs must not follow the original")
	}
	if snap.SelectedTarget.Namespace != "HR" {
		t.Error("clone target must not follow the original")
	}
}

func TestSlotProfiles(t *testing.T) {
	tests := []struct {
		profile SlotProfile
		want    int
	}{
		{SlotProfileTwoFile, 2},
		{SlotProfileThreeFile, 3},
		{SlotProfile("unknown"), 2},
	}

	for _, tt := range tests {
		t.Run(string(tt.profile), func(t *testing.T) {
			if got := len(tt.profile.Slots()); got != tt.want {
				t.Errorf("expected %d slots, got %d", tt.want, got)
			}
		})
	}
}

func TestParseTargetKey(t *testing.T) {
	tests := []struct {
		key  string
		want TargetRef
	}{
		{"ORCL:HR", TargetRef{SourceID: "ORCL", Namespace: "HR"}},
		{"ORCL:undefined", TargetRef{SourceID: "ORCL", Namespace: PlaceholderNamespace}},
		{"ORCL", TargetRef{SourceID: "ORCL"}},
		{"", TargetRef{}},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := ParseTargetKey(tt.key)
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}

	if k := (TargetRef{SourceID: "ORCL", Namespace: "HR"}).Key(); k != "ORCL:HR" {
		t.Errorf("expected key ORCL:HR, got %s", k)
	}
}
