package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/nlsql-console/internal/domain"
	"github.com/timmy/nlsql-console/internal/logger"
	"github.com/timmy/nlsql-console/internal/service"
)

// TargetResponse is a selected database target.
type TargetResponse struct {
	SourceID  string `json:"source_id"`
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
}

// SlotResponse is a declared input slot and the file currently in it.
type SlotResponse struct {
	ID           domain.InputSlotID `json:"id"`
	Label        string             `json:"label"`
	TemplateName string             `json:"template_name"`
	FileName     *string            `json:"file_name"`
}

// RunStateResponse is the JSON view of the upload run state.
type RunStateResponse struct {
	RunID             string              `json:"run_id,omitempty"`
	Phase             domain.RunPhase     `json:"phase"`
	SelectedTarget    *TargetResponse     `json:"selected_target"`
	Slots             []SlotResponse      `json:"slots"`
	Stages            []domain.StageState `json:"stages"`
	OverallProgress   int                 `json:"overall_progress"`
	ResultMessage     string              `json:"result_message,omitempty"`
	CanStart          bool                `json:"can_start"`
	ValidationMessage string              `json:"validation_message,omitempty"`
	StartedAt         *time.Time          `json:"started_at,omitempty"`
	FinishedAt        *time.Time          `json:"finished_at,omitempty"`
}

// newRunStateResponse builds the JSON view. can_start reflects the validator and the phase guard.
func newRunStateResponse(s domain.RunState, v *service.Validator) RunStateResponse {
	resp := RunStateResponse{
		RunID:           s.RunID,
		Phase:           s.Phase,
		Stages:          s.Stages,
		OverallProgress: s.OverallProgress,
		ResultMessage:   s.ResultMessage,
		StartedAt:       s.StartedAt,
		FinishedAt:      s.FinishedAt,
	}
	if s.SelectedTarget != nil {
		resp.SelectedTarget = &TargetResponse{
			SourceID:  s.SelectedTarget.SourceID,
			Namespace: s.SelectedTarget.Namespace,
			Key:       s.SelectedTarget.Key(),
		}
	}

	resp.Slots = make([]SlotResponse, 0, len(s.Slots))
	for _, slot := range s.Slots {
		sr := SlotResponse{ID: slot.ID, Label: slot.Label, TemplateName: slot.TemplateName}
		if h := s.Inputs[slot.ID]; h != nil {
			name := h.Name()
			sr.FileName = &name
		}
		resp.Slots = append(resp.Slots, sr)
	}

	if v != nil {
		if err := v.CanStart(s.SelectedTarget, s.Inputs); err != nil {
			resp.ValidationMessage = err.Error()
		} else {
			resp.CanStart = s.Phase != domain.RunPhaseRunning
		}
	}
	return resp
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string               `json:"error"`
	Code    string               `json:"code"`
	Missing []domain.InputSlotID `json:"missing,omitempty"`
}

// writeError maps service errors to HTTP status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	resp := ErrorResponse{Error: err.Error(), Code: "internal_error"}

	var validationErr *service.ValidationError
	var backendErr *service.BackendError
	var stageFailure *service.StageFailure
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
		resp.Code = string(validationErr.Code)
		resp.Missing = validationErr.Missing
	case errors.Is(err, service.ErrInvalidInputFile):
		status = http.StatusBadRequest
		resp.Code = "invalid_file"
	case errors.Is(err, service.ErrAlreadyRunning):
		status = http.StatusConflict
		resp.Code = "already_running"
	case errors.Is(err, service.ErrNotTerminal):
		status = http.StatusConflict
		resp.Code = "not_terminal"
	case errors.Is(err, service.ErrUnknownSlot):
		status = http.StatusNotFound
		resp.Code = "unknown_slot"
	case errors.As(err, &stageFailure):
		status = http.StatusBadGateway
		resp.Code = "stage_failed"
		resp.Error = stageFailure.Message
	case errors.As(err, &backendErr):
		status = http.StatusBadGateway
		resp.Code = "backend_error"
	}

	ctx := c.Request.Context()
	if status >= http.StatusInternalServerError {
		logger.CtxError(ctx, "Request failed: path=%s, error=%v", c.Request.URL.Path, err)
	} else {
		logger.CtxWarn(ctx, "Request rejected: path=%s, code=%s, error=%v", c.Request.URL.Path, resp.Code, err)
	}
	c.JSON(status, resp)
}
