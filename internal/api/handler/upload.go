package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/nlsql-console/internal/domain"
	"github.com/timmy/nlsql-console/internal/logger"
	"github.com/timmy/nlsql-console/internal/service"
)

// UploadHandler exposes the upload orchestrator over HTTP.
type UploadHandler struct {
	orchestrator *service.UploadOrchestrator
	staging      *service.StagingService
	heartbeat    time.Duration
}

// NewUploadHandler creates a new upload handler.
// Parameters:
//   - orchestrator: owner of the run state.
//   - staging: stores uploaded files before they are placed in a slot.
//
// Returns:
//   - *UploadHandler: initialized handler.
func NewUploadHandler(orchestrator *service.UploadOrchestrator, staging *service.StagingService) *UploadHandler {
	return &UploadHandler{
		orchestrator: orchestrator,
		staging:      staging,
		heartbeat:    15 * time.Second,
	}
}

func (h *UploadHandler) state() RunStateResponse {
	return newRunStateResponse(h.orchestrator.Snapshot(), h.orchestrator.Validator())
}

// Stages handles GET /api/v1/upload/stages.
func (h *UploadHandler) Stages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"stages": domain.Stages(),
		"slots":  h.orchestrator.Slots(),
	})
}

// State handles GET /api/v1/upload/state.
func (h *UploadHandler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.state())
}

// Events handles GET /api/v1/upload/events as a server-sent event stream.
// Each state change is sent as a "state" event; the stream ends when the client goes away.
func (h *UploadHandler) Events(c *gin.Context) {
	ch, unsubscribe := h.orchestrator.Subscribe()
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	validator := h.orchestrator.Validator()
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-ch:
			if !ok {
				return
			}
			c.SSEvent("state", newRunStateResponse(s, validator))
			c.Writer.Flush()
		case <-ticker.C:
			c.SSEvent("ping", time.Now().Unix())
			c.Writer.Flush()
		}
	}
}

// SelectTargetRequest selects a target by key or by its two parts.
type SelectTargetRequest struct {
	Key       string `json:"key"`
	SourceID  string `json:"source_id"`
	Namespace string `json:"namespace"`
}

// SelectTarget handles PUT /api/v1/upload/target.
// The target is recorded as given; an incomplete target is reported when a run starts.
func (h *UploadHandler) SelectTarget(c *gin.Context) {
	var req SelectTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request: " + err.Error(), Code: "invalid_request"})
		return
	}

	target := domain.TargetRef{SourceID: req.SourceID, Namespace: req.Namespace}
	if req.Key != "" {
		target = domain.ParseTargetKey(req.Key)
	}
	if target.SourceID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "source_id or key is required", Code: "invalid_request"})
		return
	}

	if err := h.orchestrator.SelectTarget(c.Request.Context(), target); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.state())
}

func (h *UploadHandler) declared(slot domain.InputSlotID) bool {
	for _, s := range h.orchestrator.Slots() {
		if s.ID == slot {
			return true
		}
	}
	return false
}

// SetInput handles PUT /api/v1/upload/inputs/:slot with a multipart "file" field.
func (h *UploadHandler) SetInput(c *gin.Context) {
	ctx := c.Request.Context()
	slot := domain.InputSlotID(c.Param("slot"))

	if !h.declared(slot) {
		writeError(c, service.ErrUnknownSlot)
		return
	}
	if h.orchestrator.Snapshot().Phase == domain.RunPhaseRunning {
		writeError(c, service.ErrAlreadyRunning)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "file is required", Code: "file_required"})
		return
	}
	file, err := header.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	defer file.Close()

	ctx = logger.WithField(ctx, logger.FieldSlot, string(slot))
	handle, err := h.staging.Stage(ctx, slot, header.Filename, file)
	if err != nil {
		writeError(c, err)
		return
	}

	if err := h.orchestrator.SetInput(ctx, slot, handle); err != nil {
		if relErr := h.staging.Release(ctx, handle); relErr != nil {
			logger.CtxWarn(ctx, "Failed to release rejected upload: %v", relErr)
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.state())
}

// ClearInput handles DELETE /api/v1/upload/inputs/:slot.
func (h *UploadHandler) ClearInput(c *gin.Context) {
	if err := h.orchestrator.ClearInput(c.Request.Context(), domain.InputSlotID(c.Param("slot"))); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.state())
}

// Start handles POST /api/v1/upload/start. The run continues in the background;
// clients follow it through /upload/state or /upload/events.
func (h *UploadHandler) Start(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := h.orchestrator.StartSelected(ctx); err != nil {
		writeError(c, err)
		return
	}

	logger.CtxInfo(ctx, "Upload run accepted: client_ip=%s", c.ClientIP())
	c.JSON(http.StatusAccepted, h.state())
}

// Reset handles POST /api/v1/upload/reset.
func (h *UploadHandler) Reset(c *gin.Context) {
	if err := h.orchestrator.Reset(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.state())
}
