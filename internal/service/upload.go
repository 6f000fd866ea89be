package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/nlsql-console/internal/domain"
	"github.com/timmy/nlsql-console/internal/logger"
)

var (
	// ErrAlreadyRunning is returned when a command arrives while a run is in flight.
	ErrAlreadyRunning = errors.New("an upload run is already in progress")
	// ErrNotTerminal is returned by Reset when the run has not finished.
	ErrNotTerminal = errors.New("upload run has not finished")
	// ErrUnknownSlot is returned for input slots the deployment does not declare.
	ErrUnknownSlot = errors.New("unknown input slot")
)

// StageFailure records the stage a run failed at and the failure text shown to the user.
type StageFailure struct {
	Stage   domain.StageID
	Message string
	Err     error
}

func (e *StageFailure) Error() string {
	return fmt.Sprintf("stage %s failed: %s", e.Stage, e.Message)
}

func (e *StageFailure) Unwrap() error {
	return e.Err
}

// InputReleaser frees the storage behind input files that are no longer selected.
type InputReleaser interface {
	Release(ctx context.Context, handles ...domain.FileHandle) error
}

// PacingConfig holds the delays applied to the stages completed after the backend call.
// A zero duration completes the stage without waiting.
type PacingConfig struct {
	Integration      time.Duration `mapstructure:"integration"`
	Embedding        time.Duration `mapstructure:"embedding"`
	VectorStoreWrite time.Duration `mapstructure:"vector_store_write"`
}

// DefaultPacing returns the delays used by the console UI.
func DefaultPacing() PacingConfig {
	return PacingConfig{
		Integration:      1000 * time.Millisecond,
		Embedding:        1500 * time.Millisecond,
		VectorStoreWrite: 800 * time.Millisecond,
	}
}

// UploadConfig holds configuration for the upload orchestrator.
type UploadConfig struct {
	Slots    []domain.InputSlot
	Progress ProgressTable
	Pacing   PacingConfig
}

const subscriberBuffer = 64

// UploadOrchestrator owns the run state of the CSV upload workflow and drives
// it through the stage sequence around a single backend call.
//
// All state changes happen under mu and publish exactly one snapshot. mu is
// never held across the backend call or pacing delays; the Running phase is
// what keeps a second run from starting.
type UploadOrchestrator struct {
	mu        sync.Mutex
	state     *domain.RunState
	slots     []domain.InputSlot
	validator *Validator
	processor MetadataProcessor
	releaser  InputReleaser
	progress  ProgressTable
	pacing    PacingConfig
	subs      map[int]chan domain.RunState
	nextSub   int
	logger    *logger.Logger
}

// NewUploadOrchestrator creates an orchestrator in the Idle phase.
// Parameters:
//   - processor: backend client performing the metadata ingestion call.
//   - releaser: optional; frees staged files once they leave the run state.
//   - log: fallback logger when the context carries none.
//   - cfg: slots, progress table and pacing. Empty slots use the two-file profile,
//     an empty progress table uses DefaultProgressTable.
//
// Returns:
//   - *UploadOrchestrator: ready orchestrator.
//   - error: non-nil if the progress table is inconsistent with the stage registry.
func NewUploadOrchestrator(processor MetadataProcessor, releaser InputReleaser, log *logger.Logger, cfg *UploadConfig) (*UploadOrchestrator, error) {
	if cfg == nil {
		cfg = &UploadConfig{}
	}
	slots := cfg.Slots
	if len(slots) == 0 {
		slots = domain.SlotProfileTwoFile.Slots()
	}
	table := cfg.Progress
	if len(table) == 0 {
		table = DefaultProgressTable()
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid progress table: %w", err)
	}
	if log == nil {
		log = logger.GetDefault()
	}

	return &UploadOrchestrator{
		state:     domain.NewRunState(slots),
		slots:     append([]domain.InputSlot(nil), slots...),
		validator: NewValidator(slots),
		processor: processor,
		releaser:  releaser,
		progress:  table,
		pacing:    cfg.Pacing,
		subs:      make(map[int]chan domain.RunState),
		logger:    log,
	}, nil
}

func (o *UploadOrchestrator) log(ctx context.Context) *logger.Logger {
	if l, ok := logger.Lookup(ctx); ok {
		return l
	}
	return o.logger
}

// Slots returns the declared input slots.
func (o *UploadOrchestrator) Slots() []domain.InputSlot {
	return append([]domain.InputSlot(nil), o.slots...)
}

// Validator returns the pre-flight validator for the declared slots.
func (o *UploadOrchestrator) Validator() *Validator {
	return o.validator
}

// Snapshot returns a copy of the current run state.
func (o *UploadOrchestrator) Snapshot() domain.RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Clone()
}

// Subscribe returns a channel receiving a snapshot after every state change,
// starting with the current state. Delivery never blocks the orchestrator:
// a subscriber that falls more than the buffer behind misses snapshots.
// The returned function unsubscribes and closes the channel.
func (o *UploadOrchestrator) Subscribe() (<-chan domain.RunState, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextSub
	o.nextSub++
	ch := make(chan domain.RunState, subscriberBuffer)
	ch <- o.state.Clone()
	o.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			delete(o.subs, id)
			close(ch)
		})
	}
}

// publish must be called with mu held.
func (o *UploadOrchestrator) publish() {
	if len(o.subs) == 0 {
		return
	}
	snap := o.state.Clone()
	for _, ch := range o.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

// SelectTarget records the destination data source for the next run.
func (o *UploadOrchestrator) SelectTarget(ctx context.Context, target domain.TargetRef) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.Phase == domain.RunPhaseRunning {
		return ErrAlreadyRunning
	}
	o.state.SelectedTarget = &target
	o.publish()

	o.log(ctx).WithField(logger.FieldTarget, target.Key()).Info("Target selected")
	return nil
}

// SetInput places a file into a declared slot, replacing any previous file.
func (o *UploadOrchestrator) SetInput(ctx context.Context, slot domain.InputSlotID, handle domain.FileHandle) error {
	if handle == nil {
		return o.ClearInput(ctx, slot)
	}

	o.mu.Lock()
	if o.state.Phase == domain.RunPhaseRunning {
		o.mu.Unlock()
		return ErrAlreadyRunning
	}
	if _, ok := o.state.Inputs[slot]; !ok {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSlot, slot)
	}
	previous := o.state.Inputs[slot]
	o.state.Inputs[slot] = handle
	o.publish()
	o.mu.Unlock()

	o.log(ctx).WithFields(logger.Fields{
		logger.FieldSlot: slot,
		"file_name":      handle.Name(),
	}).Info("Input file set")

	if previous != nil && previous != handle {
		o.release(ctx, previous)
	}
	return nil
}

// ClearInput empties a declared slot.
func (o *UploadOrchestrator) ClearInput(ctx context.Context, slot domain.InputSlotID) error {
	o.mu.Lock()
	if o.state.Phase == domain.RunPhaseRunning {
		o.mu.Unlock()
		return ErrAlreadyRunning
	}
	previous, ok := o.state.Inputs[slot]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSlot, slot)
	}
	o.state.Inputs[slot] = nil
	o.publish()
	o.mu.Unlock()

	if previous != nil {
		o.release(ctx, previous)
	}
	return nil
}

// Reset returns a finished run to the Idle phase. The selected target and
// inputs are kept; every stage goes back to Pending and progress to 0.
// It returns ErrNotTerminal without touching the state unless the run
// Succeeded or Failed.
func (o *UploadOrchestrator) Reset(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.state.Phase.IsTerminal() {
		return ErrNotTerminal
	}

	fresh := domain.NewRunState(o.slots)
	fresh.SelectedTarget = o.state.SelectedTarget
	for id, h := range o.state.Inputs {
		fresh.Inputs[id] = h
	}
	o.state = fresh
	o.publish()

	o.log(ctx).Info("Upload run reset")
	return nil
}

// runRequest is what begin hands to execute once a run is admitted.
type runRequest struct {
	runID  string
	target domain.TargetRef
	inputs map[domain.InputSlotID]domain.FileHandle
}

// StartRun validates the request and, if admitted, drives the run to a terminal
// phase before returning. It returns ErrAlreadyRunning while another run is in
// flight, a *ValidationError when pre-flight checks fail, or a *StageFailure when
// the run ends Failed.
func (o *UploadOrchestrator) StartRun(ctx context.Context, target *domain.TargetRef, inputs map[domain.InputSlotID]domain.FileHandle) error {
	req, err := o.begin(ctx, target, inputs)
	if err != nil {
		return err
	}
	return o.execute(ctx, req)
}

// StartRunAsync admits a run like StartRun and then drives it in the background.
// Admission errors are returned directly. The channel receives the run's outcome
// (nil or a *StageFailure) and is then closed. The run outlives ctx cancellation.
func (o *UploadOrchestrator) StartRunAsync(ctx context.Context, target *domain.TargetRef, inputs map[domain.InputSlotID]domain.FileHandle) (<-chan error, error) {
	req, err := o.begin(ctx, target, inputs)
	if err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer close(done)
		done <- o.execute(runCtx, req)
	}()
	return done, nil
}

// StartSelected starts an asynchronous run with the currently selected target and inputs.
func (o *UploadOrchestrator) StartSelected(ctx context.Context) (<-chan error, error) {
	snap := o.Snapshot()
	return o.StartRunAsync(ctx, snap.SelectedTarget, snap.Inputs)
}

func (o *UploadOrchestrator) begin(ctx context.Context, target *domain.TargetRef, inputs map[domain.InputSlotID]domain.FileHandle) (*runRequest, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.Phase == domain.RunPhaseRunning {
		o.log(ctx).Warn("Rejected start request: run already in progress")
		return nil, ErrAlreadyRunning
	}

	var selected *domain.TargetRef
	if target != nil {
		t := *target
		selected = &t
	}
	recorded := domain.EmptyInputs(o.slots)
	for id := range recorded {
		recorded[id] = inputs[id]
	}

	if err := o.validator.CanStart(selected, recorded); err != nil {
		fresh := domain.NewRunState(o.slots)
		fresh.SelectedTarget = selected
		fresh.Inputs = recorded
		fresh.ResultMessage = err.Error()
		o.state = fresh
		o.publish()

		o.log(ctx).WithError(err).Warn("Upload run rejected by validation")
		return nil, err
	}

	now := time.Now()
	runID := uuid.New().String()
	o.state.RunID = runID
	o.state.SelectedTarget = selected
	o.state.Inputs = recorded
	o.state.ResetStages()
	o.state.Phase = domain.RunPhaseRunning
	o.state.ResultMessage = ""
	o.state.StartedAt = &now
	o.state.FinishedAt = nil
	o.publish()

	inputsCopy := make(map[domain.InputSlotID]domain.FileHandle, len(recorded))
	for id, h := range recorded {
		inputsCopy[id] = h
	}
	return &runRequest{runID: runID, target: *selected, inputs: inputsCopy}, nil
}

func (o *UploadOrchestrator) execute(ctx context.Context, req *runRequest) error {
	ctx = o.log(ctx).WithContext(ctx)
	ctx = logger.WithField(logger.SetRunID(ctx, req.runID), logger.FieldTarget, req.target.Key())
	start := time.Now()
	o.log(ctx).Info("Upload run started")

	o.enterStage(ctx, domain.StageValidation)
	o.completeStage(ctx, domain.StageValidation, fmt.Sprintf("%d input files ready", len(req.inputs)))

	o.enterStage(ctx, domain.StageSchemaLookup)
	result, err := o.processor.ProcessMetadata(ctx, req.target, req.inputs)
	if err == nil && (result == nil || !result.Success) {
		err = errors.New(failureText(result))
	}
	if err != nil {
		failure := o.fail(err)
		logger.With(logger.Fields{logger.FieldStage: failure.Stage}).
			WithElapsed(start).
			Error(ctx, "Upload run failed: %s", failure.Message)
		return failure
	}

	count := result.TablesProcessed
	o.completeStage(ctx, domain.StageSchemaLookup, fmt.Sprintf("Looked up schema for %d tables", count))

	o.enterStage(ctx, domain.StageIntegration)
	o.pace(o.pacing.Integration)
	o.completeStage(ctx, domain.StageIntegration, fmt.Sprintf("Integrated metadata for %d tables", count))

	o.enterStage(ctx, domain.StageEmbedding)
	o.pace(o.pacing.Embedding)
	o.completeStage(ctx, domain.StageEmbedding, fmt.Sprintf("Generated embeddings for %d tables", count))

	o.enterStage(ctx, domain.StageVectorStoreWrite)
	o.pace(o.pacing.VectorStoreWrite)
	o.completeStage(ctx, domain.StageVectorStoreWrite, "Embeddings written to the vector store")

	o.mu.Lock()
	now := time.Now()
	o.state.Phase = domain.RunPhaseSucceeded
	o.state.ResultMessage = fmt.Sprintf("Processed %d tables for %s", count, req.target.Key())
	o.state.Inputs = domain.EmptyInputs(o.slots)
	o.state.FinishedAt = &now
	o.publish()
	o.mu.Unlock()

	logger.With(logger.Fields{logger.FieldCount: count}).WithElapsed(start).Info(ctx, "Upload run succeeded")

	handles := make([]domain.FileHandle, 0, len(req.inputs))
	for _, h := range req.inputs {
		handles = append(handles, h)
	}
	o.release(ctx, handles...)
	return nil
}

// enterStage marks a stage InProgress and moves progress to its entry checkpoint.
func (o *UploadOrchestrator) enterStage(ctx context.Context, id domain.StageID) {
	o.mu.Lock()
	st := o.state.Stage(id)
	st.Status = domain.StageStatusInProgress
	st.Message = ""
	if w, ok := o.progress.Weight(id); ok {
		o.state.OverallProgress = w.Entry
	}
	progress := o.state.OverallProgress
	o.publish()
	o.mu.Unlock()

	logger.CtxDebug(logger.SetStage(ctx, string(id)), "Stage started: progress=%d", progress)
}

// completeStage marks a stage Completed and moves progress to its exit checkpoint.
func (o *UploadOrchestrator) completeStage(ctx context.Context, id domain.StageID, message string) {
	o.mu.Lock()
	st := o.state.Stage(id)
	st.Status = domain.StageStatusCompleted
	st.Message = message
	if w, ok := o.progress.Weight(id); ok {
		o.state.OverallProgress = w.Exit
	}
	progress := o.state.OverallProgress
	o.publish()
	o.mu.Unlock()

	logger.CtxDebug(logger.SetStage(ctx, string(id)), "Stage completed: progress=%d, message=%s", progress, message)
}

// fail marks the active stage Error and the run Failed. Progress and later stages are untouched.
func (o *UploadOrchestrator) fail(err error) *StageFailure {
	o.mu.Lock()
	defer o.mu.Unlock()

	msg := err.Error()
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		msg = backendErr.Message
	}

	stageID := domain.StageSchemaLookup
	if st := o.state.ActiveStage(); st != nil {
		stageID = st.ID
		st.Status = domain.StageStatusError
		st.Message = msg
	}

	now := time.Now()
	o.state.Phase = domain.RunPhaseFailed
	o.state.ResultMessage = msg
	o.state.FinishedAt = &now
	o.publish()

	return &StageFailure{Stage: stageID, Message: msg, Err: err}
}

func (o *UploadOrchestrator) pace(d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	<-timer.C
}

func (o *UploadOrchestrator) release(ctx context.Context, handles ...domain.FileHandle) {
	if o.releaser == nil || len(handles) == 0 {
		return
	}
	if err := o.releaser.Release(ctx, handles...); err != nil {
		o.log(ctx).WithError(err).Warn("Failed to release input files")
	}
}

func failureText(result *ProcessResult) string {
	if result != nil && result.Error != "" {
		return result.Error
	}
	return "processing failed"
}
