package logger

// Fields is a set of structured log fields.
type Fields map[string]interface{}

// Tracing fields, propagated through the context.
const (
	FieldRequestID = "request_id"
	FieldRunID     = "run_id"
	FieldComponent = "component"
	FieldTarget    = "target" // "<sourceId>:<namespace>"
	FieldStage     = "stage"
	FieldSlot      = "slot"
)

// Metric fields, set per log line through Entry.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldSize       = "size"
	FieldStatus     = "status"
)
