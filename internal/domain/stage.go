package domain

// StageID identifies a pipeline stage.
type StageID string

const (
	StageValidation       StageID = "validation"
	StageSchemaLookup     StageID = "schema-lookup"
	StageIntegration      StageID = "integration"
	StageEmbedding        StageID = "embedding"
	StageVectorStoreWrite StageID = "vector-store-write"
)

// StageStatus represents the status of a single stage within a run.
// Values include StageStatusPending, StageStatusInProgress, StageStatusCompleted, and StageStatusError.
type StageStatus string

const (
	StageStatusPending    StageStatus = "pending"
	StageStatusInProgress StageStatus = "in_progress"
	StageStatusCompleted  StageStatus = "completed"
	StageStatusError      StageStatus = "error"
)

// StageDefinition is the immutable description of one pipeline stage.
type StageDefinition struct {
	ID    StageID `json:"id"`
	Label string  `json:"label"`
	Order int     `json:"order"`
}

var stageRegistry = [...]StageDefinition{
	{ID: StageValidation, Label: "Validate CSV files", Order: 0},
	{ID: StageSchemaLookup, Label: "Look up DB schema", Order: 1},
	{ID: StageIntegration, Label: "Integrate metadata", Order: 2},
	{ID: StageEmbedding, Label: "Generate embeddings", Order: 3},
	{ID: StageVectorStoreWrite, Label: "Write to vector DB", Order: 4},
}

// Stages returns the ordered pipeline definition.
// The returned slice is a copy; callers may modify it freely.
func Stages() []StageDefinition {
	out := make([]StageDefinition, len(stageRegistry))
	copy(out, stageRegistry[:])
	return out
}

// LookupStage returns the definition registered for id.
func LookupStage(id StageID) (StageDefinition, bool) {
	for _, def := range stageRegistry {
		if def.ID == id {
			return def, true
		}
	}
	return StageDefinition{}, false
}
