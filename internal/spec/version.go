package spec

// Version constants for the specification schema and engine.
const (
	// SpecVersion is the model-specification schema version.
	SpecVersion = "1"

	// EngineVersion is the semfit engine version. Fitted results record
	// it so a report always states which estimator produced its numbers.
	EngineVersion = "0.1.0"
)
