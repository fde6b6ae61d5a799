package ir

// Version constants for the truth model schema and engine.
const (
	// ModelVersion is the truth model schema version.
	ModelVersion = "1"

	// EngineVersion is the truthgraph engine version.
	EngineVersion = "0.1.0"
)
