package ir

// Version constants recorded with exported runs.
const (
	// FormatVersion is the row encoding version.
	FormatVersion = "1"

	// EngineVersion is the flowlog engine version.
	EngineVersion = "0.1.0"
)
