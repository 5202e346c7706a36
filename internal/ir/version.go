package ir

// Version constants for snapshots and the engine.
const (
	// SnapshotVersion is the snapshot schema version.
	SnapshotVersion = "1"

	// EngineVersion is the arbiter engine version.
	EngineVersion = "0.1.0"
)
