package ir

// Version constants carried in persisted payloads.
const (
	// SnapshotSchemaVersion is written into every snapshot payload so that
	// readers can detect and migrate older formats.
	SnapshotSchemaVersion = 1

	// AppVersion is the dealbook release version.
	AppVersion = "0.1.0"
)
