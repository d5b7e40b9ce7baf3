package artifact

import (
	"encoding/json"
	"time"
)

// Stage names the pipeline stage an artifact belongs to. Each stage owns
// exactly one artifact file per run.
type Stage string

const (
	StageSections        Stage = "sections"
	StageTestResults     Stage = "test_results"
	StageAmbiguities     Stage = "ambiguities"
	StageSessionMetadata Stage = "session_metadata"
)

// schemaVersions tracks the current schema version per stage. Versions are
// independent so a schema change in one artifact does not invalidate the
// others.
var schemaVersions = map[Stage]string{
	StageSections:        "1.0",
	StageTestResults:     "1.0",
	StageAmbiguities:     "1.0",
	StageSessionMetadata: "1.0",
}

// fileNames maps each stage to its on-disk file name within a run directory.
var fileNames = map[Stage]string{
	StageSections:        "sections.json",
	StageTestResults:     "test_results.json",
	StageAmbiguities:     "ambiguities.json",
	StageSessionMetadata: "session_metadata.json",
}

// Valid reports whether s names a known stage.
func (s Stage) Valid() bool {
	_, ok := schemaVersions[s]
	return ok
}

// Envelope wraps a persisted artifact. Items is kept raw so the envelope
// can be validated (stage, schema version) before the payload is decoded
// into a stage-specific type.
type Envelope struct {
	SchemaVersion string          `json:"schema_version"`
	Stage         Stage           `json:"stage"`
	RunID         string          `json:"run_id"`
	CreatedAt     time.Time       `json:"created_at"`
	Incomplete    bool            `json:"incomplete"`
	Items         json.RawMessage `json:"items"`
}
