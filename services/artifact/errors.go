package artifact

import "errors"

var (
	// ErrCorrupted indicates an artifact file exists but cannot be parsed.
	ErrCorrupted = errors.New("artifact corrupted")

	// ErrStageMismatch indicates an artifact belongs to a different stage
	// than the one requested. Resume requests must fail on this rather
	// than coerce.
	ErrStageMismatch = errors.New("artifact stage mismatch")

	// ErrVersionMismatch indicates the artifact's schema version differs
	// from the version this binary writes. Best-effort resumes across
	// schema drift are never attempted.
	ErrVersionMismatch = errors.New("artifact schema version mismatch")

	// ErrNotFound indicates the requested artifact file does not exist.
	ErrNotFound = errors.New("artifact not found")

	// ErrUnknownStage indicates a stage name outside the known set.
	ErrUnknownStage = errors.New("unknown artifact stage")
)
