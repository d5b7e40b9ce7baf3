// Package artifact persists the per-run record set: sections, test
// results, ambiguity findings, and session metadata.
//
// The four artifacts are logically independent JSON files inside one run
// directory. Every file is wrapped in an Envelope carrying its stage,
// schema version, and an incomplete marker, so any stage of the pipeline
// can validate and reload its input without touching earlier in-memory
// state. Artifacts are append-only at the run level: re-running a stage
// writes into a new run directory, never mutates an old file.
package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Store reads and writes the artifact set for a single run directory.
//
// # Thread Safety
//
// Store is safe for concurrent reads. Writes are single-writer per stage
// by design: concurrent runs must not share a run directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir. The directory is created on the
// first write, not here.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the run directory this store operates on.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the on-disk path for a stage's artifact file.
func (s *Store) Path(stage Stage) string {
	return filepath.Join(s.dir, fileNames[stage])
}

// Exists reports whether the stage's artifact file is present.
func (s *Store) Exists(stage Stage) bool {
	if !stage.Valid() {
		return false
	}
	_, err := os.Stat(s.Path(stage))
	return err == nil
}

// Write atomically persists one stage artifact.
//
// # Description
//
// Marshals items into an Envelope and writes it with the temp-file-swap
// pattern: write to {name}.tmp.{nanos} in the run directory, then rename
// over the final path. Rename is atomic on a single filesystem, so a
// reader never observes a partially written artifact.
//
// # Inputs
//
//   - ctx: checked for cancellation before the swap.
//   - stage: which artifact to write. Must be a known stage.
//   - runID: the owning run's identifier.
//   - incomplete: true when the stage was interrupted and the items are
//     a partial record. Partial artifacts are legal and must be
//     distinguishable from complete ones.
//   - items: stage payload; must be JSON-marshalable.
//
// # Outputs
//
//   - string: final artifact path.
//   - error: non-nil on marshal or I/O failure.
func (s *Store) Write(ctx context.Context, stage Stage, runID string, incomplete bool, items any) (string, error) {
	if !stage.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("marshaling %s items: %w", stage, err)
	}

	env := Envelope{
		SchemaVersion: schemaVersions[stage],
		Stage:         stage,
		RunID:         runID,
		CreatedAt:     time.Now().UTC(),
		Incomplete:    incomplete,
		Items:         raw,
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling %s envelope: %w", stage, err)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("creating run directory: %w", err)
	}

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("write %s cancelled: %w", stage, ctx.Err())
	default:
	}

	final := s.Path(stage)
	tmp := fmt.Sprintf("%s.tmp.%d", final, time.Now().UnixNano())
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", stage, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("swapping %s into place: %w", stage, err)
	}

	return final, nil
}

// Read loads and validates one stage artifact, decoding its items into out.
//
// # Description
//
// Validates that the file parses, that its recorded stage matches the
// requested stage, and that its schema version matches the version this
// binary writes. Any mismatch is surfaced immediately; a resume across
// drifted schemas is never attempted.
//
// # Inputs
//
//   - stage: which artifact to read.
//   - out: pointer the items payload is decoded into. May be nil to
//     validate the envelope only.
//
// # Outputs
//
//   - *Envelope: the validated envelope (Incomplete flag, run ID).
//   - error: ErrNotFound, ErrCorrupted, ErrStageMismatch, or
//     ErrVersionMismatch as appropriate.
func (s *Store) Read(stage Stage, out any) (*Envelope, error) {
	if !stage.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}

	path := s.Path(stage)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrCorrupted, path, err)
	}

	if env.Stage != stage {
		return nil, fmt.Errorf("%w: %s holds %q, want %q", ErrStageMismatch, path, env.Stage, stage)
	}
	if env.SchemaVersion != schemaVersions[stage] {
		return nil, fmt.Errorf("%w: %s has %q, want %q",
			ErrVersionMismatch, path, env.SchemaVersion, schemaVersions[stage])
	}

	if out != nil {
		if err := json.Unmarshal(env.Items, out); err != nil {
			return nil, fmt.Errorf("%w: decoding %s items: %v", ErrCorrupted, path, err)
		}
	}

	return &env, nil
}
