// Package pipeline sequences the stages of a run: extract, sessions,
// test, detect. Each stage persists its artifact before the next stage
// starts, so a failed or cancelled run leaves a resumable record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/speclens/speclens/services/artifact"
	"github.com/speclens/speclens/services/detect"
	"github.com/speclens/speclens/services/document"
	"github.com/speclens/speclens/services/llm"
	"github.com/speclens/speclens/services/runner"
	"github.com/speclens/speclens/services/session"
)

// StageError identifies which stage a fatal pipeline error came from.
type StageError struct {
	Stage artifact.Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// DetectionReport is the payload of the ambiguities artifact: findings
// per mode plus the three-way baseline/session comparison.
type DetectionReport struct {
	Baseline   []detect.Finding  `json:"baseline_findings"`
	Session    []detect.Finding  `json:"session_findings"`
	Comparison detect.Comparison `json:"comparison"`
}

// Summary is what a completed run hands back to the caller.
type Summary struct {
	RunID    string
	Sections int
	Report   DetectionReport
	Sessions []session.Record
}

// Coordinator wires the stage services together for one or more runs.
type Coordinator struct {
	backends []llm.Backend
	strategy detect.Strategy
	cache    *runner.Cache
	logger   *slog.Logger
}

// NewCoordinator builds a coordinator. cache and logger may be nil.
func NewCoordinator(backends []llm.Backend, strategy detect.Strategy, cache *runner.Cache, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{backends: backends, strategy: strategy, cache: cache, logger: logger}
}

// RunFull executes every stage against the document at docPath, writing
// each stage's artifact into store's run directory as it completes.
//
// Any stage failure returns a StageError naming the stage; artifacts of
// completed stages stay on disk. Cancellation mid-test persists the
// responses collected so far with the incomplete marker set, tears down
// sessions, and returns the cancellation as a test-stage error.
func (c *Coordinator) RunFull(ctx context.Context, docPath string, store *artifact.Store) (*Summary, error) {
	runID := uuid.NewString()
	c.logger.Info("pipeline run starting", "run_id", runID, "document", docPath, "dir", store.Dir())

	content, err := os.ReadFile(docPath)
	if err != nil {
		return nil, &StageError{Stage: artifact.StageSections, Err: err}
	}

	sections, err := c.extract(ctx, runID, string(content), store)
	if err != nil {
		return nil, err
	}

	mgr, err := c.initSessions(ctx, runID, string(content), store)
	if err != nil {
		return nil, err
	}
	defer mgr.Teardown(context.WithoutCancel(ctx))

	responses, err := c.test(ctx, runID, mgr, sections, store)
	if err != nil {
		return nil, err
	}

	report, err := c.detect(ctx, runID, responses, store)
	if err != nil {
		return nil, err
	}

	c.logger.Info("pipeline run complete", "run_id", runID,
		"sections", len(sections),
		"persisted", len(report.Comparison.Persisted),
		"new", len(report.Comparison.New))

	return &Summary{
		RunID:    runID,
		Sections: len(sections),
		Report:   *report,
		Sessions: mgr.Records(),
	}, nil
}

// Extract runs the section stage alone and persists its artifact.
func (c *Coordinator) Extract(ctx context.Context, docPath string, store *artifact.Store) ([]document.Section, error) {
	content, err := os.ReadFile(docPath)
	if err != nil {
		return nil, &StageError{Stage: artifact.StageSections, Err: err}
	}
	return c.extract(ctx, uuid.NewString(), string(content), store)
}

func (c *Coordinator) extract(ctx context.Context, runID, content string, store *artifact.Store) ([]document.Section, error) {
	proc := document.NewProcessor(c.logger)
	sections, err := proc.Extract(content)
	if err != nil {
		return nil, &StageError{Stage: artifact.StageSections, Err: err}
	}
	if _, err := store.Write(ctx, artifact.StageSections, runID, false, sections); err != nil {
		return nil, &StageError{Stage: artifact.StageSections, Err: err}
	}
	return sections, nil
}

func (c *Coordinator) initSessions(ctx context.Context, runID, content string, store *artifact.Store) (*session.Manager, error) {
	mgr := session.NewManager(c.backends, c.logger)
	if err := mgr.CreateAll(ctx, runner.SessionSeed(content)); err != nil {
		// Only cancellation reaches here; individual failures degrade.
		_, _ = store.Write(context.WithoutCancel(ctx), artifact.StageSessionMetadata, runID, true, mgr.Records())
		return nil, &StageError{Stage: artifact.StageSessionMetadata, Err: err}
	}
	if _, err := store.Write(ctx, artifact.StageSessionMetadata, runID, false, mgr.Records()); err != nil {
		return nil, &StageError{Stage: artifact.StageSessionMetadata, Err: err}
	}
	return mgr, nil
}

func (c *Coordinator) test(ctx context.Context, runID string, mgr *session.Manager, sections []document.Section, store *artifact.Store) ([]runner.ModelResponse, error) {
	r := runner.NewRunner(c.backends, c.cache, c.logger)

	responses := r.RunBaseline(ctx, sections)
	responses = append(responses, r.RunSession(ctx, mgr, sections)...)

	if err := ctx.Err(); err != nil {
		// Persist what we have; resumers must see it marked partial.
		if _, werr := store.Write(context.WithoutCancel(ctx), artifact.StageTestResults, runID, true, responses); werr != nil {
			c.logger.Error("failed to persist partial test results", "error", werr)
		}
		c.refreshSessionMetadata(context.WithoutCancel(ctx), runID, mgr, store)
		return nil, &StageError{Stage: artifact.StageTestResults, Err: err}
	}

	if _, err := store.Write(ctx, artifact.StageTestResults, runID, false, responses); err != nil {
		return nil, &StageError{Stage: artifact.StageTestResults, Err: err}
	}
	c.refreshSessionMetadata(ctx, runID, mgr, store)
	return responses, nil
}

// refreshSessionMetadata re-persists the session records after the test
// stage so mid-run degradations reach the artifact, not just the
// in-memory summary.
func (c *Coordinator) refreshSessionMetadata(ctx context.Context, runID string, mgr *session.Manager, store *artifact.Store) {
	if _, err := store.Write(ctx, artifact.StageSessionMetadata, runID, false, mgr.Records()); err != nil {
		c.logger.Error("failed to refresh session metadata", "error", err)
	}
}

func (c *Coordinator) detect(ctx context.Context, runID string, responses []runner.ModelResponse, store *artifact.Store) (*DetectionReport, error) {
	det := detect.NewDetector(c.strategy, c.logger)

	var baseline, sessionResp []runner.ModelResponse
	for _, resp := range responses {
		switch resp.Mode {
		case runner.ModeBaseline:
			baseline = append(baseline, resp)
		case runner.ModeSession:
			sessionResp = append(sessionResp, resp)
		}
	}

	baseFindings, err := det.Detect(ctx, baseline)
	if err != nil {
		return nil, &StageError{Stage: artifact.StageAmbiguities, Err: err}
	}
	sessFindings, err := det.Detect(ctx, sessionResp)
	if err != nil {
		return nil, &StageError{Stage: artifact.StageAmbiguities, Err: err}
	}

	report := &DetectionReport{
		Baseline:   baseFindings,
		Session:    sessFindings,
		Comparison: detect.Compare(baseFindings, sessFindings),
	}
	if _, err := store.Write(ctx, artifact.StageAmbiguities, runID, false, report); err != nil {
		return nil, &StageError{Stage: artifact.StageAmbiguities, Err: err}
	}
	return report, nil
}

// RunFrom resumes a run from a persisted artifact.
//
// stage names the artifact to resume FROM: sections re-runs sessions,
// test, and detect; test_results re-runs detection only. The artifact's
// envelope is validated first; stage or schema-version drift surfaces
// immediately and is never coerced.
func (c *Coordinator) RunFrom(ctx context.Context, stage artifact.Stage, store *artifact.Store) (*Summary, error) {
	switch stage {
	case artifact.StageSections:
		return c.resumeFromSections(ctx, store)
	case artifact.StageTestResults:
		return c.resumeFromResults(ctx, store)
	default:
		return nil, fmt.Errorf("cannot resume from stage %q", stage)
	}
}

func (c *Coordinator) resumeFromSections(ctx context.Context, store *artifact.Store) (*Summary, error) {
	var sections []document.Section
	env, err := store.Read(artifact.StageSections, &sections)
	if err != nil {
		return nil, &StageError{Stage: artifact.StageSections, Err: err}
	}
	if env.Incomplete {
		return nil, &StageError{Stage: artifact.StageSections,
			Err: errors.New("sections artifact is marked incomplete")}
	}
	runID := env.RunID

	// The session seed is rebuilt from the extracted sections; the raw
	// document is not part of the artifact set.
	var doc strings.Builder
	for _, sec := range sections {
		doc.WriteString(sec.RawText)
		doc.WriteString("\n\n")
	}

	mgr, err := c.initSessions(ctx, runID, doc.String(), store)
	if err != nil {
		return nil, err
	}
	defer mgr.Teardown(context.WithoutCancel(ctx))

	responses, err := c.test(ctx, runID, mgr, sections, store)
	if err != nil {
		return nil, err
	}
	report, err := c.detect(ctx, runID, responses, store)
	if err != nil {
		return nil, err
	}
	return &Summary{RunID: runID, Sections: len(sections), Report: *report, Sessions: mgr.Records()}, nil
}

func (c *Coordinator) resumeFromResults(ctx context.Context, store *artifact.Store) (*Summary, error) {
	var responses []runner.ModelResponse
	env, err := store.Read(artifact.StageTestResults, &responses)
	if err != nil {
		return nil, &StageError{Stage: artifact.StageTestResults, Err: err}
	}
	if env.Incomplete {
		c.logger.Warn("resuming from partial test results; findings cover the recorded responses only",
			"run_id", env.RunID)
	}

	report, err := c.detect(ctx, env.RunID, responses, store)
	if err != nil {
		return nil, err
	}

	summary := &Summary{RunID: env.RunID, Report: *report}
	if sections, serr := c.readSectionCount(store); serr == nil {
		summary.Sections = sections
	}
	return summary, nil
}

func (c *Coordinator) readSectionCount(store *artifact.Store) (int, error) {
	var sections []document.Section
	if _, err := store.Read(artifact.StageSections, &sections); err != nil {
		return 0, err
	}
	return len(sections), nil
}
