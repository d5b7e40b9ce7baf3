package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speclens/speclens/services/artifact"
	"github.com/speclens/speclens/services/detect"
	"github.com/speclens/speclens/services/llm"
	"github.com/speclens/speclens/services/runner"
	"github.com/speclens/speclens/services/session"
)

const testDoc = `# Install the service

You must download the package and then install it on the host.

# Configure storage

You should create the data directory and then start the service.
`

// pipelineBackend answers every query with a per-model canned
// interpretation, optionally after a delay or refusing session-bound
// queries.
type pipelineBackend struct {
	name        string
	interp      string
	delay       time.Duration
	failInState bool // session-bound queries error
}

func (p *pipelineBackend) Name() string { return p.name }

func (p *pipelineBackend) CreateSession(_ context.Context, _ string) (string, error) {
	return p.name + "-h", nil
}

func (p *pipelineBackend) Query(ctx context.Context, sessionID, _ string) (*llm.QueryResult, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.failInState && sessionID != "" {
		return nil, errors.New("session gone")
	}
	return &llm.QueryResult{Text: p.interp}, nil
}

func (p *pipelineBackend) CloseSession(_ context.Context, _ string) error { return nil }

func interpJSON(text string, steps ...string) string {
	quoted := make([]string, len(steps))
	for i, s := range steps {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf(`{"interpretation": %q, "steps": [%s]}`, text, strings.Join(quoted, ", "))
}

func writeDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte(testDoc), 0644))
	return path
}

func TestRunFull_WritesAllArtifacts(t *testing.T) {
	agree := interpJSON("Download the package and install it", "download package", "install package")
	backends := []llm.Backend{
		&pipelineBackend{name: "alpha", interp: agree},
		&pipelineBackend{name: "beta", interp: agree},
	}
	store := artifact.NewStore(t.TempDir())
	c := NewCoordinator(backends, detect.KeywordStrategy{}, nil, nil)

	summary, err := c.RunFull(context.Background(), writeDoc(t), store)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Sections)
	assert.NotEmpty(t, summary.RunID)
	require.Len(t, summary.Sessions, 2)

	for _, stage := range []artifact.Stage{
		artifact.StageSections,
		artifact.StageSessionMetadata,
		artifact.StageTestResults,
		artifact.StageAmbiguities,
	} {
		assert.True(t, store.Exists(stage), string(stage))
		env, err := store.Read(stage, nil)
		require.NoError(t, err)
		assert.Equal(t, summary.RunID, env.RunID)
		assert.False(t, env.Incomplete)
	}

	var responses []runner.ModelResponse
	_, err = store.Read(artifact.StageTestResults, &responses)
	require.NoError(t, err)
	// 2 models x 2 sections x 2 modes.
	assert.Len(t, responses, 8)
}

func TestRunFull_DivergenceSurfacesInReport(t *testing.T) {
	backends := []llm.Backend{
		&pipelineBackend{name: "alpha", interp: interpJSON(
			"Download the vendor package and install it locally",
			"download package", "install package", "verify checksum")},
		&pipelineBackend{name: "beta", interp: interpJSON(
			"Clone the repository and compile everything from source",
			"clone repository", "compile")},
	}
	store := artifact.NewStore(t.TempDir())
	c := NewCoordinator(backends, detect.KeywordStrategy{}, nil, nil)

	summary, err := c.RunFull(context.Background(), writeDoc(t), store)
	require.NoError(t, err)

	assert.NotEmpty(t, summary.Report.Baseline)
	assert.NotEmpty(t, summary.Report.Session)
	assert.NotEmpty(t, summary.Report.Comparison.Persisted)
}

func TestRunFull_MidRunDegradationReachesMetadataArtifact(t *testing.T) {
	agree := interpJSON("Install it", "install")
	backends := []llm.Backend{
		&pipelineBackend{name: "alpha", interp: agree},
		&pipelineBackend{name: "beta", interp: agree, failInState: true},
	}
	store := artifact.NewStore(t.TempDir())
	c := NewCoordinator(backends, detect.KeywordStrategy{}, nil, nil)

	summary, err := c.RunFull(context.Background(), writeDoc(t), store)
	require.NoError(t, err)

	var records []session.Record
	_, err = store.Read(artifact.StageSessionMetadata, &records)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, session.StateActive, records[0].State)
	assert.Equal(t, session.StateStatelessFallback, records[1].State,
		"the persisted artifact must reflect the mid-run degradation")
	assert.Equal(t, summary.Sessions[1].State, records[1].State)
}

func TestRunFull_ExtractionFailureIsSectionsStage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("no headings at all\n"), 0644))

	store := artifact.NewStore(t.TempDir())
	c := NewCoordinator(nil, detect.KeywordStrategy{}, nil, nil)

	_, err := c.RunFull(context.Background(), path, store)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, artifact.StageSections, stageErr.Stage)
}

// judgeDown fails every comparison.
type judgeDown struct{}

func (judgeDown) Name() string { return "judge" }
func (judgeDown) Compare(context.Context, string, map[string]llm.Interpretation) (detect.Result, error) {
	return detect.Result{}, errors.New("judge offline")
}

func TestRunFull_DetectFailureKeepsEarlierArtifacts(t *testing.T) {
	agree := interpJSON("Install it", "install")
	backends := []llm.Backend{
		&pipelineBackend{name: "alpha", interp: agree},
		&pipelineBackend{name: "beta", interp: agree},
	}
	store := artifact.NewStore(t.TempDir())
	c := NewCoordinator(backends, judgeDown{}, nil, nil)

	_, err := c.RunFull(context.Background(), writeDoc(t), store)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, artifact.StageAmbiguities, stageErr.Stage)

	var judgeErr *detect.JudgeError
	assert.ErrorAs(t, err, &judgeErr)

	assert.True(t, store.Exists(artifact.StageSections))
	assert.True(t, store.Exists(artifact.StageTestResults))
	assert.False(t, store.Exists(artifact.StageAmbiguities))
}

func TestRunFull_CancellationPersistsPartialResults(t *testing.T) {
	backends := []llm.Backend{
		&pipelineBackend{name: "alpha", interp: interpJSON("Install it", "install"), delay: time.Hour},
	}
	store := artifact.NewStore(t.TempDir())
	c := NewCoordinator(backends, detect.KeywordStrategy{}, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := c.RunFull(ctx, writeDoc(t), store)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, artifact.StageTestResults, stageErr.Stage)

	env, rerr := store.Read(artifact.StageTestResults, nil)
	require.NoError(t, rerr)
	assert.True(t, env.Incomplete, "interrupted stage must be marked partial")
}

func TestRunFrom_TestResults_RedetectsOnly(t *testing.T) {
	store := artifact.NewStore(t.TempDir())
	responses := []runner.ModelResponse{
		{ModelID: "alpha", SectionID: "section_0", Mode: runner.ModeSession,
			Text: interpJSON("Install the package", "download", "install")},
		{ModelID: "beta", SectionID: "section_0", Mode: runner.ModeSession,
			Text: interpJSON("Compile from source in a clean build tree", "clone", "configure", "compile", "link")},
	}
	_, err := store.Write(context.Background(), artifact.StageTestResults, "run-1", false, responses)
	require.NoError(t, err)

	c := NewCoordinator(nil, detect.KeywordStrategy{}, nil, nil)
	summary, err := c.RunFrom(context.Background(), artifact.StageTestResults, store)
	require.NoError(t, err)

	assert.Equal(t, "run-1", summary.RunID)
	assert.NotEmpty(t, summary.Report.Session)
	assert.True(t, store.Exists(artifact.StageAmbiguities))
}

func TestRunFrom_StageMismatchIsNeverCoerced(t *testing.T) {
	dir := t.TempDir()
	store := artifact.NewStore(dir)

	// A test_results artifact sitting where sections.json should be.
	_, err := store.Write(context.Background(), artifact.StageTestResults, "run-1", false, []runner.ModelResponse{})
	require.NoError(t, err)
	require.NoError(t, os.Rename(store.Path(artifact.StageTestResults), store.Path(artifact.StageSections)))

	c := NewCoordinator(nil, detect.KeywordStrategy{}, nil, nil)
	_, err = c.RunFrom(context.Background(), artifact.StageSections, store)
	assert.ErrorIs(t, err, artifact.ErrStageMismatch)
}

func TestRunFrom_MissingArtifact(t *testing.T) {
	store := artifact.NewStore(t.TempDir())
	c := NewCoordinator(nil, detect.KeywordStrategy{}, nil, nil)

	_, err := c.RunFrom(context.Background(), artifact.StageTestResults, store)
	assert.ErrorIs(t, err, artifact.ErrNotFound)
}

func TestRunFrom_UnresumableStage(t *testing.T) {
	store := artifact.NewStore(t.TempDir())
	c := NewCoordinator(nil, detect.KeywordStrategy{}, nil, nil)

	_, err := c.RunFrom(context.Background(), artifact.StageAmbiguities, store)
	assert.Error(t, err)
}
