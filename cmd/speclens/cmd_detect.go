package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/speclens/speclens/services/artifact"
	"github.com/speclens/speclens/services/detect"
	"github.com/speclens/speclens/services/pipeline"
	"github.com/speclens/speclens/services/runner"
)

func runDetect(cmd *cobra.Command, args []string) error {
	var responses []runner.ModelResponse
	resultsStore := artifact.NewStore(resultsDir)
	env, err := resultsStore.Read(artifact.StageTestResults, &responses)
	if err != nil {
		return fmt.Errorf("loading test results from %s: %w", resultsDir, err)
	}
	if env.Incomplete {
		logger.Warn("test results are partial; findings cover the recorded responses only",
			"run_id", env.RunID)
	}

	baseline, sessionResponses := splitModes(responses)

	// With --baseline, the isolated-reading responses come from a
	// separate earlier run instead of this artifact.
	if baselineDir != "" {
		var baseResponses []runner.ModelResponse
		if _, err := artifact.NewStore(baselineDir).Read(artifact.StageTestResults, &baseResponses); err != nil {
			return fmt.Errorf("loading baseline results from %s: %w", baselineDir, err)
		}
		baseline, _ = splitModes(baseResponses)
	}

	strategy, err := buildStrategy(strategyName)
	if err != nil {
		return err
	}
	det := detect.NewDetector(strategy, logger.Logger)

	ctx := cmd.Context()
	baseFindings, err := det.Detect(ctx, baseline)
	if err != nil {
		return fmt.Errorf("stage ambiguities failed: %w", err)
	}
	sessFindings, err := det.Detect(ctx, sessionResponses)
	if err != nil {
		return fmt.Errorf("stage ambiguities failed: %w", err)
	}

	report := pipeline.DetectionReport{
		Baseline:   baseFindings,
		Session:    sessFindings,
		Comparison: detect.Compare(baseFindings, sessFindings),
	}

	path, err := artifact.NewStore(outDir).Write(ctx, artifact.StageAmbiguities, env.RunID, false, report)
	if err != nil {
		return fmt.Errorf("stage ambiguities failed: %w", err)
	}

	fmt.Printf("Findings: %d persisted, %d new, %d resolved -> %s\n",
		len(report.Comparison.Persisted), len(report.Comparison.New),
		len(report.Comparison.Resolved), path)
	return nil
}

func splitModes(responses []runner.ModelResponse) (baseline, session []runner.ModelResponse) {
	for _, resp := range responses {
		switch resp.Mode {
		case runner.ModeBaseline:
			baseline = append(baseline, resp)
		case runner.ModeSession:
			session = append(session, resp)
		}
	}
	return baseline, session
}
