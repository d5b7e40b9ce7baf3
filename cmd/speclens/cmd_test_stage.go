package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/speclens/speclens/services/artifact"
	"github.com/speclens/speclens/services/runner"
	"github.com/speclens/speclens/services/session"
)

func runTest(cmd *cobra.Command, args []string) error {
	if testMode != "baseline" && testMode != "session" && testMode != "both" {
		return fmt.Errorf("invalid --mode %q (want baseline, session, or both)", testMode)
	}

	sections, env, err := loadSections(sectionsDir)
	if err != nil {
		return err
	}
	backends, err := buildBackends()
	if err != nil {
		return err
	}
	cache, err := openCache()
	if err != nil {
		return err
	}
	defer cache.Close()

	ctx := cmd.Context()
	r := runner.NewRunner(backends, cache, logger.Logger)
	store := artifact.NewStore(outDir)

	var responses []runner.ModelResponse
	if testMode == "baseline" || testMode == "both" {
		responses = append(responses, r.RunBaseline(ctx, sections)...)
	}

	if testMode == "session" || testMode == "both" {
		// Sessions are held in-process by the adapters, so the session
		// pass opens its own and records their metadata alongside the
		// results.
		mgr := session.NewManager(backends, logger.Logger)
		if err := mgr.CreateAll(ctx, sessionSeedFromSections(sections)); err != nil {
			return fmt.Errorf("stage test_results failed: %w", err)
		}
		defer mgr.Teardown(ctx)

		responses = append(responses, r.RunSession(ctx, mgr, sections)...)

		if _, err := store.Write(ctx, artifact.StageSessionMetadata, env.RunID, false, mgr.Records()); err != nil {
			return fmt.Errorf("stage session_metadata failed: %w", err)
		}
	}

	incomplete := ctx.Err() != nil
	path, err := store.Write(context.WithoutCancel(ctx), artifact.StageTestResults, env.RunID, incomplete, responses)
	if err != nil {
		return fmt.Errorf("stage test_results failed: %w", err)
	}

	failed := 0
	for _, resp := range responses {
		if resp.Failed() {
			failed++
		}
	}
	fmt.Printf("Recorded %d responses (%d failed) -> %s\n", len(responses), failed, path)
	if incomplete {
		return fmt.Errorf("stage test_results failed: interrupted; partial artifact written")
	}
	return nil
}
