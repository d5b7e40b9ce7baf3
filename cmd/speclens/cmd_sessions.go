package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/speclens/speclens/services/artifact"
	"github.com/speclens/speclens/services/session"
)

func runSessions(cmd *cobra.Command, args []string) error {
	sections, env, err := loadSections(sectionsDir)
	if err != nil {
		return err
	}

	backends, err := buildBackends()
	if err != nil {
		return err
	}

	mgr := session.NewManager(backends, logger.Logger)
	if err := mgr.CreateAll(cmd.Context(), sessionSeedFromSections(sections)); err != nil {
		return fmt.Errorf("stage session_metadata failed: %w", err)
	}
	defer mgr.Teardown(cmd.Context())

	records := mgr.Records()
	store := artifact.NewStore(outDir)
	path, err := store.Write(cmd.Context(), artifact.StageSessionMetadata, env.RunID, false, records)
	if err != nil {
		return fmt.Errorf("stage session_metadata failed: %w", err)
	}

	for _, rec := range records {
		if rec.State.Degraded() {
			fmt.Printf("WARNING: model %s will run without a session (%s)\n", rec.ModelID, rec.Err)
		}
	}
	fmt.Printf("Session metadata for %d models -> %s\n", len(records), path)
	return nil
}
