package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/speclens/speclens/services/artifact"
	"github.com/speclens/speclens/services/pipeline"
	"github.com/speclens/speclens/services/report"
	"github.com/speclens/speclens/services/session"
)

func runReport(cmd *cobra.Command, args []string) error {
	store := artifact.NewStore(runDir)

	var rep pipeline.DetectionReport
	env, err := store.Read(artifact.StageAmbiguities, &rep)
	if err != nil {
		return fmt.Errorf("loading findings from %s: %w", runDir, err)
	}

	// Session metadata is optional; a detect-only run directory may not
	// carry it.
	var sessions []session.Record
	if store.Exists(artifact.StageSessionMetadata) {
		if _, err := store.Read(artifact.StageSessionMetadata, &sessions); err != nil {
			return fmt.Errorf("loading session metadata from %s: %w", runDir, err)
		}
	}

	md := report.Render(env.RunID, rep, sessions, time.Now())

	if outFile == "" || outFile == "-" {
		fmt.Print(md)
		return nil
	}
	if err := os.WriteFile(outFile, []byte(md), 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	fmt.Printf("Report -> %s\n", outFile)
	return nil
}
