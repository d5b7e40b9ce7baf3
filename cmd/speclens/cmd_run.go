package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/speclens/speclens/services/artifact"
	"github.com/speclens/speclens/services/pipeline"
	"github.com/speclens/speclens/services/report"
)

func runFull(cmd *cobra.Command, args []string) error {
	backends, err := buildBackends()
	if err != nil {
		return err
	}
	strategy, err := buildStrategy(strategyName)
	if err != nil {
		return err
	}
	cache, err := openCache()
	if err != nil {
		return err
	}
	defer cache.Close()

	coord := pipeline.NewCoordinator(backends, strategy, cache, logger.Logger)
	store := artifact.NewStore(outDir)

	var summary *pipeline.Summary
	switch {
	case resumeFrom != "":
		summary, err = coord.RunFrom(cmd.Context(), artifact.Stage(resumeFrom), store)
	case len(args) == 1:
		summary, err = coord.RunFull(cmd.Context(), args[0], store)
	default:
		return fmt.Errorf("a document path is required unless --from is given")
	}
	if err != nil {
		return err
	}

	md := report.Render(summary.RunID, summary.Report, summary.Sessions, time.Now())
	reportPath := filepath.Join(outDir, "report.md")
	if err := os.WriteFile(reportPath, []byte(md), 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	fmt.Printf("Run %s: %d sections, %d persisted, %d new, %d resolved\n",
		summary.RunID, summary.Sections,
		len(summary.Report.Comparison.Persisted),
		len(summary.Report.Comparison.New),
		len(summary.Report.Comparison.Resolved))
	fmt.Printf("Report -> %s\n", reportPath)
	return nil
}
