package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/speclens/speclens/services/artifact"
	"github.com/speclens/speclens/services/document"
)

func runExtract(cmd *cobra.Command, args []string) error {
	proc := document.NewProcessor(logger.Logger)
	sections, err := proc.ExtractFile(args[0])
	if err != nil {
		return fmt.Errorf("stage sections failed: %w", err)
	}

	store := artifact.NewStore(outDir)
	path, err := store.Write(cmd.Context(), artifact.StageSections, uuid.NewString(), false, sections)
	if err != nil {
		return fmt.Errorf("stage sections failed: %w", err)
	}

	fmt.Printf("Extracted %d sections -> %s\n", len(sections), path)
	return nil
}
