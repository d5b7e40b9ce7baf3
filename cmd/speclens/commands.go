package main

import "github.com/spf13/cobra"

var (
	rootCmd = &cobra.Command{
		Use:   "speclens",
		Short: "Detect ambiguity in technical documents with multiple LLMs",
		Long: `SpecLens queries several independent models about each section of a
document and compares their interpretations. Where the models diverge
beyond phrasing, the document is ambiguous.`,
		SilenceUsage: true,
	}

	extractCmd = &cobra.Command{
		Use:   "extract [document.md]",
		Short: "Extract instruction sections from a document",
		Args:  cobra.ExactArgs(1),
		RunE:  runExtract,
	}

	sessionsCmd = &cobra.Command{
		Use:   "sessions",
		Short: "Verify session creation against every configured model",
		Long: `Opens a document-seeded session on every configured model and records
the outcome in the session metadata artifact. Models that cannot hold a
session are reported as stateless fallbacks.`,
		RunE: runSessions,
	}

	testCmd = &cobra.Command{
		Use:   "test",
		Short: "Query every model about every section",
		RunE:  runTest,
	}

	detectCmd = &cobra.Command{
		Use:   "detect",
		Short: "Detect ambiguity from persisted test results",
		RunE:  runDetect,
	}

	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Render a run's findings as Markdown",
		RunE:  runReport,
	}

	runCmd = &cobra.Command{
		Use:   "run [document.md]",
		Short: "Run the full pipeline: extract, sessions, test, detect, report",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runFull,
	}

	// flag values
	outDir       string
	sectionsDir  string
	resultsDir   string
	baselineDir  string
	runDir       string
	outFile      string
	testMode     string
	strategyName string
	resumeFrom   string
)

func init() {
	extractCmd.Flags().StringVar(&outDir, "out", "", "run directory to write the sections artifact into")
	extractCmd.MarkFlagRequired("out")

	sessionsCmd.Flags().StringVar(&sectionsDir, "sections", "", "run directory holding the sections artifact")
	sessionsCmd.Flags().StringVar(&outDir, "out", "", "run directory to write the session metadata artifact into")
	sessionsCmd.MarkFlagRequired("sections")
	sessionsCmd.MarkFlagRequired("out")

	testCmd.Flags().StringVar(&sectionsDir, "sections", "", "run directory holding the sections artifact")
	testCmd.Flags().StringVar(&outDir, "out", "", "run directory to write the test results artifact into")
	testCmd.Flags().StringVar(&testMode, "mode", "both", "baseline, session, or both")
	testCmd.MarkFlagRequired("sections")
	testCmd.MarkFlagRequired("out")

	detectCmd.Flags().StringVar(&resultsDir, "results", "", "run directory holding the test results artifact")
	detectCmd.Flags().StringVar(&outDir, "out", "", "run directory to write the ambiguities artifact into")
	detectCmd.Flags().StringVar(&strategyName, "strategy", "keyword", "comparison strategy: keyword or judge")
	detectCmd.Flags().StringVar(&baselineDir, "baseline", "", "run directory whose test results provide the baseline responses")
	detectCmd.MarkFlagRequired("results")
	detectCmd.MarkFlagRequired("out")

	reportCmd.Flags().StringVar(&runDir, "run", "", "run directory holding the ambiguities artifact")
	reportCmd.Flags().StringVar(&outFile, "out", "", "output file; - or empty for stdout")
	reportCmd.MarkFlagRequired("run")

	runCmd.Flags().StringVar(&outDir, "out", "", "run directory for all artifacts")
	runCmd.Flags().StringVar(&strategyName, "strategy", "keyword", "comparison strategy: keyword or judge")
	runCmd.Flags().StringVar(&resumeFrom, "from", "", "resume from a persisted artifact: sections or test_results")
	runCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(extractCmd, sessionsCmd, testCmd, detectCmd, reportCmd, runCmd)
}
