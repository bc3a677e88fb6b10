package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/analyzer"
	"github.com/hiroki-yamauchi/notebook-health-analyzer/reporter"
)

type analyzeFlags struct {
	format    string
	output    string
	outputDir string
	exclude   []string
	record    bool
	quiet     bool
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var flags analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze <notebook-or-directory>",
		Short: "Analyze a notebook or every notebook under a directory",
		Long: `Analyze a Jupyter notebook and print its quality report.

Usage:
  nbhealth analyze churn.ipynb                         # JSON report on stdout
  nbhealth analyze churn.ipynb --format html -o r.html # HTML report file
  nbhealth analyze notebooks/ --output-dir reports     # One report per notebook
  nbhealth analyze notebooks/ --exclude drafts,archive # Skip directories

Hidden directories and .ipynb_checkpoints are always skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, a, flags, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.format, "format", "", "Output format: "+reporter.FormatNames()+" (default: report.format)")
	f.StringVarP(&flags.output, "output", "o", "", "Write all reports into this file")
	f.StringVar(&flags.outputDir, "output-dir", "", "Write one report file per notebook into this directory (default: report.output_dir)")
	f.StringSliceVar(&flags.exclude, "exclude", nil, "Comma-separated directory names to exclude")
	f.BoolVar(&flags.record, "record", false, "Record the reports in the run history (default: history.enabled)")
	f.BoolVarP(&flags.quiet, "quiet", "q", false, "Do not print the summary table")
	return cmd
}

func runAnalyze(cmd *cobra.Command, a *app, flags analyzeFlags, targetPath string) error {
	// Resolve options, flags win over configuration
	formatName := a.cfg.Report.Format
	if cmd.Flags().Changed("format") {
		formatName = flags.format
	}
	format, err := reporter.ParseFormat(formatName)
	if err != nil {
		return err
	}
	outputDir := a.cfg.Report.OutputDir
	if cmd.Flags().Changed("output-dir") {
		outputDir = flags.outputDir
	}
	if flags.output != "" && cmd.Flags().Changed("output-dir") {
		return errors.New("--output and --output-dir are mutually exclusive")
	}
	record := a.cfg.History.Enabled
	if cmd.Flags().Changed("record") {
		record = flags.record
	}

	// Check if target path exists
	info, err := os.Stat(targetPath)
	if err != nil {
		return fmt.Errorf("target path does not exist: %s", targetPath)
	}
	root, err := filepath.Abs(targetPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	if !info.IsDir() {
		root = filepath.Dir(root)
	}

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "Analyzing notebooks at: %s\n", targetPath)
	if len(flags.exclude) > 0 {
		fmt.Fprintf(stderr, "Excluding directories: %s\n", strings.Join(flags.exclude, ", "))
	}

	engine, err := a.engine()
	if err != nil {
		return err
	}
	reports, err := engine.AnalyzePath(cmd.Context(), targetPath, flags.exclude)
	if err != nil {
		return err
	}

	if record {
		if err := recordReports(cmd, a, reports); err != nil {
			return err
		}
	}

	// Generate reports
	switch {
	case flags.output != "":
		absOutputPath, err := filepath.Abs(flags.output)
		if err != nil {
			return fmt.Errorf("error resolving output path: %w", err)
		}
		if err := reporter.WriteFile(absOutputPath, reports, format); err != nil {
			return err
		}
		fmt.Fprintf(stderr, "Report saved to: %s\n", absOutputPath)
	default:
		paths, err := reporter.Write(cmd.OutOrStdout(), reports, reporter.Options{Format: format, OutputDir: outputDir, Root: root})
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintf(stderr, "Report saved to: %s\n", p)
		}
	}

	if !flags.quiet {
		printSummary(cmd, reports)
	}
	return nil
}

func recordReports(cmd *cobra.Command, a *app, reports []*analyzer.Report) error {
	store, err := a.openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	for _, r := range reports {
		if _, err := store.Record(cmd.Context(), r); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(cmd *cobra.Command, reports []*analyzer.Report) {
	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "\nAnalysis complete!\n")
	fmt.Fprintf(stderr, "   Analyzed notebooks: %d\n", len(reports))

	diagnostics := 0
	for _, r := range reports {
		diagnostics += len(r.Diagnostics)
	}
	fmt.Fprintf(stderr, "   Diagnostics: %d\n\n", diagnostics)
	fmt.Fprintln(stderr, reporter.SummaryTable(reports))
}
