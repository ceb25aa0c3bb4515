package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akritis/vigil/internal/modules/reports"
	"github.com/akritis/vigil/internal/store"
)

var (
	renderRunID   string
	renderPreview bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Re-render a recorded run's report",
	Long: `Re-render the Markdown report for a recorded run from its stored result.
Without --run the most recent run is rendered. With --preview the report is
styled for the terminal instead of printed as raw Markdown.`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVar(&renderRunID, "run", "", "Run ID to render, defaults to the most recent run")
	renderCmd.Flags().BoolVar(&renderPreview, "preview", false, "Render with ANSI styling for the terminal")
}

func runRender(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var run *store.Run
	if renderRunID != "" {
		run, err = a.repo.Get(renderRunID)
	} else {
		run, err = a.repo.Latest()
	}
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}
	if run == nil {
		if renderRunID != "" {
			return fmt.Errorf("run %s not found", renderRunID)
		}
		return fmt.Errorf("no runs recorded yet")
	}

	result, err := a.repo.GetResult(run.ID)
	if err != nil {
		return fmt.Errorf("failed to load run result: %w", err)
	}
	if result == nil {
		return fmt.Errorf("run %s has no stored result", run.ID)
	}

	markdown, err := a.reports.Markdown(reports.NewReport(reports.Inputs{
		RunID:       run.ID,
		Pipeline:    run.Pipeline,
		GeneratedAt: run.CreatedAt,
		Result:      result,
	}))
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if renderPreview {
		styled, err := a.reports.Terminal(markdown)
		if err != nil {
			return fmt.Errorf("failed to style report: %w", err)
		}
		fmt.Print(styled)
		return nil
	}

	fmt.Print(markdown)
	return nil
}
