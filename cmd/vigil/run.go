package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/akritis/vigil/internal/pipeline"
)

var (
	runPipeline string
	runAsOf     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one diagnostics pipeline now",
	Long: `Run one diagnostics pipeline immediately and print where the reports were
written. The daily pipeline records the run and files data quality issues;
weekly adds an archive upload; monthly adds retention housekeeping; checkup
only analyzes and renders.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runPipeline, "pipeline", pipeline.Daily, "Pipeline to run: daily, weekly, monthly, or checkup")
	runCmd.Flags().StringVar(&runAsOf, "as-of", "", "Valuation date (YYYY-MM-DD), defaults to today")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var asOf time.Time
	if runAsOf != "" {
		parsed, err := time.Parse("2006-01-02", runAsOf)
		if err != nil {
			return fmt.Errorf("invalid --as-of %q: expected YYYY-MM-DD", runAsOf)
		}
		asOf = parsed
	}

	eng, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	outcome, err := eng.runner.Run(ctx, runPipeline, asOf)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s (%s) completed in %s\n", outcome.RunID, outcome.Pipeline, outcome.Duration.Round(time.Millisecond))
	fmt.Printf("  as of:        %s\n", outcome.AsOf.Format("2006-01-02"))
	fmt.Printf("  total value:  %.2f\n", outcome.Result.Allocation.TotalValue)
	fmt.Printf("  actions:      %d\n", len(outcome.Result.Actions))
	if outcome.Freshness != nil && !outcome.Freshness.Healthy {
		fmt.Printf("  data quality: DEGRADED\n")
	}
	fmt.Printf("  report:       %s\n", outcome.Files.Markdown)
	return nil
}
