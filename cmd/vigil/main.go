// Package main is the entry point for vigil, a portfolio analytics and
// diagnostics engine. Diagnostics run as composed pipelines: load holdings,
// analyze (allocation, concentration, stress, projection, action plan),
// render reports, record the run, and depending on the pipeline file data
// quality issues, archive report bundles, and prune old records.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vigil",
	Short: "Portfolio analytics and diagnostics engine",
	Long: `Vigil analyzes a household portfolio: allocation breakdowns, concentration,
scenario stress tests, growth projections, and a rebalancing action plan.

Diagnostics run as pipelines (daily, weekly, monthly, checkup) that render
reports, record runs in a local registry, file data quality issues, and
archive report bundles to object storage.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
