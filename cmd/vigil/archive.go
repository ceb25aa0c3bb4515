package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/akritis/vigil/internal/modules/reports"
	"github.com/akritis/vigil/internal/store"
)

var (
	archiveAsOf     string
	archivePipeline string
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Bundle a recorded run's reports and upload them to object storage",
	Long: `Re-render the reports for a recorded run and upload them as a tar.gz bundle
to the configured object storage. Without --as-of the most recent run is
archived.`,
	RunE: runArchive,
}

func init() {
	rootCmd.AddCommand(archiveCmd)

	archiveCmd.Flags().StringVar(&archiveAsOf, "as-of", "", "Archive the run for this valuation date (YYYY-MM-DD)")
	archiveCmd.Flags().StringVar(&archivePipeline, "pipeline", "", "Only consider runs from this pipeline")
}

func runArchive(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	eng, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	if eng.archive == nil {
		return fmt.Errorf("archive storage is not configured: set ARCHIVE_BUCKET and credentials")
	}

	run, err := findArchiveRun(eng.repo)
	if err != nil {
		return err
	}
	if run == nil {
		if archiveAsOf != "" {
			return fmt.Errorf("no recorded run found for %s", archiveAsOf)
		}
		return fmt.Errorf("no runs recorded yet")
	}

	result, err := eng.repo.GetResult(run.ID)
	if err != nil {
		return fmt.Errorf("failed to load run result: %w", err)
	}
	if result == nil {
		return fmt.Errorf("run %s has no stored result", run.ID)
	}

	files, err := eng.reports.WriteFiles(filepath.Join(eng.cfg.ReportsDir(), run.Pipeline), reports.Inputs{
		RunID:       run.ID,
		Pipeline:    run.Pipeline,
		GeneratedAt: run.CreatedAt,
		Result:      result,
	})
	if err != nil {
		return fmt.Errorf("failed to render reports: %w", err)
	}

	if err := eng.archive.ArchiveRun(ctx, run.ID, run.Pipeline, run.AsOf, files.Paths()); err != nil {
		return err
	}

	fmt.Printf("Archived run %s (%s, as of %s): %d files\n", run.ID, run.Pipeline, run.AsOf, len(files.Paths()))
	return nil
}

// findArchiveRun resolves which run to archive. With --as-of it scans the
// most recent runs for a matching valuation date; otherwise the latest run
// (optionally per pipeline) wins.
func findArchiveRun(repo *store.RunRepository) (*store.Run, error) {
	if archiveAsOf == "" {
		if archivePipeline != "" {
			return repo.LatestForPipeline(archivePipeline)
		}
		return repo.Latest()
	}

	if _, err := time.Parse("2006-01-02", archiveAsOf); err != nil {
		return nil, fmt.Errorf("invalid --as-of %q: expected YYYY-MM-DD", archiveAsOf)
	}

	runs, err := repo.ListRecent(0)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	for i := range runs {
		if runs[i].AsOf != archiveAsOf {
			continue
		}
		if archivePipeline != "" && runs[i].Pipeline != archivePipeline {
			continue
		}
		if runs[i].Status != store.StatusCompleted {
			continue
		}
		return &runs[i], nil
	}
	return nil, nil
}
