// Package pipeline composes the analysis services into runnable pipelines.
// Four compositions exist: daily (analyze, render, record, alert), weekly
// (daily plus an archive upload), monthly (weekly plus retention
// housekeeping), and checkup (analyze and render only).
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/akritis/vigil/internal/archive"
	"github.com/akritis/vigil/internal/clients/github"
	"github.com/akritis/vigil/internal/config"
	"github.com/akritis/vigil/internal/database"
	"github.com/akritis/vigil/internal/domain"
	"github.com/akritis/vigil/internal/events"
	"github.com/akritis/vigil/internal/holdings"
	"github.com/akritis/vigil/internal/metrics"
	"github.com/akritis/vigil/internal/modules/diagnostics"
	"github.com/akritis/vigil/internal/modules/freshness"
	"github.com/akritis/vigil/internal/modules/reports"
	"github.com/akritis/vigil/internal/store"
)

// Pipeline names accepted by Run.
const (
	Daily   = "daily"
	Weekly  = "weekly"
	Monthly = "monthly"
	Checkup = "checkup"
)

// Names returns every runnable pipeline name.
func Names() []string {
	return []string{Daily, Weekly, Monthly, Checkup}
}

// composition selects which optional stages a pipeline runs after the
// analyze-and-render core.
type composition struct {
	persist bool // record the run in the registry
	alert   bool // file issues for coverage failures
	archive bool // bundle and upload the report files
	prune   bool // prune old runs and rotate old bundles
}

var compositions = map[string]composition{
	Daily:   {persist: true, alert: true},
	Weekly:  {persist: true, alert: true, archive: true},
	Monthly: {persist: true, alert: true, archive: true, prune: true},
	Checkup: {},
}

// Outcome summarizes one finished run for the caller.
type Outcome struct {
	RunID     string
	Pipeline  string
	AsOf      time.Time
	Result    *domain.DiagnosticsResult
	Freshness *freshness.Result
	Files     *reports.FileSet
	Duration  time.Duration
}

// RunnerConfig holds the runner's dependencies. Runs, GitHub, Archive, and DB
// may be nil; the stages needing them are skipped with a log line.
type RunnerConfig struct {
	Config      *config.Config
	Policy      *config.Policy
	Provider    holdings.Provider
	Diagnostics *diagnostics.Service
	Freshness   *freshness.Service
	Reports     *reports.Service
	Runs        *store.RunRepository
	GitHub      *github.Client
	Archive     *archive.Service
	DB          *database.DB
	Metrics     *metrics.Registry
	Bus         *events.Bus
	Log         zerolog.Logger
}

// Runner executes pipeline compositions.
type Runner struct {
	cfg         *config.Config
	policy      *config.Policy
	provider    holdings.Provider
	diagnostics *diagnostics.Service
	freshness   *freshness.Service
	reports     *reports.Service
	runs        *store.RunRepository
	github      *github.Client
	archive     *archive.Service
	db          *database.DB
	metrics     *metrics.Registry
	bus         *events.Bus
	log         zerolog.Logger
}

// NewRunner creates a pipeline runner.
func NewRunner(cfg RunnerConfig) *Runner {
	return &Runner{
		cfg:         cfg.Config,
		policy:      cfg.Policy,
		provider:    cfg.Provider,
		diagnostics: cfg.Diagnostics,
		freshness:   cfg.Freshness,
		reports:     cfg.Reports,
		runs:        cfg.Runs,
		github:      cfg.GitHub,
		archive:     cfg.Archive,
		db:          cfg.DB,
		metrics:     cfg.Metrics,
		bus:         cfg.Bus,
		log:         cfg.Log.With().Str("service", "pipeline").Logger(),
	}
}

// Run executes the named pipeline for the as-of date. A zero asOf means
// today; holdings files carrying their own date override it either way.
func (r *Runner) Run(ctx context.Context, name string, asOf time.Time) (*Outcome, error) {
	comp, ok := compositions[name]
	if !ok {
		return nil, fmt.Errorf("unknown pipeline %q", name)
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	runID := store.NewRunID()
	log := r.log.With().Str("pipeline", name).Str("run_id", runID).Logger()

	log.Info().Str("as_of", asOf.Format("2006-01-02")).Msg("Starting pipeline run")
	startTime := time.Now()

	r.bus.Emit("pipeline", &events.RunStartedData{
		RunID:    runID,
		Pipeline: name,
		AsOf:     asOf.Format("2006-01-02"),
	})

	// Step 1: Load the holdings snapshot (critical)
	snap, err := r.provider.Fetch(asOf)
	if err != nil {
		return nil, r.fail(log, comp, runID, name, asOf, startTime, fmt.Errorf("failed to load holdings: %w", err))
	}
	asOf = snap.AsOf

	// Step 2: Run the diagnostics engine (critical)
	result, err := r.diagnostics.Run(diagnostics.Request{
		Snapshot:             snap,
		Scenarios:            r.policy.ScenarioDefinitions(),
		Targets:              r.policy.TargetAllocation(),
		MaterialityThreshold: r.policy.Targets.MaterialityThreshold,
		Assumptions:          r.policy.Assumptions(),
		Guidance:             r.policy.Guidance,
	})
	if err != nil {
		return nil, r.fail(log, comp, runID, name, asOf, startTime, fmt.Errorf("diagnostics failed: %w", err))
	}

	// Step 3: Check data quality; coverage gauges update on every run
	fresh := r.freshness.Check(snap, r.expectations(), time.Now().UTC())
	for _, row := range fresh.Coverage {
		r.metrics.RecordCoverage(row.Class, row.Coverage)
	}

	// Step 4: Render the report files (critical)
	profile := r.policy.Profile()
	assumptions := r.policy.Assumptions()
	files, err := r.reports.WriteFiles(filepath.Join(r.cfg.ReportsDir(), name), reports.Inputs{
		RunID:       runID,
		Pipeline:    name,
		GeneratedAt: time.Now().UTC(),
		Result:      result,
		Profile:     &profile,
		Assumptions: &assumptions,
		Freshness:   fresh,
	})
	if err != nil {
		return nil, r.fail(log, comp, runID, name, asOf, startTime, fmt.Errorf("failed to render reports: %w", err))
	}

	// Step 5: Record the run in the registry (critical)
	if comp.persist {
		if r.runs == nil {
			log.Warn().Msg("Run registry not available, skipping record")
		} else if err := r.runs.RecordCompleted(runID, name, asOf, result); err != nil {
			return nil, r.fail(log, composition{}, runID, name, asOf, startTime, fmt.Errorf("failed to record run: %w", err))
		}
	}

	// Step 6: File coverage alerts (non-critical)
	if comp.alert {
		r.fileCoverageAlerts(ctx, log, fresh)
	}

	// Step 7: Bundle and upload the report files (non-critical)
	if comp.archive {
		r.archiveRun(ctx, log, runID, name, asOf, files)
	}

	// Step 8: Retention housekeeping (non-critical)
	if comp.prune {
		r.housekeeping(ctx, log)
	}

	duration := time.Since(startTime)
	r.metrics.RecordRun(name, store.StatusCompleted, duration)
	r.bus.Emit("pipeline", &events.RunCompletedData{
		RunID:       runID,
		Pipeline:    name,
		AsOf:        asOf.Format("2006-01-02"),
		TotalValue:  result.Allocation.TotalValue,
		ActionCount: len(result.Actions),
		DurationMS:  duration.Milliseconds(),
	})
	log.Info().
		Dur("duration", duration).
		Float64("total_value", result.Allocation.TotalValue).
		Int("actions", len(result.Actions)).
		Bool("healthy", fresh.Healthy).
		Msg("Pipeline run completed")

	return &Outcome{
		RunID:     runID,
		Pipeline:  name,
		AsOf:      asOf,
		Result:    result,
		Freshness: fresh,
		Files:     files,
		Duration:  duration,
	}, nil
}

// fail records the failure, updates metrics, emits the event, and returns the
// error for the caller. Recording uses an empty composition when the failure
// was the record itself.
func (r *Runner) fail(log zerolog.Logger, comp composition, runID, name string, asOf, startTime time.Time, runErr error) error {
	if comp.persist && r.runs != nil {
		if err := r.runs.RecordFailed(runID, name, asOf, runErr); err != nil {
			log.Error().Err(err).Msg("Failed to record failed run")
		}
	}

	r.metrics.RecordRun(name, store.StatusFailed, time.Since(startTime))
	r.bus.Emit("pipeline", &events.RunFailedData{
		RunID:    runID,
		Pipeline: name,
		Error:    runErr.Error(),
	})

	log.Error().Err(runErr).Msg("Pipeline run failed")
	return runErr
}

// expectations builds the freshness expectations from the policy file.
func (r *Runner) expectations() freshness.Expectations {
	return freshness.Expectations{
		ExpectedSymbols:   r.policy.Freshness.ExpectedSymbols,
		CoverageThreshold: r.policy.Freshness.CoverageThreshold,
		MaxPriceAge:       time.Duration(r.policy.Freshness.MaxPriceAgeHours) * time.Hour,
	}
}

// fileCoverageAlerts files one issue per asset class below the coverage
// threshold. The bus event fires for every failing class whether or not an
// issue could be filed, so live subscribers always see the alert.
func (r *Runner) fileCoverageAlerts(ctx context.Context, log zerolog.Logger, fresh *freshness.Result) {
	for _, row := range fresh.BelowThreshold() {
		alert := &events.CoverageAlertData{
			AssetClass: row.Class,
			Coverage:   row.Coverage,
			AsOf:       fresh.AsOf.Format("2006-01-02"),
		}

		if r.github == nil {
			log.Warn().Str("asset_class", row.Class).Msg("GitHub client not available, skipping coverage alert")
		} else {
			issue, err := r.github.FileCoverageAlert(ctx, fresh.AsOf, row.Class, row.Coverage)
			switch {
			case err != nil:
				log.Error().Err(err).Str("asset_class", row.Class).Msg("Failed to file coverage alert")
			case issue != nil:
				r.metrics.RecordIssueFiled()
				alert.IssueURL = issue.HTMLURL
			}
		}

		r.bus.Emit("pipeline", alert)
	}
}

// archiveRun bundles the run's report files and uploads them.
func (r *Runner) archiveRun(ctx context.Context, log zerolog.Logger, runID, name string, asOf time.Time, files *reports.FileSet) {
	if r.archive == nil {
		log.Debug().Msg("Archive not configured, skipping upload")
		return
	}

	if err := r.archive.ArchiveRun(ctx, runID, name, asOf.Format("2006-01-02"), files.Paths()); err != nil {
		log.Error().Err(err).Msg("Archive upload failed")
	}
}

// housekeeping prunes old run records, compacts the registry database, and
// rotates old archive bundles.
func (r *Runner) housekeeping(ctx context.Context, log zerolog.Logger) {
	retention := r.cfg.RetentionDays
	if retention <= 0 {
		log.Debug().Msg("Retention disabled, skipping housekeeping")
		return
	}

	if r.runs != nil {
		cutoff := time.Now().AddDate(0, 0, -retention)
		if _, err := r.runs.PruneOlderThan(cutoff); err != nil {
			log.Error().Err(err).Msg("Failed to prune old runs")
		}
	}

	if r.db != nil {
		if err := r.db.Vacuum(); err != nil {
			log.Error().Err(err).Msg("Failed to vacuum registry database")
		}
	}

	if r.archive != nil {
		if err := r.archive.RotateOldBundles(ctx, retention); err != nil {
			log.Error().Err(err).Msg("Failed to rotate old bundles")
		}
	}
}
