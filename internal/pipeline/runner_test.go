package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akritis/vigil/internal/archive"
	"github.com/akritis/vigil/internal/clients/github"
	"github.com/akritis/vigil/internal/config"
	"github.com/akritis/vigil/internal/database"
	"github.com/akritis/vigil/internal/events"
	"github.com/akritis/vigil/internal/holdings"
	"github.com/akritis/vigil/internal/metrics"
	"github.com/akritis/vigil/internal/modules/allocation"
	"github.com/akritis/vigil/internal/modules/concentration"
	"github.com/akritis/vigil/internal/modules/diagnostics"
	"github.com/akritis/vigil/internal/modules/freshness"
	"github.com/akritis/vigil/internal/modules/planner"
	"github.com/akritis/vigil/internal/modules/projection"
	"github.com/akritis/vigil/internal/modules/reports"
	"github.com/akritis/vigil/internal/modules/scenarios"
	"github.com/akritis/vigil/internal/store"
)

func writeHoldings(t *testing.T, dir string) string {
	t.Helper()
	content := `as_of: 2026-08-21T00:00:00Z
positions:
  - symbol: AAPL
    class: equities
    value: "9500"
  - symbol: VTI
    class: equities
    value: "8400"
  - symbol: AGG
    class: bonds
    value: "8000"
  - symbol: CASH
    class: cash
    value: "5000"
  - symbol: GLD
    class: gold
    value: "1800"
`
	path := filepath.Join(dir, "holdings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// testPolicy expects AAPL, VTI, and VXUS for equities; the fixture holds only
// two of the three, so every run reports equities coverage 2/3.
func testPolicy(holdingsPath string) *config.Policy {
	limit := 0.25
	return &config.Policy{
		Household: config.HouseholdPolicy{
			RiskTolerance:          "balanced",
			InvestmentHorizonYears: 15,
			Objective:              "steady growth",
		},
		Holdings: config.HoldingsPolicy{Source: "yaml", Path: holdingsPath},
		Targets: config.TargetsPolicy{
			MaterialityThreshold: 0.01,
			MaxPositionWeight:    &limit,
			Classes: []config.ClassTarget{
				{Class: "equities", Weight: 0.45},
				{Class: "bonds", Weight: 0.30},
				{Class: "cash", Weight: 0.15},
				{Class: "gold", Weight: 0.10},
			},
		},
		Scenarios: []config.ScenarioPolicy{{
			Name:        "equity_shock",
			Description: "Equity drawdown with flight to quality",
			Shocks:      map[string]float64{"equities": -0.15, "bonds": 0.02, "gold": 0.05},
		}},
		Projection: config.ProjectionPolicy{
			MonthlyContribution: 750,
			HorizonPeriods:      12,
			ExpectedAnnualReturns: map[string]float64{
				"equities": 0.06, "bonds": 0.025, "cash": 0.015, "gold": 0.03,
			},
		},
		Guidance: []string{"Prefer tax-advantaged accounts for bond funds."},
		Freshness: config.FreshnessPolicy{
			CoverageThreshold: 0.8,
			MaxPriceAgeHours:  48,
			ExpectedSymbols:   map[string][]string{"equities": {"AAPL", "VTI", "VXUS"}},
		},
	}
}

type eventLog struct {
	events []*events.Event
}

func newEventLog(bus *events.Bus) *eventLog {
	l := &eventLog{}
	for _, typ := range events.AllTypes() {
		bus.Subscribe(typ, func(e *events.Event) {
			l.events = append(l.events, e)
		})
	}
	return l
}

func (l *eventLog) types() []events.EventType {
	out := make([]events.EventType, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeBundleStore struct {
	uploaded []string
	objects  []types.Object
	deleted  []string
}

func (f *fakeBundleStore) Upload(_ context.Context, key string, body io.Reader) error {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return err
	}
	f.uploaded = append(f.uploaded, key)
	return nil
}

func (f *fakeBundleStore) List(_ context.Context, _ string) ([]types.Object, error) {
	return f.objects, nil
}

func (f *fakeBundleStore) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

type testEnv struct {
	runner *Runner
	repo   *store.RunRepository
	reg    *metrics.Registry
	events *eventLog
}

func newTestEnv(t *testing.T, arch *archive.Service) *testEnv {
	t.Helper()
	log := zerolog.Nop()

	dataDir := t.TempDir()
	cfg := &config.Config{DataDir: dataDir, RetentionDays: 365}
	policy := testPolicy(writeHoldings(t, dataDir))

	db, err := database.New(database.Config{Path: filepath.Join(dataDir, "vigil.db"), Name: "registry"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := store.NewRunRepository(db.Conn(), log)
	require.NoError(t, repo.Migrate())

	provider, err := holdings.FromPolicy(policy, cfg, log)
	require.NoError(t, err)

	bus := events.NewBus(log)
	reg := metrics.NewRegistry()

	env := &testEnv{
		repo:   repo,
		reg:    reg,
		events: newEventLog(bus),
	}
	env.runner = NewRunner(RunnerConfig{
		Config:   cfg,
		Policy:   policy,
		Provider: provider,
		Diagnostics: diagnostics.NewService(
			allocation.NewService(log),
			concentration.NewService(log),
			scenarios.NewService(policy.StrictScenarios, log),
			projection.NewService(log),
			planner.NewService(log),
			log,
		),
		Freshness: freshness.NewService(log),
		Reports:   reports.NewService(log),
		Runs:      repo,
		GitHub:    github.NewClient("", "", log), // no token: alerts are no-ops
		Archive:   arch,
		DB:        db,
		Metrics:   reg,
		Bus:       bus,
		Log:       log,
	})
	return env
}

func TestRunDailyEndToEnd(t *testing.T) {
	env := newTestEnv(t, nil)

	outcome, err := env.runner.Run(context.Background(), Daily, time.Time{})
	require.NoError(t, err)
	require.NotNil(t, outcome)

	assert.NotEmpty(t, outcome.RunID)
	assert.Equal(t, Daily, outcome.Pipeline)
	assert.Equal(t, "2026-08-21", outcome.AsOf.Format("2006-01-02"), "the holdings file date wins")
	require.NotNil(t, outcome.Result)
	assert.InDelta(t, 32700.0, outcome.Result.Allocation.TotalValue, 1e-9)
	require.NotNil(t, outcome.Freshness)
	assert.False(t, outcome.Freshness.Healthy)

	require.NotNil(t, outcome.Files)
	assert.Contains(t, outcome.Files.Markdown, filepath.Join("reports", "daily"))
	for _, path := range outcome.Files.Paths() {
		_, statErr := os.Stat(path)
		assert.NoError(t, statErr, path)
	}

	run, err := env.repo.Get(outcome.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, store.StatusCompleted, run.Status)
	assert.Equal(t, "2026-08-21", run.AsOf)
	assert.InDelta(t, 32700.0, run.TotalValue, 1e-9)

	result, err := env.repo.GetResult(outcome.RunID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Len(t, result.Projection, 12)

	require.Equal(t, []events.EventType{events.RunStarted, events.CoverageAlert, events.RunCompleted}, env.events.types())
	alert := env.events.events[1].Data.(*events.CoverageAlertData)
	assert.Equal(t, "equities", alert.AssetClass)
	assert.InDelta(t, 2.0/3.0, alert.Coverage, 1e-9)
	assert.Empty(t, alert.IssueURL, "no issue filed while the client is disabled")
	completed := env.events.events[2].Data.(*events.RunCompletedData)
	assert.Equal(t, outcome.RunID, completed.RunID)
	assert.InDelta(t, 32700.0, completed.TotalValue, 1e-9)

	assert.InDelta(t, 1.0, testutil.ToFloat64(env.reg.RunsTotal.WithLabelValues(Daily, store.StatusCompleted)), 1e-9)
	assert.InDelta(t, 2.0/3.0, testutil.ToFloat64(env.reg.ClassCoverage.WithLabelValues("equities")), 1e-9)
	assert.InDelta(t, 0.0, testutil.ToFloat64(env.reg.IssuesFiled), 1e-9)
}

func TestRunCheckupRendersWithoutPersisting(t *testing.T) {
	env := newTestEnv(t, nil)

	outcome, err := env.runner.Run(context.Background(), Checkup, time.Time{})
	require.NoError(t, err)
	require.NotNil(t, outcome)

	assert.Contains(t, outcome.Files.Markdown, filepath.Join("reports", "checkup"))

	count, err := env.repo.Count()
	require.NoError(t, err)
	assert.Zero(t, count, "checkup runs are not recorded")

	assert.Equal(t, []events.EventType{events.RunStarted, events.RunCompleted}, env.events.types(),
		"checkup skips coverage alerts")
}

func TestRunWeeklyUploadsBundle(t *testing.T) {
	fake := &fakeBundleStore{}
	arch := archive.NewService(fake, t.TempDir(), zerolog.Nop())
	env := newTestEnv(t, arch)

	outcome, err := env.runner.Run(context.Background(), Weekly, time.Time{})
	require.NoError(t, err)
	require.NotNil(t, outcome)

	require.Len(t, fake.uploaded, 1)
	assert.True(t, strings.HasPrefix(fake.uploaded[0], "vigil-reports-"), "bundle key %q", fake.uploaded[0])
	assert.True(t, strings.HasSuffix(fake.uploaded[0], ".tar.gz"), "bundle key %q", fake.uploaded[0])
}

func TestRunMonthlyPrunesOldRuns(t *testing.T) {
	env := newTestEnv(t, nil)

	old := store.Run{
		ID:        store.NewRunID(),
		Pipeline:  Daily,
		AsOf:      "2025-06-01",
		CreatedAt: time.Now().AddDate(0, 0, -400),
		Status:    store.StatusCompleted,
	}
	require.NoError(t, env.repo.Record(old, nil))

	outcome, err := env.runner.Run(context.Background(), Monthly, time.Time{})
	require.NoError(t, err)

	gone, err := env.repo.Get(old.ID)
	require.NoError(t, err)
	assert.Nil(t, gone, "runs beyond retention are pruned")

	kept, err := env.repo.Get(outcome.RunID)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestRunUnknownPipeline(t *testing.T) {
	env := newTestEnv(t, nil)

	outcome, err := env.runner.Run(context.Background(), "hourly", time.Time{})
	require.Error(t, err)
	assert.Nil(t, outcome)
	assert.Contains(t, err.Error(), `unknown pipeline "hourly"`)
	assert.Empty(t, env.events.types(), "rejected names emit nothing")
}

func TestRunFailureRecordedAndEmitted(t *testing.T) {
	env := newTestEnv(t, nil)
	env.runner.provider = holdings.NewYAMLProvider(filepath.Join(t.TempDir(), "missing.yaml"), zerolog.Nop())

	outcome, err := env.runner.Run(context.Background(), Daily, time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Nil(t, outcome)
	assert.Contains(t, err.Error(), "failed to load holdings")

	runs, err := env.repo.ListRecent(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.StatusFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "failed to load holdings")

	assert.Equal(t, []events.EventType{events.RunStarted, events.RunFailed}, env.events.types())
	assert.InDelta(t, 1.0, testutil.ToFloat64(env.reg.RunsTotal.WithLabelValues(Daily, store.StatusFailed)), 1e-9)
}
