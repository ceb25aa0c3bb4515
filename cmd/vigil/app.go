package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

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
	"github.com/akritis/vigil/internal/pipeline"
	"github.com/akritis/vigil/internal/store"
	"github.com/akritis/vigil/pkg/logger"
)

// app holds what every command needs: configuration, logging, and the run
// registry.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	db      *database.DB
	repo    *store.RunRepository
	reports *reports.Service
}

// openApp loads configuration from the environment (and .env if present)
// and opens the run registry.
func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(log)

	db, err := database.New(database.Config{Path: cfg.DatabasePath(), Name: "registry"})
	if err != nil {
		return nil, fmt.Errorf("failed to open run registry: %w", err)
	}

	repo := store.NewRunRepository(db.Conn(), log)
	if err := repo.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate run registry: %w", err)
	}

	return &app{
		cfg:     cfg,
		log:     log,
		db:      db,
		repo:    repo,
		reports: reports.NewService(log),
	}, nil
}

func (a *app) Close() {
	a.db.Close()
}

// engine extends app with the full pipeline stack: policy, holdings
// provider, diagnostics services, event bus, metrics, and archive storage.
type engine struct {
	*app
	policy  *config.Policy
	runner  *pipeline.Runner
	bus     *events.Bus
	metrics *metrics.Registry
	archive *archive.Service
}

// buildEngine wires the complete runner. Archive storage is optional: when
// unconfigured or unreachable the pipelines run without bundle uploads.
func buildEngine(ctx context.Context) (*engine, error) {
	a, err := openApp()
	if err != nil {
		return nil, err
	}

	policy, err := config.LoadPolicy(a.cfg.PolicyPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}

	provider, err := holdings.FromPolicy(policy, a.cfg, a.log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to build holdings provider: %w", err)
	}

	bus := events.NewBus(a.log)
	reg := metrics.NewRegistry()

	var arch *archive.Service
	if a.cfg.Archive.Enabled() {
		objectStore, err := archive.NewObjectStore(ctx, a.cfg.Archive, a.log)
		if err != nil {
			a.log.Warn().Err(err).Msg("Archive storage unavailable, bundles will not be uploaded")
		} else {
			arch = archive.NewService(objectStore, a.cfg.DataDir, a.log)
		}
	}

	runner := pipeline.NewRunner(pipeline.RunnerConfig{
		Config:   a.cfg,
		Policy:   policy,
		Provider: provider,
		Diagnostics: diagnostics.NewService(
			allocation.NewService(a.log),
			concentration.NewService(a.log),
			scenarios.NewService(policy.StrictScenarios, a.log),
			projection.NewService(a.log),
			planner.NewService(a.log),
			a.log,
		),
		Freshness: freshness.NewService(a.log),
		Reports:   a.reports,
		Runs:      a.repo,
		GitHub:    github.NewClient(a.cfg.GitHubToken, a.cfg.GitHubRepo, a.log),
		Archive:   arch,
		DB:        a.db,
		Metrics:   reg,
		Bus:       bus,
		Log:       a.log,
	})

	return &engine{
		app:     a,
		policy:  policy,
		runner:  runner,
		bus:     bus,
		metrics: reg,
		archive: arch,
	}, nil
}
