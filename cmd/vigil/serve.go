package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/akritis/vigil/internal/scheduler"
	"github.com/akritis/vigil/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and pipeline scheduler",
	Long: `Start the long-running service: pipelines fire on their cron schedules, the
HTTP API serves run history, rendered reports, live event streams, and
manual pipeline triggers, and a periodic health check guards the registry.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	eng, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	log := eng.log
	log.Info().Msg("Starting vigil")

	// Scheduler: the three recurring pipelines plus registry maintenance.
	sched := scheduler.New(log)
	if err := scheduler.RegisterPipelines(sched, eng.runner, eng.cfg.Schedules, log); err != nil {
		return err
	}
	if err := sched.AddJob("@every 6h", scheduler.NewHealthCheckJob(eng.db, log)); err != nil {
		return err
	}
	sched.Start()

	srv := server.New(server.Config{
		Log:     log,
		Config:  eng.cfg,
		Runner:  eng.runner,
		Runs:    eng.repo,
		Reports: eng.reports,
		Bus:     eng.bus,
		Metrics: eng.metrics,
		DB:      eng.db,
	})

	// Start server in goroutine so shutdown signals can be handled here.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", eng.cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	// Stop the scheduler first so no new pipeline runs start, then give the
	// HTTP server time to finish in-flight requests.
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
	return nil
}
