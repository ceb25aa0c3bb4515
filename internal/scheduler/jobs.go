package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/akritis/vigil/internal/config"
	"github.com/akritis/vigil/internal/database"
	"github.com/akritis/vigil/internal/pipeline"
)

// PipelineJob runs one pipeline composition on its schedule. Scheduled runs
// always use the current date; explicit as-of dates are a CLI affair.
type PipelineJob struct {
	runner   *pipeline.Runner
	pipeline string
	log      zerolog.Logger
}

// NewPipelineJob creates a job running the named pipeline.
func NewPipelineJob(runner *pipeline.Runner, pipelineName string, log zerolog.Logger) *PipelineJob {
	return &PipelineJob{
		runner:   runner,
		pipeline: pipelineName,
		log:      log.With().Str("job", pipelineName).Logger(),
	}
}

// Name returns the job name.
func (j *PipelineJob) Name() string {
	return j.pipeline
}

// Run executes the pipeline.
func (j *PipelineJob) Run() error {
	_, err := j.runner.Run(context.Background(), j.pipeline, time.Time{})
	return err
}

// RegisterPipelines adds the daily, weekly, and monthly pipeline jobs with
// their configured cron expressions. Empty expressions disable a pipeline.
func RegisterPipelines(s *Scheduler, runner *pipeline.Runner, schedules config.ScheduleConfig, log zerolog.Logger) error {
	entries := []struct {
		schedule string
		name     string
	}{
		{schedules.Daily, pipeline.Daily},
		{schedules.Weekly, pipeline.Weekly},
		{schedules.Monthly, pipeline.Monthly},
	}

	for _, entry := range entries {
		if entry.schedule == "" {
			continue
		}
		if err := s.AddJob(entry.schedule, NewPipelineJob(runner, entry.name, log)); err != nil {
			return err
		}
	}

	return nil
}

// HealthCheckJob verifies registry database integrity and nudges the WAL
// down between runs.
type HealthCheckJob struct {
	db  *database.DB
	log zerolog.Logger
}

// NewHealthCheckJob creates a health check job for the registry database.
func NewHealthCheckJob(db *database.DB, log zerolog.Logger) *HealthCheckJob {
	return &HealthCheckJob{
		db:  db,
		log: log.With().Str("job", "health_check").Logger(),
	}
}

// Name returns the job name.
func (j *HealthCheckJob) Name() string {
	return "health_check"
}

// Run executes the health check. Corruption is an error; a failed checkpoint
// is only a warning since the next write retries it.
func (j *HealthCheckJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := j.db.QuickCheck(ctx); err != nil {
		return fmt.Errorf("registry integrity check failed: %w", err)
	}

	if err := j.db.WALCheckpoint("PASSIVE"); err != nil {
		j.log.Warn().Err(err).Msg("WAL checkpoint failed")
	}

	j.log.Debug().Msg("Registry database healthy")
	return nil
}
