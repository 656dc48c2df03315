package jobs

import (
	"context"
	"fmt"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"

	"github.com/oxleyhq/forager/internal/db"
	"github.com/oxleyhq/forager/internal/results"
)

// JobManager handles job creation and lifecycle management
type JobManager struct {
	coordinator *Coordinator
	ledger      ProgressLedger
	stops       StopSignals
	results     *results.Writer
	leads       LeadStore
}

// NewJobManager creates a new job manager. results and leads may be nil when
// file output or lead storage is not configured.
func NewJobManager(coordinator *Coordinator, ledger ProgressLedger, stops StopSignals, resultsWriter *results.Writer, leads LeadStore) *JobManager {
	return &JobManager{
		coordinator: coordinator,
		ledger:      ledger,
		stops:       stops,
		results:     resultsWriter,
		leads:       leads,
	}
}

// RunJob creates and runs a job synchronously, returning the emails found.
func (jm *JobManager) RunJob(ctx context.Context, options *JobOptions) (*Job, []string, error) {
	job, err := NewJob(options)
	if err != nil {
		return nil, nil, err
	}

	// A re-run must not trip over a stale stop request.
	if err := jm.stops.ClearStop(ctx, job.ID, job.StepID); err != nil {
		log.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to clear old stop signal")
	}

	found, err := jm.coordinator.Run(ctx, job)
	jm.recordOutcome(ctx, job, found)
	return job, found, err
}

// StartJob creates a job and runs it in the background. Progress is tracked
// through the ledger.
func (jm *JobManager) StartJob(ctx context.Context, options *JobOptions) (*Job, error) {
	job, err := NewJob(options)
	if err != nil {
		return nil, err
	}

	if err := jm.stops.ClearStop(ctx, job.ID, job.StepID); err != nil {
		log.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to clear old stop signal")
	}

	// Seed the ledger before returning so a progress poll right after
	// submission finds a row.
	status := db.StatusRunning
	if err := jm.ledger.UpsertProgress(ctx, job.ID, job.StepID, db.ProgressUpdate{Status: &status}); err != nil {
		return nil, fmt.Errorf("failed to create job record: %w", err)
	}

	go func() {
		defer sentry.Recover()

		runCtx := context.Background()
		found, err := jm.coordinator.Run(runCtx, job)
		if err != nil {
			log.Error().Err(err).Str("job_id", job.ID).Msg("Background job failed")
		}
		jm.recordOutcome(runCtx, job, found)
	}()

	log.Info().Str("job_id", job.ID).Str("seed_url", job.SeedURL).Msg("Job started")
	return job, nil
}

// StopJob requests that a running job stop at its next checkpoint.
func (jm *JobManager) StopJob(ctx context.Context, jobID string) error {
	record, err := jm.ledger.GetProgress(ctx, jobID, DefaultStepID)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("job %s not found", jobID)
	}
	return jm.stops.RequestStop(ctx, jobID, DefaultStepID)
}

// JobProgress returns the ledger row for a job, or nil when the job is
// unknown.
func (jm *JobManager) JobProgress(ctx context.Context, jobID string) (*db.ProgressRecord, error) {
	return jm.ledger.GetProgress(ctx, jobID, DefaultStepID)
}

// DeleteJob removes a job's ledger row and any pending stop signal. Running
// jobs must be stopped first.
func (jm *JobManager) DeleteJob(ctx context.Context, jobID string) error {
	record, err := jm.ledger.GetProgress(ctx, jobID, DefaultStepID)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("job %s not found", jobID)
	}
	if record.Status == db.StatusRunning {
		return fmt.Errorf("job %s is still running", jobID)
	}

	if err := jm.stops.ClearStop(ctx, jobID, DefaultStepID); err != nil {
		log.Warn().Err(err).Str("job_id", jobID).Msg("Failed to clear stop signal during delete")
	}
	return jm.ledger.DeleteProgress(ctx, jobID, DefaultStepID)
}

// recordOutcome runs once a job reaches a terminal state: it retires any
// outstanding stop request and writes the job's emails to the results file
// and the lead store. All of it is best-effort; failures are logged, not
// returned.
func (jm *JobManager) recordOutcome(ctx context.Context, job *Job, found []string) {
	// The coordinator only reads stop signals; retiring an acknowledged stop
	// happens here so the next run of this job starts clean.
	if err := jm.stops.ClearStop(ctx, job.ID, job.StepID); err != nil {
		log.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to clear stop signal")
	}

	if jm.results != nil {
		record := results.Record{JobID: job.ID, Input: job.SeedURL, Emails: found}
		if err := jm.results.Append(record); err != nil {
			log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to append to results file")
		}
	}

	if jm.leads != nil && len(found) > 0 {
		if err := jm.leads.UpdateLeadEmails(ctx, job.SeedURL, EmailsToString(found)); err != nil {
			log.Debug().Err(err).Str("job_id", job.ID).Msg("No lead updated for job seed")
		}
	}
}
