package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ProgressStatus is the lifecycle state recorded for a job step.
type ProgressStatus string

const (
	StatusRunning   ProgressStatus = "running"
	StatusCompleted ProgressStatus = "completed"
	StatusFailed    ProgressStatus = "failed"
	StatusStopped   ProgressStatus = "stopped"
)

// ProgressRecord is one row of the job execution ledger.
type ProgressRecord struct {
	JobID        string
	StepID       string
	Status       ProgressStatus
	CurrentRow   int
	TotalRows    int
	ErrorMessage string
	StopCall     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProgressUpdate carries only the fields a checkpoint wants to change. Nil
// fields are left untouched so concurrent writers cannot clobber each other's
// columns.
type ProgressUpdate struct {
	Status       *ProgressStatus
	CurrentRow   *int
	TotalRows    *int
	ErrorMessage *string
	StopCall     *bool
}

// GetProgress returns the ledger row for (jobID, stepID), or nil when no row
// exists yet.
func (d *DB) GetProgress(ctx context.Context, jobID, stepID string) (*ProgressRecord, error) {
	record := &ProgressRecord{}
	var errorMessage sql.NullString

	err := d.client.QueryRowContext(ctx, `
		SELECT job_id, step_id, status, current_row, total_rows, error_message, stop_call, created_at, updated_at
		FROM job_executions
		WHERE job_id = $1 AND step_id = $2
	`, jobID, stepID).Scan(
		&record.JobID, &record.StepID, &record.Status,
		&record.CurrentRow, &record.TotalRows,
		&errorMessage, &record.StopCall,
		&record.CreatedAt, &record.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job progress: %w", err)
	}

	record.ErrorMessage = errorMessage.String
	return record, nil
}

// UpsertProgress creates or sparsely updates the ledger row for
// (jobID, stepID). On insert, absent fields take their zero defaults. On
// update, only the non-nil fields of update are written; current_row never
// moves backwards.
func (d *DB) UpsertProgress(ctx context.Context, jobID, stepID string, update ProgressUpdate) error {
	existing, err := d.GetProgress(ctx, jobID, stepID)
	if err != nil {
		return err
	}

	if existing == nil {
		status := StatusRunning
		if update.Status != nil {
			status = *update.Status
		}
		currentRow := 0
		if update.CurrentRow != nil {
			currentRow = *update.CurrentRow
		}
		totalRows := 0
		if update.TotalRows != nil {
			totalRows = *update.TotalRows
		}
		errorMessage := ""
		if update.ErrorMessage != nil {
			errorMessage = *update.ErrorMessage
		}
		stopCall := false
		if update.StopCall != nil {
			stopCall = *update.StopCall
		}

		_, err := d.client.ExecContext(ctx, `
			INSERT INTO job_executions (job_id, step_id, status, current_row, total_rows, error_message, stop_call)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (job_id, step_id) DO NOTHING
		`, jobID, stepID, status, currentRow, totalRows, errorMessage, stopCall)
		if err != nil {
			return fmt.Errorf("failed to insert job progress: %w", err)
		}
		return nil
	}

	setClauses := []string{"updated_at = NOW()"}
	args := []interface{}{}
	arg := 1

	if update.Status != nil {
		setClauses = append(setClauses, fmt.Sprintf("status = $%d", arg))
		args = append(args, *update.Status)
		arg++
	}
	if update.CurrentRow != nil {
		setClauses = append(setClauses, fmt.Sprintf("current_row = GREATEST(current_row, $%d)", arg))
		args = append(args, *update.CurrentRow)
		arg++
	}
	if update.TotalRows != nil {
		setClauses = append(setClauses, fmt.Sprintf("total_rows = $%d", arg))
		args = append(args, *update.TotalRows)
		arg++
	}
	if update.ErrorMessage != nil {
		setClauses = append(setClauses, fmt.Sprintf("error_message = $%d", arg))
		args = append(args, *update.ErrorMessage)
		arg++
	}
	if update.StopCall != nil {
		setClauses = append(setClauses, fmt.Sprintf("stop_call = $%d", arg))
		args = append(args, *update.StopCall)
		arg++
	}

	query := fmt.Sprintf(
		"UPDATE job_executions SET %s WHERE job_id = $%d AND step_id = $%d",
		strings.Join(setClauses, ", "), arg, arg+1,
	)
	args = append(args, jobID, stepID)

	if _, err := d.client.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}

	log.Debug().
		Str("job_id", jobID).
		Str("step_id", stepID).
		Msg("Job progress updated")
	return nil
}

// DeleteProgress removes the ledger row for (jobID, stepID). Deleting a row
// that does not exist is not an error.
func (d *DB) DeleteProgress(ctx context.Context, jobID, stepID string) error {
	if _, err := d.client.ExecContext(ctx, `
		DELETE FROM job_executions WHERE job_id = $1 AND step_id = $2
	`, jobID, stepID); err != nil {
		return fmt.Errorf("failed to delete job progress: %w", err)
	}
	return nil
}
