package importpipeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// rowError records one row-level failure, kept bounded to MaxRecordedErrors.
type rowError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// progress is the import_progress JSON blob on the Job row (§4.11 step 2.f,
// step 3).
type progress struct {
	Imported        int        `json:"imported"`
	Skipped         int        `json:"skipped"`
	Duplicates      int        `json:"duplicates"`
	Errors          []rowError `json:"errors"`
	ListMemberCount int        `json:"list_member_count,omitempty"`
}

func (p *progress) recordError(id string, err error) {
	p.Errors = append(p.Errors, rowError{ID: id, Error: err.Error()})
	if len(p.Errors) > MaxRecordedErrors {
		p.Errors = p.Errors[len(p.Errors)-MaxRecordedErrors:]
	}
}

// write persists the current progress snapshot on the Job row.
func (p *progress) write(ctx context.Context, db *sql.DB, jobID string) error {
	blob, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `UPDATE jobs SET import_progress = $2 WHERE job_id = $1`, jobID, blob)
	return err
}

// finish marks the job's import terminal state (§4.11 step 3).
func (p *progress) finish(ctx context.Context, db *sql.DB, jobID string, failed bool, failureReason string) error {
	blob, err := json.Marshal(p)
	if err != nil {
		return err
	}
	status := "completed"
	if failed {
		status = "failed"
	}
	var errMsg any
	if failureReason != "" {
		errMsg = failureReason
	}
	_, err = db.ExecContext(ctx, `
		UPDATE jobs
		SET import_status = $2, import_progress = $3, error_message = COALESCE($4, error_message)
		WHERE job_id = $1`,
		jobID, status, blob, errMsg,
	)
	if err != nil {
		return fmt.Errorf("write final import progress: %w", err)
	}
	return nil
}
