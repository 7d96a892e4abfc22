// Package importpipeline implements the background import pipeline
// (§4.11): promoting a job's ResultRows into legacy prospects, optional
// list membership, and canonical persons/affiliations.
package importpipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BatchSize is the number of rows processed per transaction (§4.11 step 2.a).
const BatchSize = 200

// StalenessThreshold is how long an import can sit in "processing" before a
// new import request is allowed to supersede it (§4.11 preconditions).
const StalenessThreshold = 5 * time.Minute

// MaxRecordedErrors bounds the per-row error log kept in import_progress
// (§4.11 step 2.d: "keep only last 10").
const MaxRecordedErrors = 10

var (
	ErrJobNotFound      = errors.New("importpipeline: job not found")
	ErrImportInProgress = errors.New("importpipeline: import already in progress")
	ErrListNameTaken    = errors.New("importpipeline: list name already in use for this tenant")
)

// Request is start_import's input body (§6 POST .../import-all).
type Request struct {
	Tags       []string
	CreateList bool
	ListName   string
}

// StartResult is the 202-accepted response body.
type StartResult struct {
	Status        string
	JobID         string
	TotalToImport int
	TagsApplied   []string
	ListCreated   bool
	ListID        string
}

// Pipeline drives background imports against the relational store.
type Pipeline struct {
	db *sql.DB
}

// New constructs a Pipeline.
func New(db *sql.DB) *Pipeline {
	return &Pipeline{db: db}
}

// StartImport runs the synchronous preflight checks (§4.11 preconditions),
// then launches the background batch loop in a goroutine and returns
// immediately with the 202 response body.
func (p *Pipeline) StartImport(ctx context.Context, jobID, tenantID string, req Request) (StartResult, error) {
	result, listID, err := p.preflight(ctx, jobID, tenantID, req)
	if err != nil {
		return StartResult{}, err
	}

	go p.runBackground(context.Background(), jobID, tenantID, req, listID)

	return result, nil
}

// preflight validates the job exists and belongs to the tenant, that no
// concurrent non-stale import is running, and (if creating a list) that the
// name is unique per tenant; it also creates the list row if requested, so
// callers don't race each other between preflight and the background loop.
func (p *Pipeline) preflight(ctx context.Context, jobID, tenantID string, req Request) (StartResult, string, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return StartResult{}, "", err
	}
	defer tx.Rollback()

	var (
		importStatus string
		importedAt   sql.NullTime
	)
	err = tx.QueryRowContext(ctx, `
		SELECT import_status, import_started_at
		FROM jobs
		WHERE job_id = $1 AND tenant_id = $2
		FOR UPDATE`,
		jobID, tenantID,
	).Scan(&importStatus, &importedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return StartResult{}, "", ErrJobNotFound
	}
	if err != nil {
		return StartResult{}, "", fmt.Errorf("load job: %w", err)
	}

	if importStatus == "processing" && importedAt.Valid && time.Since(importedAt.Time) < StalenessThreshold {
		return StartResult{}, "", ErrImportInProgress
	}

	var total int
	if err := tx.QueryRowContext(ctx, `
		SELECT count(*) FROM result_rows
		WHERE job_id = $1 AND array_length(emails, 1) > 0 AND status != 'imported'`,
		jobID,
	).Scan(&total); err != nil {
		return StartResult{}, "", fmt.Errorf("count importable rows: %w", err)
	}

	var listID string
	listCreated := false
	if req.CreateList {
		var exists bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM lists WHERE tenant_id = $1 AND name = $2)`,
			tenantID, req.ListName,
		).Scan(&exists); err != nil {
			return StartResult{}, "", fmt.Errorf("check list name: %w", err)
		}
		if exists {
			return StartResult{}, "", ErrListNameTaken
		}

		listID = uuid.NewString()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO lists (list_id, tenant_id, name) VALUES ($1, $2, $3)`,
			listID, tenantID, req.ListName,
		); err != nil {
			return StartResult{}, "", fmt.Errorf("create list: %w", err)
		}
		listCreated = true
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE jobs SET import_status = 'processing', import_started_at = now()
		WHERE job_id = $1`, jobID); err != nil {
		return StartResult{}, "", fmt.Errorf("mark import processing: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return StartResult{}, "", err
	}

	return StartResult{
		Status: "processing", JobID: jobID, TotalToImport: total,
		TagsApplied: req.Tags, ListCreated: listCreated, ListID: listID,
	}, listID, nil
}
