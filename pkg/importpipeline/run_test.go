package importpipeline

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportRowPrimaryEmailPicksFirstEligible(t *testing.T) {
	r := importRow{Emails: []string{"not-an-email", "Jane@Acme.Example"}}
	assert.Equal(t, "jane@acme.example", r.primaryEmail())
}

func TestImportRowPrimaryEmailEmptyWhenNoneEligible(t *testing.T) {
	r := importRow{Emails: nil}
	assert.Equal(t, "", r.primaryEmail())
}

func seedJobForImport(t *testing.T, db *sql.DB, tenantID string) string {
	t.Helper()
	jobID := uuid.NewString()
	_, err := db.ExecContext(context.Background(), `
		INSERT INTO jobs (job_id, tenant_id, input_url) VALUES ($1, $2, 'https://example.com')`,
		jobID, tenantID)
	require.NoError(t, err)
	return jobID
}

func seedResultRow(t *testing.T, db *sql.DB, jobID, tenantID, email, contactName, companyName string) {
	t.Helper()
	_, err := db.ExecContext(context.Background(), `
		INSERT INTO result_rows (result_id, job_id, tenant_id, emails, contact_name, company_name, confidence, status)
		VALUES ($1, $2, $3, $4, $5, $6, 50, 'new')`,
		uuid.NewString(), jobID, tenantID, []string{email}, contactName, companyName)
	require.NoError(t, err)
}

func TestStartImportPromotesRowsToProspectsAndCanonical(t *testing.T) {
	db := newTestDB(t)
	p := New(db)
	tenantID := "tenant-1"
	jobID := seedJobForImport(t, db, tenantID)

	seedResultRow(t, db, jobID, tenantID, "jane@acme.example", "Jane Doe", "Acme Corp")
	seedResultRow(t, db, jobID, tenantID, "bob@beta.example", "Bob Roe", "Beta Inc")

	result, err := p.StartImport(context.Background(), jobID, tenantID, Request{Tags: []string{"conference-2026"}})
	require.NoError(t, err)
	assert.Equal(t, "processing", result.Status)
	assert.Equal(t, 2, result.TotalToImport)

	require.Eventually(t, func() bool {
		var status string
		err := db.QueryRowContext(context.Background(), `SELECT import_status FROM jobs WHERE job_id = $1`, jobID).Scan(&status)
		return err == nil && status == "completed"
	}, 10*time.Second, 50*time.Millisecond)

	var prospectCount int
	err = db.QueryRowContext(context.Background(), `SELECT count(*) FROM prospects WHERE tenant_id = $1`, tenantID).Scan(&prospectCount)
	require.NoError(t, err)
	assert.Equal(t, 2, prospectCount)

	var personCount int
	err = db.QueryRowContext(context.Background(), `SELECT count(*) FROM persons WHERE tenant_id = $1`, tenantID).Scan(&personCount)
	require.NoError(t, err)
	assert.Equal(t, 2, personCount)

	var rowStatus string
	err = db.QueryRowContext(context.Background(), `
		SELECT status FROM result_rows WHERE job_id = $1 AND contact_name = 'Jane Doe'`, jobID).Scan(&rowStatus)
	require.NoError(t, err)
	assert.Equal(t, "imported", rowStatus)
}

func TestStartImportRejectsConcurrentNonStaleImport(t *testing.T) {
	db := newTestDB(t)
	p := New(db)
	tenantID := "tenant-1"
	jobID := seedJobForImport(t, db, tenantID)
	seedResultRow(t, db, jobID, tenantID, "jane@acme.example", "Jane Doe", "Acme Corp")

	_, err := db.ExecContext(context.Background(), `
		UPDATE jobs SET import_status = 'processing', import_started_at = now() WHERE job_id = $1`, jobID)
	require.NoError(t, err)

	_, err = p.StartImport(context.Background(), jobID, tenantID, Request{})
	assert.ErrorIs(t, err, ErrImportInProgress)
}

func TestStartImportAllowsReimportAfterStaleness(t *testing.T) {
	db := newTestDB(t)
	p := New(db)
	tenantID := "tenant-1"
	jobID := seedJobForImport(t, db, tenantID)
	seedResultRow(t, db, jobID, tenantID, "jane@acme.example", "Jane Doe", "Acme Corp")

	_, err := db.ExecContext(context.Background(), `
		UPDATE jobs SET import_status = 'processing', import_started_at = now() - interval '10 minutes' WHERE job_id = $1`, jobID)
	require.NoError(t, err)

	_, err = p.StartImport(context.Background(), jobID, tenantID, Request{})
	assert.NoError(t, err)
}

func TestStartImportRejectsDuplicateListName(t *testing.T) {
	db := newTestDB(t)
	p := New(db)
	tenantID := "tenant-1"
	jobID := seedJobForImport(t, db, tenantID)
	seedResultRow(t, db, jobID, tenantID, "jane@acme.example", "Jane Doe", "Acme Corp")

	_, err := db.ExecContext(context.Background(), `INSERT INTO lists (list_id, tenant_id, name) VALUES ($1, $2, $3)`,
		uuid.NewString(), tenantID, "my-list")
	require.NoError(t, err)

	_, err = p.StartImport(context.Background(), jobID, tenantID, Request{CreateList: true, ListName: "my-list"})
	assert.ErrorIs(t, err, ErrListNameTaken)
}

func TestStartImportJobNotFound(t *testing.T) {
	db := newTestDB(t)
	p := New(db)
	_, err := p.StartImport(context.Background(), "missing-job", "tenant-1", Request{})
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestDedupWithinBatchKeepsFirstAndMarksRestImported(t *testing.T) {
	db := newTestDB(t)
	tenantID := "tenant-1"
	jobID := seedJobForImport(t, db, tenantID)
	seedResultRow(t, db, jobID, tenantID, "jane@acme.example", "Jane Doe", "Acme Corp")
	seedResultRow(t, db, jobID, tenantID, "jane@acme.example", "Jane D.", "Acme Corp")

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	defer tx.Rollback()

	rows := []importRow{
		{ResultID: "a", Emails: []string{"jane@acme.example"}},
		{ResultID: "b", Emails: []string{"jane@acme.example"}},
	}
	// Seed matching result_id values so the UPDATE in dedupAndMarkImported has
	// a real row to flip; reuse the rows just inserted by reading their ids.
	idRows, err := db.QueryContext(context.Background(), `SELECT result_id FROM result_rows WHERE job_id = $1 ORDER BY result_id`, jobID)
	require.NoError(t, err)
	var ids []string
	for idRows.Next() {
		var id string
		require.NoError(t, idRows.Scan(&id))
		ids = append(ids, id)
	}
	idRows.Close()
	require.Len(t, ids, 2)
	rows[0].ResultID = ids[0]
	rows[1].ResultID = ids[1]

	survivors, skipped, err := dedupAndMarkImported(context.Background(), tx, rows)
	require.NoError(t, err)
	assert.Len(t, survivors, 1)
	assert.Equal(t, 1, skipped)
}
