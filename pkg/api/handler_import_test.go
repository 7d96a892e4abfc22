package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartImportReturns202AndBeginsBackgroundRun(t *testing.T) {
	db := newTestDB(t)
	s := newTestServer(db)
	jobID := seedJob(t, db, "tenant-a")
	insertResultRow(t, db, jobID, "tenant-a", []string{"a@acme.com"}, "new", "US")

	req := httptest.NewRequest(http.MethodPost, "/api/mining/jobs/"+jobID+"/import-all", bytes.NewBufferString(`{"tags":["vip"]}`))
	req.Header.Set("Content-Type", "application/json")
	c, rec := newTestContext(req)
	withIDParam(c, jobID)
	c.Set(tenantIDKey, "tenant-a")

	s.StartImport(c)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "processing", resp["status"])
	assert.EqualValues(t, 1, resp["total_to_import"])
}

func TestStartImportReturns404ForUnknownJob(t *testing.T) {
	db := newTestDB(t)
	s := newTestServer(db)

	req := httptest.NewRequest(http.MethodPost, "/api/mining/jobs/missing/import-all", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	c, rec := newTestContext(req)
	withIDParam(c, "missing")
	c.Set(tenantIDKey, "tenant-a")

	s.StartImport(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartImportReturns409WhenAlreadyInProgress(t *testing.T) {
	db := newTestDB(t)
	s := newTestServer(db)
	jobID := seedJob(t, db, "tenant-a")
	_, err := db.ExecContext(context.Background(), `
		UPDATE jobs SET import_status = 'processing', import_started_at = now() WHERE job_id = $1`, jobID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/mining/jobs/"+jobID+"/import-all", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	c, rec := newTestContext(req)
	withIDParam(c, jobID)
	c.Set(tenantIDKey, "tenant-a")

	s.StartImport(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestImportPreviewCountsResultRows(t *testing.T) {
	db := newTestDB(t)
	s := newTestServer(db)
	jobID := seedJob(t, db, "tenant-a")
	insertResultRow(t, db, jobID, "tenant-a", []string{"a@acme.com"}, "new", "US")
	insertResultRow(t, db, jobID, "tenant-a", nil, "new", "US")
	insertResultRow(t, db, jobID, "tenant-a", []string{"b@acme.com"}, "imported", "FR")

	req := httptest.NewRequest(http.MethodGet, "/api/mining/jobs/"+jobID+"/import-preview", nil)
	c, rec := newTestContext(req)
	withIDParam(c, jobID)
	c.Set(tenantIDKey, "tenant-a")

	s.ImportPreview(c)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 3, resp["total_results"])
	assert.EqualValues(t, 2, resp["with_email"])
	assert.EqualValues(t, 1, resp["importable"])
	assert.EqualValues(t, 1, resp["already_imported"])
	assert.EqualValues(t, 1, resp["without_email"])
}
