package api

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/contactminer/engine/pkg/config"
	"github.com/contactminer/engine/pkg/importpipeline"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testJWTSecret = "test-secret"

func newTestServer(db *sql.DB) *Server {
	return NewServer(db, importpipeline.New(db), config.DefaultCanonicalConfig(), &config.AuthConfig{
		JWTSecret:        testJWTSecret,
		ManualMinerToken: "manual-token-xyz",
	})
}

func seedJob(t *testing.T, db *sql.DB, tenantID string) string {
	t.Helper()
	jobID := uuid.NewString()
	_, err := db.ExecContext(context.Background(), `
		INSERT INTO jobs (job_id, tenant_id, input_url, status)
		VALUES ($1, $2, 'https://example.com', 'flow1_complete')`,
		jobID, tenantID,
	)
	require.NoError(t, err)
	return jobID
}

// newTestContext builds a gin context/recorder pair around req, the way
// gin.CreateTestContext is meant to be used for unit-testing a handler
// directly without standing up a full http.Server (mirrors the teacher's
// echo.New()/e.NewContext idiom, ported to gin).
func newTestContext(req *http.Request) (*gin.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = req
	return c, rec
}

func TestHealthReportsHealthyWithReachableDB(t *testing.T) {
	db := newTestDB(t)
	s := newTestServer(db)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	c, rec := newTestContext(req)

	s.Health(c)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestHealthReportsUnhealthyWhenDBClosed(t *testing.T) {
	db := newTestDB(t)
	s := newTestServer(db)
	require.NoError(t, db.Close())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	c, rec := newTestContext(req)

	s.Health(c)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouterRegistersExpectedRoutes(t *testing.T) {
	db := newTestDB(t)
	s := newTestServer(db)

	r := s.Router()

	seen := map[string]bool{}
	for _, ri := range r.Routes() {
		seen[ri.Method+" "+ri.Path] = true
	}

	for _, want := range []string{
		"GET /health",
		"POST /api/mining/jobs/:id/results",
		"GET /api/mining/jobs/:id/results",
		"POST /api/mining/jobs/:id/import-all",
		"GET /api/mining/jobs/:id/import-preview",
		"PATCH /api/mining/results/:id",
		"DELETE /api/mining/results/:id",
	} {
		require.Truef(t, seen[want], "expected route %q to be registered", want)
	}
}
