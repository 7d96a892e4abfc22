package cleanup

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/contactminer/engine/pkg/config"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.PingContext(ctx))
	applyMigrations(t, db)

	return db
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := "../database/migrations"
	for _, name := range []string{"0001_init.up.sql", "0002_orchestrator_claims.up.sql"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)

		var sqlOnly []string
		for _, line := range strings.Split(string(data), "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			sqlOnly = append(sqlOnly, line)
		}

		for _, stmt := range strings.Split(strings.Join(sqlOnly, "\n"), ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			_, err := db.ExecContext(context.Background(), stmt)
			require.NoError(t, err)
		}
	}
}

func insertJob(t *testing.T, db *sql.DB, jobID, status string, completedAt *time.Time) {
	t.Helper()
	_, err := db.ExecContext(context.Background(), `
		INSERT INTO jobs (job_id, tenant_id, input_url, status, completed_at)
		VALUES ($1, 'tenant-1', 'https://example.com', $2, $3)`,
		jobID, status, completedAt)
	require.NoError(t, err)
}

func jobExists(t *testing.T, db *sql.DB, jobID string) bool {
	t.Helper()
	var exists bool
	err := db.QueryRowContext(context.Background(),
		`SELECT EXISTS(SELECT 1 FROM jobs WHERE job_id = $1)`, jobID).Scan(&exists)
	require.NoError(t, err)
	return exists
}

func TestService_PurgesOldCompletedJobs(t *testing.T) {
	db := newTestDB(t)
	old := time.Now().Add(-400 * 24 * time.Hour)
	insertJob(t, db, "old-completed", "completed", &old)

	cfg := &config.RetentionConfig{JobRetentionDays: 90, EventTTL: time.Hour, CleanupInterval: time.Hour}
	svc := NewService(cfg, db, nil)
	svc.runAll(context.Background())

	require.False(t, jobExists(t, db, "old-completed"))
}

func TestService_PreservesRecentJobs(t *testing.T) {
	db := newTestDB(t)
	recent := time.Now()
	insertJob(t, db, "recent-completed", "completed", &recent)

	cfg := &config.RetentionConfig{JobRetentionDays: 90, EventTTL: time.Hour, CleanupInterval: time.Hour}
	svc := NewService(cfg, db, nil)
	svc.runAll(context.Background())

	require.True(t, jobExists(t, db, "recent-completed"))
}

func TestService_PreservesRunningJobsRegardlessOfAge(t *testing.T) {
	db := newTestDB(t)
	old := time.Now().Add(-400 * 24 * time.Hour)
	// still running: no completed_at set even though created_at would be old.
	insertJob(t, db, "still-running", "flow1_running", nil)
	_, err := db.ExecContext(context.Background(),
		`UPDATE jobs SET created_at = $1 WHERE job_id = $2`, old, "still-running")
	require.NoError(t, err)

	cfg := &config.RetentionConfig{JobRetentionDays: 90, EventTTL: time.Hour, CleanupInterval: time.Hour}
	svc := NewService(cfg, db, nil)
	svc.runAll(context.Background())

	require.True(t, jobExists(t, db, "still-running"))
}

func TestService_SweepsInactiveCircuits(t *testing.T) {
	db := newTestDB(t)
	var swept int
	cfg := &config.RetentionConfig{JobRetentionDays: 90, EventTTL: time.Hour, CleanupInterval: time.Hour}
	svc := NewService(cfg, db, func(now time.Time) int {
		swept = 3
		return swept
	})
	svc.runAll(context.Background())

	require.Equal(t, 3, swept)
}
