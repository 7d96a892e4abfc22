package cost

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanProceedWithinBudget(t *testing.T) {
	tr := New()
	now := time.Now()
	allowed, reason := tr.CanProceed("job-1", "tenant-a", "https://example.com", OpHTTPFetch, now)
	assert.True(t, allowed)
	assert.Empty(t, reason)
}

func TestRecordCostAccumulatesPerJob(t *testing.T) {
	tr := New()
	now := time.Now()
	tr.RecordCost("job-1", "tenant-a", "https://example.com/a", OpAIExtraction, now)
	tr.RecordCost("job-1", "tenant-a", "https://example.com/b", OpAIExtraction, now)
	assert.Equal(t, int64(2), tr.JobSpentCents("job-1"))
}

func TestPerURLRetryLimit(t *testing.T) {
	tr := New()
	now := time.Now()
	url := "https://slow.example.com"
	for i := 0; i < MaxRetriesPerURL; i++ {
		tr.RecordCost("job-1", "tenant-a", url, OpHTTPFetch, now)
	}
	allowed, reason := tr.CanProceed("job-1", "tenant-a", url, OpHTTPFetch, now)
	assert.False(t, allowed)
	assert.Contains(t, reason, "max retries")
}

func TestPerJobLimitEnforced(t *testing.T) {
	tr := New()
	now := time.Now()
	for i := 0; i < 200; i++ {
		tr.RecordCost("job-1", "tenant-a", "https://example.com/page", OpAIExtraction, now)
	}
	allowed, reason := tr.CanProceed("job-1", "tenant-a", "https://example.com/page2", OpAIExtraction, now)
	assert.False(t, allowed)
	assert.Contains(t, reason, "per-job limit")
}

func TestTenantMonthlyRollover(t *testing.T) {
	tr := New()
	january := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)
	// 5000 AI extractions spread over 25 jobs of 200 each: every job stays
	// within its own limit while the tenant reaches its $50 monthly limit.
	for i := 0; i < 5000; i++ {
		tr.RecordCost(fmt.Sprintf("job-jan-%d", i/200), "tenant-a", "https://example.com", OpAIExtraction, january)
	}
	allowed, _ := tr.CanProceed("job-jan", "tenant-a", "https://example.com/new", OpAIExtraction, january)
	assert.False(t, allowed, "tenant should be over monthly budget in January")

	february := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	allowed, reason := tr.CanProceed("job-feb", "tenant-a", "https://example.com/new", OpAIExtraction, february)
	assert.True(t, allowed, "tenant budget should reset in February: %s", reason)
}

func TestReleaseJobDropsState(t *testing.T) {
	tr := New()
	now := time.Now()
	tr.RecordCost("job-1", "tenant-a", "https://example.com", OpHTTPFetch, now)
	assert.NotZero(t, tr.JobSpentCents("job-1"))

	tr.ReleaseJob(context.Background(), "job-1")
	assert.Zero(t, tr.JobSpentCents("job-1"))
}
