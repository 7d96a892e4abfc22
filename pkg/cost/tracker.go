// Package cost implements per-URL, per-job, and per-tenant monetary
// accounting with monthly rollover (§4.12).
package cost

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Operation identifies a billable unit of work.
type Operation string

const (
	OpAIExtraction Operation = "ai_extraction"
	OpBrowserPage  Operation = "browser_page"
	OpHTTPFetch    Operation = "http_fetch"
	OpDeepCrawl    Operation = "deep_crawl_page"
)

// costHundredths gives cost in hundredths of a cent, avoiding float money.
// $0.01 AI extraction = 100, $0.001 browser page = 10, $0.0001 HTTP = 1,
// $0.005 deep-crawl page = 50.
var costHundredths = map[Operation]int64{
	OpAIExtraction: 100,
	OpBrowserPage:  10,
	OpHTTPFetch:    1,
	OpDeepCrawl:    50,
}

// Limits in hundredths of a cent, and a retry cap.
const (
	LimitPerURLHundredths         = 1000  // $0.10
	LimitPerJobHundredths         = 20000 // $2.00
	LimitPerTenantMonthlyHundreds = 500000 // $50
	MaxRetriesPerURL              = 3
)

type urlState struct {
	spentHundredths int64
	retries         int
}

type jobState struct {
	spentHundredths int64
	urls            map[string]*urlState
}

type tenantState struct {
	spentHundredths int64
	lastResetMonth  time.Month
	lastResetYear   int
}

// Tracker is a process-singleton accounting service, constructed once at
// startup and injected into the FlowOrchestrator.
type Tracker struct {
	mu      sync.Mutex
	jobs    map[string]*jobState
	tenants map[string]*tenantState
}

// New constructs an empty Tracker.
func New() *Tracker {
	return &Tracker{
		jobs:    make(map[string]*jobState),
		tenants: make(map[string]*tenantState),
	}
}

// CanProceed reports whether op against url in job is within budget, given
// the owning tenantID. now drives the tenant's monthly rollover check.
func (t *Tracker) CanProceed(jobID, tenantID, url string, op Operation, now time.Time) (allowed bool, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rolloverTenantLocked(tenantID, now)

	js := t.jobs[jobID]
	if js == nil {
		js = &jobState{urls: make(map[string]*urlState)}
		t.jobs[jobID] = js
	}
	us := js.urls[url]
	if us == nil {
		us = &urlState{}
		js.urls[url] = us
	}
	ts := t.tenants[tenantID]

	if us.retries >= MaxRetriesPerURL {
		return false, fmt.Sprintf("url %s exceeded max retries (%d)", url, MaxRetriesPerURL)
	}

	cost := costHundredths[op]

	if us.spentHundredths+cost > LimitPerURLHundredths {
		return false, fmt.Sprintf("url %s would exceed per-URL limit", url)
	}
	if js.spentHundredths+cost > LimitPerJobHundredths {
		return false, fmt.Sprintf("job %s would exceed per-job limit", jobID)
	}
	if ts != nil && ts.spentHundredths+cost > LimitPerTenantMonthlyHundreds {
		return false, fmt.Sprintf("tenant %s would exceed monthly limit", tenantID)
	}

	return true, ""
}

// RecordCost updates the per-URL, per-job, and per-tenant tallies after an
// operation completes (successfully or not — retries still cost money).
func (t *Tracker) RecordCost(jobID, tenantID, url string, op Operation, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rolloverTenantLocked(tenantID, now)

	js := t.jobs[jobID]
	if js == nil {
		js = &jobState{urls: make(map[string]*urlState)}
		t.jobs[jobID] = js
	}
	us := js.urls[url]
	if us == nil {
		us = &urlState{}
		js.urls[url] = us
	}
	ts := t.tenants[tenantID]
	if ts == nil {
		ts = &tenantState{lastResetMonth: now.Month(), lastResetYear: now.Year()}
		t.tenants[tenantID] = ts
	}

	cost := costHundredths[op]
	us.spentHundredths += cost
	us.retries++
	js.spentHundredths += cost
	ts.spentHundredths += cost
}

// rolloverTenantLocked resets a tenant's monthly tally when the calendar
// month has advanced since the last reset. Caller must hold t.mu.
func (t *Tracker) rolloverTenantLocked(tenantID string, now time.Time) {
	ts := t.tenants[tenantID]
	if ts == nil {
		t.tenants[tenantID] = &tenantState{lastResetMonth: now.Month(), lastResetYear: now.Year()}
		return
	}
	if ts.lastResetMonth != now.Month() || ts.lastResetYear != now.Year() {
		ts.spentHundredths = 0
		ts.lastResetMonth = now.Month()
		ts.lastResetYear = now.Year()
	}
}

// JobSpentCents returns a job's accumulated spend in whole cents, rounded down.
func (t *Tracker) JobSpentCents(jobID string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	js := t.jobs[jobID]
	if js == nil {
		return 0
	}
	return js.spentHundredths / 100
}

// ReleaseJob drops per-job and per-URL state once a job finishes, since only
// the tenant-monthly tally needs to persist across jobs.
func (t *Tracker) ReleaseJob(ctx context.Context, jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.jobs, jobID)
}
