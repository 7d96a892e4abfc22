package paginate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactminer/engine/pkg/config"
	"github.com/contactminer/engine/pkg/contact"
	"github.com/contactminer/engine/pkg/extractor"
	"github.com/contactminer/engine/pkg/router"
)

func fastConfig() *config.FlowConfig {
	cfg := config.DefaultFlowConfig()
	cfg.PoliteDelay = time.Millisecond
	cfg.MaxPagesPerJob = 50
	return cfg
}

func TestDetectSkipsOwnPaginationExtractors(t *testing.T) {
	h := New(fastConfig())
	d := h.Detect(context.Background(), "https://example.com/list", router.Decision{OwnPagination: true}, "")
	assert.False(t, d.Paginated)
	assert.Equal(t, []string{"https://example.com/list"}, d.PageURLs)
}

func TestDetectFindsTotalPagesFromPaginationLinks(t *testing.T) {
	h := New(fastConfig())
	body := `<div class="pagination"><a href="?page=1">1</a><a href="?page=2">2</a><a href="?page=5">5</a></div>`
	d := h.Detect(context.Background(), "https://example.com/list?page=1", router.Decision{}, body)
	assert.True(t, d.Paginated)
	assert.Equal(t, 5, d.TotalPages)
	assert.Len(t, d.PageURLs, 5)
}

func TestDetectClampsToMaxPagesPerJob(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxPagesPerJob = 2
	h := New(cfg)
	body := `<div class="pagination"><a href="?page=1">1</a><a href="?page=99">99</a></div>`
	d := h.Detect(context.Background(), "https://example.com/list?page=1", router.Decision{}, body)
	assert.Equal(t, 2, d.TotalPages)
}

// scriptedRunner returns a preprogrammed contact list per call, used to
// drive MineAllPages through duplicate/empty streaks deterministically
// without routing through the full normalize/validate pipeline.
type scriptedRunner struct {
	emailsPerCall [][]string
	call          int
}

func (s *scriptedRunner) Run(ctx context.Context, job extractor.Job) ([]contact.UnifiedContact, extractor.Status, error) {
	emails := s.emailsPerCall[s.call]
	s.call++
	if len(emails) == 0 {
		return nil, extractor.StatusEmpty, nil
	}
	contacts := make([]contact.UnifiedContact, 0, len(emails))
	for _, e := range emails {
		contacts = append(contacts, contact.UnifiedContact{Email: e, Source: "testMiner", SourceURL: job.URL, Confidence: 60})
	}
	return contacts, extractor.StatusOK, nil
}

func TestMineAllPagesStopsOnDuplicateStreak(t *testing.T) {
	h := New(fastConfig())
	ad := &scriptedRunner{emailsPerCall: [][]string{
		{"jane@acme.com"},
		{"jane@acme.com"},
		{"jane@acme.com"},
		{"new@acme.com"},
	}}

	result := h.MineAllPages(context.Background(), ad, extractor.Job{ID: "j1", TenantID: "t1"},
		[]string{"p1", "p2", "p3", "p4"})

	assert.Equal(t, 3, result.PagesFetched)
	assert.Contains(t, result.StoppedReason, "duplicate")
}

func TestMineAllPagesStopsOnEmptyStreak(t *testing.T) {
	h := New(fastConfig())
	ad := &scriptedRunner{emailsPerCall: [][]string{
		{"jane@acme.com"},
		{},
		{},
		{},
		{"late@acme.com"},
	}}

	result := h.MineAllPages(context.Background(), ad, extractor.Job{ID: "j1", TenantID: "t1"},
		[]string{"p1", "p2", "p3", "p4", "p5"})

	assert.Equal(t, 4, result.PagesFetched)
	assert.Contains(t, result.StoppedReason, "empty")
}

func TestMineAllPagesMergesAcrossPages(t *testing.T) {
	h := New(fastConfig())
	ad := &scriptedRunner{emailsPerCall: [][]string{
		{"jane@acme.com"},
		{"john@beta.com"},
	}}

	result := h.MineAllPages(context.Background(), ad, extractor.Job{ID: "j1", TenantID: "t1"},
		[]string{"p1", "p2"})

	require.Len(t, result.Contacts, 2)
	assert.Empty(t, result.StoppedReason)
}
