// Package paginate implements PaginationHandler (§4.5): detecting how many
// pages a listing spans, and mining them one at a time with a polite delay
// and early-stop-on-duplicate/empty-streak guardrails.
package paginate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/contactminer/engine/pkg/config"
	"github.com/contactminer/engine/pkg/contact"
	"github.com/contactminer/engine/pkg/extractor"
	"github.com/contactminer/engine/pkg/router"
	"github.com/contactminer/engine/pkg/scout"
)

// DuplicateStreakLimit stops pagination after this many consecutive pages
// hash identically to the one before them.
const DuplicateStreakLimit = 2

// EmptyStreakLimit stops pagination after this many consecutive pages
// produce zero contacts.
const EmptyStreakLimit = 3

// Detection is PaginationHandler.detect's output: whether the input is
// paginated at all, how many pages were found (clamped to the configured
// ceiling), and the ordered list of page URLs to mine.
type Detection struct {
	Paginated bool
	TotalPages int
	PageURLs  []string
}

// MergedResult is mine_all_pages's output: the deduplicated, merged
// contact set plus bookkeeping about how pagination actually ran.
type MergedResult struct {
	Contacts      []contact.UnifiedContact
	PagesFetched  int
	StoppedReason string
}

// Handler runs PaginationHandler's detect/mine_all_pages operations.
type Handler struct {
	cfg *config.FlowConfig
}

// New constructs a Handler bounded by cfg's page ceiling and polite delay.
func New(cfg *config.FlowConfig) *Handler {
	if cfg == nil {
		cfg = config.DefaultFlowConfig()
	}
	return &Handler{cfg: cfg}
}

// Detect determines whether job's URL is paginated and builds the ordered
// list of page URLs to mine, per §4.5. decision.OwnPagination extractors
// are never paginated here — detect reports Paginated=false for them so
// the orchestrator skips straight to a single Mine call.
func (h *Handler) Detect(ctx context.Context, jobURL string, decision router.Decision, firstPageBody string) Detection {
	if decision.OwnPagination {
		return Detection{Paginated: false, TotalPages: 1, PageURLs: []string{jobURL}}
	}

	if decision.PaginationType == "" || decision.PaginationType == scout.PaginationNone {
		if !strings.Contains(jobURL, "page=") {
			return Detection{Paginated: false, TotalPages: 1, PageURLs: []string{jobURL}}
		}
	}

	total := h.detectTotalPages(jobURL, firstPageBody)
	if total > h.cfg.MaxPagesPerJob {
		total = h.cfg.MaxPagesPerJob
	}
	if total < 1 {
		total = 1
	}

	urls := make([]string, 0, total)
	for page := 1; page <= total; page++ {
		urls = append(urls, pageURL(jobURL, page))
	}

	return Detection{Paginated: total > 1, TotalPages: total, PageURLs: urls}
}

// detectTotalPages reads the last numbered pagination link from the first
// page's HTML, falling back to 1 when no pagination container is found.
func (h *Handler) detectTotalPages(jobURL, body string) int {
	if body == "" {
		return 1
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return 1
	}

	max := 1
	doc.Find(".pagination a, .pager a, nav[aria-label=\"pagination\"] a").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if n, err := strconv.Atoi(text); err == nil && n > max {
			max = n
		}
	})
	return max
}

// pageURL rewrites jobURL's page query parameter to the given page number,
// appending one if none exists.
func pageURL(jobURL string, page int) string {
	if page <= 1 && !strings.Contains(jobURL, "page=") {
		return jobURL
	}
	if strings.Contains(jobURL, "page=") {
		parts := strings.SplitN(jobURL, "page=", 2)
		rest := parts[1]
		if idx := strings.IndexAny(rest, "&#"); idx >= 0 {
			rest = rest[idx:]
		} else {
			rest = ""
		}
		return parts[0] + "page=" + strconv.Itoa(page) + rest
	}
	sep := "?"
	if strings.Contains(jobURL, "?") {
		sep = "&"
	}
	return jobURL + sep + "page=" + strconv.Itoa(page)
}

// extractorRunner is the subset of *extractor.Adapter's contract
// MineAllPages depends on, kept as a local interface so pagination logic
// can be tested without driving the full normalize/validate pipeline.
type extractorRunner interface {
	Run(ctx context.Context, job extractor.Job) ([]contact.UnifiedContact, extractor.Status, error)
}

// MineAllPages iterates pageURLs in order, sleeping PoliteDelay between
// requests, stopping early on a duplicate-content or empty-page streak,
// and merging every page's contacts via the aggregator's deterministic
// merge (§4.5, §4.8).
func (h *Handler) MineAllPages(ctx context.Context, ext extractorRunner, job extractor.Job, pageURLs []string) MergedResult {
	var all []contact.UnifiedContact
	var lastHash string
	duplicateStreak, emptyStreak := 0, 0
	pagesFetched := 0
	stopped := ""

	for i, url := range pageURLs {
		if ctx.Err() != nil {
			stopped = "context canceled"
			break
		}
		if i > 0 {
			select {
			case <-ctx.Done():
				stopped = "context canceled"
			case <-time.After(h.polite()):
			}
			if stopped != "" {
				break
			}
		}

		pageJob := job
		pageJob.URL = url

		contacts, status, err := ext.Run(ctx, pageJob)
		pagesFetched++

		if err != nil || status != extractor.StatusOK || len(contacts) == 0 {
			emptyStreak++
			duplicateStreak = 0
			if emptyStreak >= EmptyStreakLimit {
				stopped = fmt.Sprintf("empty streak of %d pages", emptyStreak)
				break
			}
			continue
		}
		emptyStreak = 0

		hash := contentHash(contacts)
		if hash == lastHash {
			duplicateStreak++
			if duplicateStreak >= DuplicateStreakLimit {
				stopped = fmt.Sprintf("duplicate content streak of %d pages", duplicateStreak)
				break
			}
		} else {
			duplicateStreak = 0
		}
		lastHash = hash

		all = append(all, contacts...)
	}

	return MergedResult{
		Contacts:      contact.Merge(all),
		PagesFetched:  pagesFetched,
		StoppedReason: stopped,
	}
}

func (h *Handler) polite() time.Duration {
	if h.cfg.PoliteDelay <= 0 {
		return 500 * time.Millisecond
	}
	return h.cfg.PoliteDelay
}

// contentHash computes a stable hash of a page's contacts from their
// sorted, lower-cased emails (§4.5: "sorted-email join"), used to detect
// when consecutive pages return identical content.
func contentHash(contacts []contact.UnifiedContact) string {
	emails := make([]string, 0, len(contacts))
	for _, c := range contacts {
		if c.HasEmail() {
			emails = append(emails, strings.ToLower(c.Email))
		}
	}
	sort.Strings(emails)
	sum := sha256.Sum256([]byte(strings.Join(emails, "|")))
	return hex.EncodeToString(sum[:])
}
