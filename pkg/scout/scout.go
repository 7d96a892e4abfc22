// Package scout implements the page analyzer (§4.1): a single fail-open
// fetch-and-classify pass that tells the router which extractor to use.
package scout

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/contactminer/engine/pkg/htmlcache"
)

// FetchTimeout is Scout's own HTTP fetch timeout (§5).
const FetchTimeout = 15 * time.Second

// PageType classifies a fetched page.
type PageType string

const (
	PageExhibitorTable PageType = "exhibitor_table"
	PageExhibitorList  PageType = "exhibitor_list"
	PageSinglePage     PageType = "single_page"
	PagePaginated      PageType = "paginated"
	PageDynamic        PageType = "dynamic"
	PageDocumentViewer PageType = "document_viewer"
	PageDirectory      PageType = "directory"
	PageSPACatalog     PageType = "spa_catalog"
	PageBlocked        PageType = "blocked"
	PageError          PageType = "error"
	PageUnknown        PageType = "unknown"
)

// PaginationType classifies the pagination mechanism detected on a page.
type PaginationType string

const (
	PaginationNumbered   PaginationType = "numbered"
	PaginationNextButton PaginationType = "next_button"
	PaginationLoadMore   PaginationType = "load_more"
	PaginationInfinite   PaginationType = "infinite"
	PaginationNone       PaginationType = "none"
)

// Recommendation is Scout's extractor routing hint.
type Recommendation struct {
	Miner          string
	UseCache       bool
	Reason         string
	OwnPagination  bool
}

// Report is Scout's analysis output for one URL.
type Report struct {
	PageType             PageType
	PaginationType       PaginationType
	EmailCount           int
	DetailLinkCount      int
	HasTable             bool
	HasDynamicIndicators bool
	Recommendation       Recommendation
	AnalysisTimeMS       int64
}

// knownDirectoryHosts is the curated hostname list forcing directory
// routing regardless of other signals (§4.1 step c.i).
var knownDirectoryHosts = map[string]bool{
	"europages.com":  true,
	"kompass.com":    true,
	"yellowpages.com": true,
	"europages.co.uk": true,
}

var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

var pageParamPattern = regexp.MustCompile(`[?&]page=\d+`)

var jsFrameworkMarkers = []string{"react", "vue", "angular", "__next", "ng-app", "data-reactroot"}

var spaRootSelectors = []string{"#app", "#root", "#__next"}

// Analyzer runs Scout's page analysis, optionally backed by an HTML cache.
type Analyzer struct {
	httpClient *http.Client
	cache      *htmlcache.Cache
	logger     *slog.Logger
}

// New constructs an Analyzer. cache may be nil to always fetch live.
func New(cache *htmlcache.Cache) *Analyzer {
	return &Analyzer{
		httpClient: &http.Client{Timeout: FetchTimeout},
		cache:      cache,
		logger:     slog.Default(),
	}
}

// Analyze runs the ordered, fail-open algorithm from §4.1.
func (a *Analyzer) Analyze(ctx context.Context, url string) Report {
	start := time.Now()
	report := a.analyze(ctx, url)
	report.AnalysisTimeMS = time.Since(start).Milliseconds()
	return report
}

func (a *Analyzer) analyze(ctx context.Context, url string) Report {
	if strings.HasSuffix(strings.ToLower(strings.SplitN(url, "?", 2)[0]), ".pdf") {
		return Report{
			PageType:       PageDocumentViewer,
			Recommendation: Recommendation{Miner: "documentMiner", UseCache: true, Reason: "pdf extension"},
		}
	}

	body, status, err := a.fetch(ctx, url)
	if err != nil {
		a.logger.Warn("scout fetch failed", "url", url, "error", err)
		return Report{
			PageType:       PageError,
			Recommendation: Recommendation{Miner: "playwrightMiner", UseCache: false, Reason: "http fetch error: " + err.Error()},
		}
	}
	if status == 401 || status == 403 || status == 429 {
		return Report{
			PageType:       PageBlocked,
			Recommendation: Recommendation{Miner: "playwrightMiner", UseCache: false, Reason: "blocked status " + http.StatusText(status)},
		}
	}

	return a.classify(url, body)
}

// fetch retrieves body via the HTML cache when available, falling back to a
// single plain HTTP GET on a cache miss.
func (a *Analyzer) fetch(ctx context.Context, url string) (body string, status int, err error) {
	if a.cache != nil {
		if cached, ok, cacheErr := a.cache.Get(ctx, url); cacheErr == nil && ok {
			return cached, http.StatusOK, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, err
	}
	body = string(data)

	if a.cache != nil && resp.StatusCode == http.StatusOK {
		_ = a.cache.Store(ctx, url, body)
	}
	return body, resp.StatusCode, nil
}

// classify applies the HTML-driven heuristics from §4.1 steps c-f.
func (a *Analyzer) classify(url, body string) Report {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Report{
			PageType:       PageError,
			Recommendation: Recommendation{Miner: "playwrightMiner", UseCache: false, Reason: "html parse error"},
		}
	}

	host := hostOf(url)
	emailCount := len(emailPattern.FindAllString(body, -1))
	hasTable := doc.Find("table").Length() > 0
	detailLinks := doc.Find("a[href]").Length()

	if knownDirectoryHosts[host] {
		return Report{
			PageType:        PageDirectory,
			EmailCount:      emailCount,
			HasTable:        hasTable,
			DetailLinkCount: detailLinks,
			Recommendation:  Recommendation{Miner: "directoryMiner", UseCache: true, OwnPagination: true, Reason: "known directory host"},
		}
	}

	if isSPACatalog(doc, body) {
		return Report{
			PageType:        PageSPACatalog,
			EmailCount:      emailCount,
			HasTable:        hasTable,
			DetailLinkCount: detailLinks,
			Recommendation:  Recommendation{Miner: "spaNetworkMiner", UseCache: false, OwnPagination: true, Reason: "spa catalog heuristic"},
		}
	}

	if documentViewerScore(doc, body) >= 40 {
		return Report{
			PageType:       PageDocumentViewer,
			EmailCount:     emailCount,
			Recommendation: Recommendation{Miner: "documentMiner", UseCache: true, Reason: "document viewer signals"},
		}
	}

	pagType := detectPagination(doc, url)
	dynamic := hasDynamicIndicators(doc, body)

	pageType := classifyPageType(hasTable, pagType, dynamic, emailCount, detailLinks)

	return Report{
		PageType:             pageType,
		PaginationType:       pagType,
		EmailCount:           emailCount,
		DetailLinkCount:      detailLinks,
		HasTable:             hasTable,
		HasDynamicIndicators: dynamic,
		Recommendation:       recommendationFor(pageType, pagType),
	}
}

func hostOf(rawURL string) string {
	rawURL = strings.TrimPrefix(rawURL, "https://")
	rawURL = strings.TrimPrefix(rawURL, "http://")
	if idx := strings.IndexAny(rawURL, "/?#"); idx >= 0 {
		rawURL = rawURL[:idx]
	}
	return strings.ToLower(rawURL)
}

// isSPACatalog implements the §4.1 step c.ii heuristic: small stripped body
// with many scripts, an empty SPA-root container, a framework meta marker,
// or a visible "enable JavaScript" string.
func isSPACatalog(doc *goquery.Document, body string) bool {
	stripped := stripScriptsAndStyles(body)
	scriptCount := doc.Find("script").Length()
	if len(stripped) < 15*1024 && scriptCount >= 5 {
		return true
	}
	for _, sel := range spaRootSelectors {
		if root := doc.Find(sel); root.Length() > 0 && strings.TrimSpace(root.Text()) == "" {
			return true
		}
	}
	lower := strings.ToLower(body)
	for _, marker := range jsFrameworkMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return strings.Contains(lower, "enable javascript")
}

func stripScriptsAndStyles(body string) string {
	body = regexp.MustCompile(`(?is)<script.*?</script>`).ReplaceAllString(body, "")
	body = regexp.MustCompile(`(?is)<style.*?</style>`).ReplaceAllString(body, "")
	return body
}

// documentViewerScore applies the §4.1 step c.iii weighted signal table.
func documentViewerScore(doc *goquery.Document, body string) int {
	score := 0
	textLayerBlocks := len(regexp.MustCompile(`P:\d+`).FindAllString(body, -1))
	if textLayerBlocks >= 3 {
		score += 50
	}
	if doc.Find("canvas").Length() >= 2 {
		score += 20
	}
	lower := strings.ToLower(body)
	if strings.Contains(lower, "flipbook") || strings.Contains(lower, "flip-book") {
		score += 15
	}
	if doc.Find(`a[href$=".pdf"]`).Length() > 0 {
		score += 10
	}
	return score
}

// detectPagination applies §4.1 step d.
func detectPagination(doc *goquery.Document, url string) PaginationType {
	if pageParamPattern.MatchString(url) {
		return PaginationNumbered
	}
	if doc.Find(`link[rel="next"], a[rel="next"]`).Length() > 0 {
		return PaginationNextButton
	}
	if doc.Find(".pagination, .pager, nav[aria-label=\"pagination\"]").Length() > 0 {
		return PaginationNumbered
	}
	loadMore := false
	doc.Find("button, a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.ToLower(strings.TrimSpace(s.Text()))
		if strings.Contains(text, "load more") || strings.Contains(text, "show more") {
			loadMore = true
			return false
		}
		return true
	})
	if loadMore {
		return PaginationLoadMore
	}
	if doc.Find("[data-infinite-scroll], .infinite-scroll").Length() > 0 {
		return PaginationInfinite
	}
	return PaginationNone
}

// hasDynamicIndicators applies §4.1 step e: framework fingerprints, or low
// text-to-HTML-size ratio suggesting client-side rendering.
func hasDynamicIndicators(doc *goquery.Document, body string) bool {
	lower := strings.ToLower(body)
	for _, marker := range jsFrameworkMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	textLen := len(strings.TrimSpace(doc.Text()))
	return len(body) > 20*1024 && textLen*10 < len(body)
}

// classifyPageType determines the final page_type from combined signals
// (§4.1 step f).
func classifyPageType(hasTable bool, pag PaginationType, dynamic bool, emailCount, detailLinks int) PageType {
	switch {
	case hasTable && emailCount > 0:
		return PageExhibitorTable
	case dynamic:
		return PageDynamic
	case pag != PaginationNone:
		return PagePaginated
	case detailLinks > 20:
		return PageExhibitorList
	case emailCount > 0 || detailLinks > 0:
		return PageSinglePage
	default:
		return PageUnknown
	}
}

// recommendationFor builds the extractor recommendation from the page type
// and pagination type via the deterministic routing table.
func recommendationFor(pageType PageType, pag PaginationType) Recommendation {
	switch pageType {
	case PageExhibitorTable:
		return Recommendation{Miner: "playwrightTableMiner", UseCache: true, Reason: "table with emails detected"}
	case PageDynamic:
		return Recommendation{Miner: "playwrightMiner", UseCache: false, Reason: "dynamic content indicators"}
	case PagePaginated:
		return Recommendation{Miner: "httpBasicMiner", UseCache: true, Reason: "paginated: " + string(pag)}
	case PageExhibitorList:
		return Recommendation{Miner: "httpBasicMiner", UseCache: true, Reason: "exhibitor list detected"}
	case PageSinglePage:
		return Recommendation{Miner: "httpBasicMiner", UseCache: true, Reason: "single page with contacts"}
	default:
		return Recommendation{Miner: "httpBasicMiner", UseCache: true, Reason: "no strong signal, default"}
	}
}
