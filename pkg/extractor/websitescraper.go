package extractor

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/contactminer/engine/pkg/contact"
	"github.com/contactminer/engine/pkg/cost"
	"github.com/contactminer/engine/pkg/normalize"
)

// contactPagePaths are the relative paths WebsiteScraper tries after the
// homepage, in order, stopping at the first one that yields any email
// evidence (§4.4 Flow 2: deep-crawl a company's own website for a contact
// page the homepage itself doesn't carry).
var contactPagePaths = []string{"/contact", "/contact-us", "/about", "/about-us", "/team"}

// WebsiteScraper is Flow 2's deep-crawl extractor: given a company website
// origin, it fetches the homepage and, if that yields nothing, a short list
// of likely contact-page paths. It never uses the HTML cache (the page is
// rarely ever fetched twice) and owns its own "pagination" — the homepage/
// contact-page walk — so PaginationHandler must not also iterate it.
type WebsiteScraper struct {
	client *http.Client
}

// NewWebsiteScraper constructs a WebsiteScraper.
func NewWebsiteScraper() *WebsiteScraper {
	return &WebsiteScraper{client: &http.Client{Timeout: Timeout("websiteScraperMiner")}}
}

func (w *WebsiteScraper) Name() string { return "websiteScraperMiner" }

func (w *WebsiteScraper) Capabilities() Capabilities {
	return Capabilities{
		UseCache:           false,
		SupportsPagination: false,
		OwnPagination:      true,
		CostPerRequest:     cost.OpDeepCrawl,
		DefaultConfidence:  55,
	}
}

func (w *WebsiteScraper) Mine(ctx context.Context, job Job) (MinerResult, error) {
	out, evidenceKind, ok := w.tryFetch(ctx, job.URL)
	if ok {
		return MinerResult{
			Status:   StatusOK,
			Output:   out,
			Evidence: contact.Evidence{Kind: evidenceKind, Context: out.PageTitle},
		}, nil
	}

	origin := strings.TrimRight(job.URL, "/")
	for _, path := range contactPagePaths {
		select {
		case <-ctx.Done():
			return MinerResult{Status: StatusError, Reason: ctx.Err().Error()}, nil
		default:
		}
		out, evidenceKind, ok := w.tryFetch(ctx, origin+path)
		if ok {
			return MinerResult{
				Status:   StatusOK,
				Output:   out,
				Evidence: contact.Evidence{Kind: evidenceKind, Context: out.PageTitle},
			}, nil
		}
	}

	return MinerResult{Status: StatusEmpty, Reason: "no contact evidence on homepage or contact pages"}, nil
}

// tryFetch fetches url and reports whether the page carries any mailto or
// textual email evidence worth returning.
func (w *WebsiteScraper) tryFetch(ctx context.Context, url string) (normalize.MinerOutput, contact.EvidenceKind, bool) {
	body, err := w.fetch(ctx, url)
	if err != nil || strings.TrimSpace(body) == "" {
		return normalize.MinerOutput{}, "", false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return normalize.MinerOutput{}, "", false
	}

	evidenceKind := contact.EvidenceTextMatch
	hasMailto := doc.Find(`a[href^="mailto:"]`).Length() > 0
	if hasMailto {
		evidenceKind = contact.EvidenceMailtoLink
	}

	out := normalize.MinerOutput{
		Text:      doc.Text(),
		HTML:      body,
		PageTitle: strings.TrimSpace(doc.Find("title").First().Text()),
		SourceURL: url,
	}

	if !hasMailto && !strings.Contains(out.Text, "@") {
		return normalize.MinerOutput{}, "", false
	}
	return out, evidenceKind, true
}

func (w *WebsiteScraper) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		return "", &blockedError{status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		return "", nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
