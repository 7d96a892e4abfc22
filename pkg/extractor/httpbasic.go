package extractor

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/contactminer/engine/pkg/contact"
	"github.com/contactminer/engine/pkg/cost"
	"github.com/contactminer/engine/pkg/htmlcache"
	"github.com/contactminer/engine/pkg/normalize"
	"github.com/contactminer/engine/pkg/version"
)

// HTTPBasic is the default extractor for static, non-dynamic pages: a plain
// GET followed by goquery-based text/title extraction, cache-backed like
// Scout's own fetch.
type HTTPBasic struct {
	client *http.Client
	cache  *htmlcache.Cache
	logger *slog.Logger
}

// NewHTTPBasic constructs an HTTPBasic extractor. cache may be nil.
func NewHTTPBasic(cache *htmlcache.Cache) *HTTPBasic {
	return &HTTPBasic{
		client: &http.Client{Timeout: Timeout("httpBasicMiner")},
		cache:  cache,
		logger: slog.Default(),
	}
}

func (h *HTTPBasic) Name() string { return "httpBasicMiner" }

func (h *HTTPBasic) Capabilities() Capabilities {
	return Capabilities{
		UseCache:           true,
		SupportsPagination: true,
		OwnPagination:      false,
		CostPerRequest:     cost.OpHTTPFetch,
		DefaultConfidence:  60,
	}
}

func (h *HTTPBasic) Mine(ctx context.Context, job Job) (MinerResult, error) {
	body, fromCache, err := h.fetch(ctx, job.URL)
	if err != nil {
		return MinerResult{Status: StatusError, Reason: err.Error()}, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return MinerResult{Status: StatusError, Reason: "html parse error: " + err.Error()}, nil
	}

	evidenceKind := contact.EvidenceTextMatch
	if doc.Find(`a[href^="mailto:"]`).Length() > 0 {
		evidenceKind = contact.EvidenceMailtoLink
	}

	out := normalize.MinerOutput{
		Text:      doc.Text(),
		HTML:      body,
		PageTitle: strings.TrimSpace(doc.Find("title").First().Text()),
		SourceURL: job.URL,
	}

	if strings.TrimSpace(out.Text) == "" {
		return MinerResult{Status: StatusEmpty, Reason: "no extractable text", Output: out}, nil
	}

	_ = fromCache
	return MinerResult{
		Status:   StatusOK,
		Output:   out,
		Evidence: contact.Evidence{Kind: evidenceKind, Context: out.PageTitle},
	}, nil
}

// fetch mirrors Scout's cache-first, plain-GET-fallback fetch so the two
// packages share one fetch idiom (§4.1/§9).
func (h *HTTPBasic) fetch(ctx context.Context, url string) (body string, fromCache bool, err error) {
	if h.cache != nil {
		if cached, ok, cacheErr := h.cache.Get(ctx, url); cacheErr == nil && ok {
			return cached, true, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false, err
	}
	req.Header.Set("User-Agent", version.Full())
	resp, err := h.client.Do(req)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		return "", false, &blockedError{status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, err
	}
	body = string(data)

	if h.cache != nil && resp.StatusCode == http.StatusOK {
		_ = h.cache.Store(ctx, url, body)
	}
	return body, false, nil
}

type blockedError struct {
	status int
}

func (e *blockedError) Error() string {
	return http.StatusText(e.status)
}
