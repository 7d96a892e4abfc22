package extractor

import (
	"context"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/contactminer/engine/pkg/contact"
	"github.com/contactminer/engine/pkg/cost"
	"github.com/contactminer/engine/pkg/normalize"
)

// Playwright drives a real browser to render dynamic/JS-heavy pages (§4.1
// PageDynamic/PageBlocked routing, §4.2 cache-safety invariant: never
// cached, since the whole point is re-executing client-side rendering).
// The browser runtime itself (chromedp's headless Chrome) stays an
// external collaborator; this adapter is the narrow Extractor-shaped
// driver around it (§9 redesign note).
type Playwright struct {
	allocatorOpts []chromedp.ExecAllocatorOption
	navTimeout    time.Duration
}

// NewPlaywright constructs a browser-driving extractor. opts lets callers
// override chromedp's allocator (headless flags, proxy, user-agent) per
// deployment without this package knowing about any of that.
func NewPlaywright(opts ...chromedp.ExecAllocatorOption) *Playwright {
	return &Playwright{allocatorOpts: opts, navTimeout: Timeout("playwrightMiner")}
}

func (p *Playwright) Name() string { return "playwrightMiner" }

func (p *Playwright) Capabilities() Capabilities {
	return Capabilities{
		UseCache:           false,
		SupportsPagination: true,
		OwnPagination:      false,
		CostPerRequest:     cost.OpBrowserPage,
		DefaultConfidence:  55,
	}
}

func (p *Playwright) Mine(ctx context.Context, job Job) (MinerResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.navTimeout)
	defer cancel()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, p.allocatorOpts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var html, title string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(job.URL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Title(&title),
	)
	if err != nil {
		return MinerResult{Status: StatusError, Reason: "chromedp run failed: " + err.Error()}, nil
	}

	out := normalize.MinerOutput{
		HTML:      html,
		PageTitle: strings.TrimSpace(title),
		SourceURL: job.URL,
	}
	if strings.TrimSpace(html) == "" {
		return MinerResult{Status: StatusEmpty, Reason: "empty rendered document", Output: out}, nil
	}

	return MinerResult{
		Status:   StatusOK,
		Output:   out,
		Evidence: contact.Evidence{Kind: contact.EvidenceDOMElement, Context: out.PageTitle},
	}, nil
}
