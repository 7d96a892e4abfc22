package extractor

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"github.com/contactminer/engine/pkg/contact"
	"github.com/contactminer/engine/pkg/cost"
	"github.com/contactminer/engine/pkg/normalize"
)

// PlaywrightTable renders a JS-driven exhibitor/member table with a real
// browser, then walks the rendered table rows as structured blocks, one
// per contact (§4.1 PageExhibitorTable routing).
type PlaywrightTable struct {
	allocatorOpts []chromedp.ExecAllocatorOption
	navTimeout    time.Duration
}

// NewPlaywrightTable constructs the table-aware browser-driving extractor.
func NewPlaywrightTable(opts ...chromedp.ExecAllocatorOption) *PlaywrightTable {
	return &PlaywrightTable{allocatorOpts: opts, navTimeout: Timeout("playwrightTableMiner")}
}

func (p *PlaywrightTable) Name() string { return "playwrightTableMiner" }

func (p *PlaywrightTable) Capabilities() Capabilities {
	return Capabilities{
		UseCache:           false,
		SupportsPagination: true,
		OwnPagination:      false,
		CostPerRequest:     cost.OpBrowserPage,
		DefaultConfidence:  65,
	}
}

func (p *PlaywrightTable) Mine(ctx context.Context, job Job) (MinerResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.navTimeout)
	defer cancel()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, p.allocatorOpts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var html, title string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(job.URL),
		chromedp.WaitReady("table", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Title(&title),
	)
	if err != nil {
		return MinerResult{Status: StatusError, Reason: "chromedp run failed: " + err.Error()}, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return MinerResult{Status: StatusError, Reason: "html parse error: " + err.Error()}, nil
	}

	var blocks []normalize.StructuredBlock
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		text := strings.TrimSpace(row.Text())
		if text != "" {
			blocks = append(blocks, normalize.StructuredBlock{Text: text})
		}
	})

	out := normalize.MinerOutput{
		HTML:             html,
		PageTitle:        strings.TrimSpace(title),
		SourceURL:        job.URL,
		StructuredBlocks: blocks,
	}
	if len(blocks) == 0 {
		return MinerResult{Status: StatusEmpty, Reason: "no table rows rendered", Output: out}, nil
	}

	return MinerResult{
		Status:   StatusOK,
		Output:   out,
		Evidence: contact.Evidence{Kind: contact.EvidenceTableCell, Context: out.PageTitle},
	}, nil
}
