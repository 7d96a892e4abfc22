package extractor

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/contactminer/engine/pkg/contact"
	"github.com/contactminer/engine/pkg/cost"
	"github.com/contactminer/engine/pkg/normalize"
)

// Directory mines the curated set of known B2B directory hosts
// (europages, kompass, yellowpages, ...). It reports OwnPagination, so the
// orchestrator does not wrap it in the pagination handler (§4.1 step c.i,
// §4.2 OwnPagination invariant); Mine fetches only job.URL and does not
// follow next-page links.
type Directory struct {
	basic *HTTPBasic
}

// NewDirectory wraps an HTTPBasic fetcher with directory-specific parsing;
// directory hosts are plain server-rendered HTML, so the fetch mechanics
// are identical, only the page shape assumptions differ.
func NewDirectory(basic *HTTPBasic) *Directory {
	return &Directory{basic: basic}
}

func (d *Directory) Name() string { return "directoryMiner" }

func (d *Directory) Capabilities() Capabilities {
	return Capabilities{
		UseCache:           true,
		SupportsPagination: true,
		OwnPagination:      true,
		CostPerRequest:     cost.OpHTTPFetch,
		DefaultConfidence:  55,
	}
}

// directoryListingSelectors are the per-entry containers known directory
// hosts render a listing row as; used to join each entry's own text as a
// structured block so the normalizer can attribute a name/company/email
// triple to the same row instead of conflating adjacent rows.
var directoryListingSelectors = []string{
	".listing-item", ".company-card", ".directory-entry", "tr",
}

func (d *Directory) Mine(ctx context.Context, job Job) (MinerResult, error) {
	body, _, err := d.basic.fetch(ctx, job.URL)
	if err != nil {
		return MinerResult{Status: StatusError, Reason: err.Error()}, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return MinerResult{Status: StatusError, Reason: "html parse error: " + err.Error()}, nil
	}

	var blocks []normalize.StructuredBlock
	for _, sel := range directoryListingSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if text != "" {
				blocks = append(blocks, normalize.StructuredBlock{Text: text})
			}
		})
		if len(blocks) > 0 {
			break
		}
	}

	out := normalize.MinerOutput{
		Text:             doc.Text(),
		HTML:             body,
		PageTitle:        strings.TrimSpace(doc.Find("title").First().Text()),
		SourceURL:        job.URL,
		StructuredBlocks: blocks,
	}

	if strings.TrimSpace(out.Text) == "" && len(blocks) == 0 {
		return MinerResult{Status: StatusEmpty, Reason: "no listing rows found", Output: out}, nil
	}

	return MinerResult{
		Status:   StatusOK,
		Output:   out,
		Evidence: contact.Evidence{Kind: contact.EvidenceTableCell, Context: out.PageTitle},
	}, nil
}

// NextPageURL returns the document's rel="next" (or .pagination a.next /
// a.next-page) link, resolved against currentURL, or "" when there's no
// next-page link on the document.
func NextPageURL(doc *goquery.Document, currentURL string) string {
	href, ok := doc.Find(`a[rel="next"], .pagination a.next, a.next-page`).First().Attr("href")
	if !ok {
		return ""
	}
	return resolveRelative(currentURL, href)
}

func resolveRelative(base, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if strings.HasPrefix(ref, "/") {
		if idx := strings.Index(base, "://"); idx >= 0 {
			rest := base[idx+3:]
			if slash := strings.Index(rest, "/"); slash >= 0 {
				return base[:idx+3+slash] + ref
			}
			return base[:idx+3] + rest + ref
		}
	}
	return ref
}
