package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/contactminer/engine/pkg/contact"
	"github.com/contactminer/engine/pkg/cost"
	"github.com/contactminer/engine/pkg/normalize"
)

// FieldMap names the JSON keys a captured SPA network response uses for
// each logical contact field, produced once from a sample record instead
// of letting the rest of the pipeline inspect arbitrary keys (§9 redesign
// note on dynamic property access).
type FieldMap struct {
	RecordsPath string // dotted path to the array of records, "" means the root is the array
	Email       string
	Name        string
	Company     string
	Position    string
	Country     string
	City        string
	Phone       string
	Website     string
}

// DefaultFieldMap matches the shape most exhibitor-catalog SPA APIs use.
var DefaultFieldMap = FieldMap{
	RecordsPath: "data",
	Email:       "email",
	Name:        "contactName",
	Company:     "companyName",
	Position:    "jobTitle",
	Country:     "country",
	City:        "city",
	Phone:       "phone",
	Website:     "website",
}

// SPANetwork replays a catalog's own JSON API response instead of scraping
// the SPA shell's rendered HTML (§4.1 spa_catalog routing). It reports
// OwnPagination, so the orchestrator does not wrap it in the pagination
// handler (§4.2); Mine issues a single GET and does not follow offset or
// cursor parameters.
type SPANetwork struct {
	client   *http.Client
	fieldMap FieldMap
}

// NewSPANetwork constructs an extractor for a JSON API shaped like fm.
func NewSPANetwork(fm FieldMap) *SPANetwork {
	return &SPANetwork{client: &http.Client{Timeout: Timeout("spaNetworkMiner")}, fieldMap: fm}
}

func (s *SPANetwork) Name() string { return "spaNetworkMiner" }

func (s *SPANetwork) Capabilities() Capabilities {
	return Capabilities{
		UseCache:           false,
		SupportsPagination: true,
		OwnPagination:      true,
		CostPerRequest:     cost.OpHTTPFetch,
		DefaultConfidence:  70,
	}
}

func (s *SPANetwork) Mine(ctx context.Context, job Job) (MinerResult, error) {
	apiURL := job.URL
	if override, ok := job.Hints["api_url"].(string); ok && override != "" {
		apiURL = override
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return MinerResult{Status: StatusError, Reason: err.Error()}, nil
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return MinerResult{Status: StatusError, Reason: err.Error()}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		return MinerResult{Status: StatusBlocked, Reason: http.StatusText(resp.StatusCode)}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return MinerResult{Status: StatusError, Reason: err.Error()}, nil
	}

	records, err := s.extractRecords(body)
	if err != nil {
		return MinerResult{Status: StatusError, Reason: "decode api response: " + err.Error()}, nil
	}

	blocks := make([]normalize.StructuredBlock, 0, len(records))
	for _, rec := range records {
		text := s.fieldMap.renderRecord(rec)
		if text != "" {
			blocks = append(blocks, normalize.StructuredBlock{Text: text})
		}
	}

	out := normalize.MinerOutput{SourceURL: job.URL, StructuredBlocks: blocks}
	if len(blocks) == 0 {
		return MinerResult{Status: StatusEmpty, Reason: "no records in api response", Output: out}, nil
	}

	return MinerResult{
		Status:   StatusOK,
		Output:   out,
		Evidence: contact.Evidence{Kind: contact.EvidenceSchemaOrg, Context: apiURL},
	}, nil
}

// extractRecords navigates fm.RecordsPath (dot-separated object keys) down
// to the JSON array of per-contact records.
func (s *SPANetwork) extractRecords(body []byte) ([]map[string]any, error) {
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, err
	}

	node := root
	if s.fieldMap.RecordsPath != "" {
		for _, key := range strings.Split(s.fieldMap.RecordsPath, ".") {
			m, ok := node.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("records path %q: not an object at %q", s.fieldMap.RecordsPath, key)
			}
			node, ok = m[key]
			if !ok {
				return nil, fmt.Errorf("records path %q: missing key %q", s.fieldMap.RecordsPath, key)
			}
		}
	}

	rawList, ok := node.([]any)
	if !ok {
		return nil, fmt.Errorf("records path %q: not an array", s.fieldMap.RecordsPath)
	}

	records := make([]map[string]any, 0, len(rawList))
	for _, item := range rawList {
		if m, ok := item.(map[string]any); ok {
			records = append(records, m)
		}
	}
	return records, nil
}

// renderRecord turns one JSON record into a flat "label: value" text block
// using only the keys named in the FieldMap, so normalize.Normalize can
// process it through the same context-scanning pipeline as scraped text.
func (fm FieldMap) renderRecord(rec map[string]any) string {
	var b strings.Builder
	appendField := func(label, key string) {
		if key == "" {
			return
		}
		v, ok := rec[key]
		if !ok || v == nil {
			return
		}
		s := fmt.Sprintf("%v", v)
		if strings.TrimSpace(s) == "" {
			return
		}
		fmt.Fprintf(&b, "%s: %s\n", label, s)
	}
	appendField("Email", fm.Email)
	appendField("Name", fm.Name)
	appendField("Company", fm.Company)
	appendField("Position", fm.Position)
	appendField("Country", fm.Country)
	appendField("City", fm.City)
	appendField("Phone", fm.Phone)
	appendField("Website", fm.Website)
	return b.String()
}
