package api

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/contactminer/engine/pkg/aggregator"
	"github.com/contactminer/engine/pkg/contact"
	"github.com/contactminer/engine/pkg/validate"
)

// ingestResultItem is one entry in the manual-ingest request body (§6 POST
// .../results). Field names follow the external contract, not the internal
// UnifiedContact struct, since an outside miner posts flat JSON.
type ingestResultItem struct {
	Email            string   `json:"email"`
	AdditionalEmails []string `json:"additional_emails"`
	ContactName      string   `json:"contact_name"`
	JobTitle         string   `json:"job_title"`
	CompanyName      string   `json:"company_name"`
	Website          string   `json:"website"`
	Country          string   `json:"country"`
	City             string   `json:"city"`
	Address          string   `json:"address"`
	Phone            string   `json:"phone"`
	Source           string   `json:"source"`
	SourceURL        string   `json:"source_url"`
	Confidence       int      `json:"confidence"`
}

func (i ingestResultItem) toContact() contact.UnifiedContact {
	return contact.UnifiedContact{
		Email:            i.Email,
		AdditionalEmails: i.AdditionalEmails,
		ContactName:      i.ContactName,
		JobTitle:         i.JobTitle,
		CompanyName:      i.CompanyName,
		Website:          i.Website,
		Country:          i.Country,
		City:             i.City,
		Address:          i.Address,
		Phone:            i.Phone,
		Source:           i.Source,
		SourceURL:        i.SourceURL,
		Confidence:       i.Confidence,
		ExtractedAt:      time.Now(),
	}
}

type ingestRequest struct {
	Results []ingestResultItem `json:"results"`
	Summary map[string]any     `json:"summary"`
}

// IngestResults handles POST /api/mining/jobs/:id/results: an externally
// computed contact batch is validated, deduped, persisted, and fed into
// canonical aggregation best-effort (§6).
func (s *Server) IngestResults(c *gin.Context) {
	jobID := c.Param("id")
	tenantID, err := s.resolveTenantID(c, jobID)
	if err != nil {
		respondError(c, http.StatusNotFound, "job not found")
		return
	}

	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	var accepted []contact.UnifiedContact
	for _, item := range req.Results {
		vr := validate.Validate(item.toContact())
		if !vr.Accepted {
			continue
		}
		accepted = append(accepted, vr.Cleaned)
	}

	merged := contact.Merge(accepted)

	stats, err := persistIngestedResults(c, s, jobID, tenantID, merged)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "persist results: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"inserted":     stats.TotalFound,
		"total_emails": stats.TotalEmailsRaw,
		"job":          jobID,
	})
}

// persistIngestedResults writes merged contacts via the same relational
// writer AggregateV2 uses, then fires canonical aggregation best-effort
// (§6: "triggers canonical aggregation (best effort)").
func persistIngestedResults(c *gin.Context, s *Server, jobID, tenantID string, merged []contact.UnifiedContact) (aggregator.PersistStats, error) {
	stats, err := aggregator.PersistResultRows(c.Request.Context(), s.db, jobID, tenantID, merged)
	if err != nil {
		return aggregator.PersistStats{}, err
	}
	aggregator.UpsertCanonical(c.Request.Context(), s.db, s.canonicalConfig(), tenantID, jobID, merged)
	return stats, nil
}

// resultRowListItem is one row in the GET .../results response.
type resultRowListItem struct {
	ID                 string   `json:"id"`
	SourceURL          string   `json:"source_url,omitempty"`
	CompanyName        string   `json:"company_name,omitempty"`
	ContactName        string   `json:"contact_name,omitempty"`
	JobTitle           string   `json:"job_title,omitempty"`
	Emails             []string `json:"emails"`
	Phone              string   `json:"phone,omitempty"`
	Country            string   `json:"country,omitempty"`
	City               string   `json:"city,omitempty"`
	Website            string   `json:"website,omitempty"`
	Confidence         int      `json:"confidence"`
	Status             string   `json:"status"`
	VerificationStatus string   `json:"verification_status,omitempty"`
}

// ListResults handles GET /api/mining/jobs/:id/results: a paginated,
// filterable listing (§6).
func (s *Server) ListResults(c *gin.Context) {
	jobID := c.Param("id")
	tenantID, err := s.resolveTenantID(c, jobID)
	if err != nil {
		respondError(c, http.StatusNotFound, "job not found")
		return
	}

	page := clampInt(c.Query("page"), 1, 1, 1<<31-1)
	limit := clampInt(c.Query("limit"), 50, 1, 500)

	where := []string{"job_id = $1", "tenant_id = $2"}
	args := []any{jobID, tenantID}

	if hasEmail := c.Query("has_email"); hasEmail == "with" {
		where = append(where, "array_length(emails, 1) > 0")
	} else if hasEmail == "without" {
		where = append(where, "(emails IS NULL OR array_length(emails, 1) IS NULL)")
	}
	if status := c.Query("status"); status != "" {
		args = append(args, status)
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}
	if vs := c.Query("verification_status"); vs != "" {
		args = append(args, vs)
		where = append(where, "verification_status = $"+strconv.Itoa(len(args)))
	}
	if country := c.Query("country"); country != "" {
		args = append(args, "%"+country+"%")
		where = append(where, "country ILIKE $"+strconv.Itoa(len(args)))
	}
	if search := c.Query("search"); search != "" {
		args = append(args, "%"+search+"%")
		idx := strconv.Itoa(len(args))
		where = append(where, "(company_name ILIKE $"+idx+" OR contact_name ILIKE $"+idx+
			" OR website ILIKE $"+idx+" OR source_url ILIKE $"+idx+
			" OR array_to_string(emails, ',') ILIKE $"+idx+")")
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := "SELECT count(*) FROM result_rows WHERE " + whereClause
	if err := s.db.QueryRowContext(c.Request.Context(), countQuery, args...).Scan(&total); err != nil {
		respondError(c, http.StatusInternalServerError, "count results: "+err.Error())
		return
	}

	args = append(args, limit, (page-1)*limit)
	listQuery := `
		SELECT result_id, source_url, company_name, contact_name, job_title, emails,
		       phone, country, city, website, confidence, status, verification_status
		FROM result_rows
		WHERE ` + whereClause + `
		ORDER BY created_at DESC
		LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := s.db.QueryContext(c.Request.Context(), listQuery, args...)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "list results: "+err.Error())
		return
	}
	defer rows.Close()

	items := make([]resultRowListItem, 0, limit)
	for rows.Next() {
		var item resultRowListItem
		var sourceURL, companyName, contactName, jobTitle, phone, country, city, website, verificationStatus sql.NullString
		if err := rows.Scan(&item.ID, &sourceURL, &companyName, &contactName, &jobTitle, &item.Emails,
			&phone, &country, &city, &website, &item.Confidence, &item.Status, &verificationStatus); err != nil {
			respondError(c, http.StatusInternalServerError, "scan result: "+err.Error())
			return
		}
		item.SourceURL, item.CompanyName, item.ContactName, item.JobTitle = sourceURL.String, companyName.String, contactName.String, jobTitle.String
		item.Phone, item.Country, item.City, item.Website = phone.String, country.String, city.String, website.String
		item.VerificationStatus = verificationStatus.String
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		respondError(c, http.StatusInternalServerError, "iterate results: "+err.Error())
		return
	}

	totalPages := (total + limit - 1) / limit
	if totalPages == 0 {
		totalPages = 1
	}

	c.JSON(http.StatusOK, gin.H{
		"results": items,
		"pagination": gin.H{
			"page": page, "limit": limit, "total": total, "total_pages": totalPages,
		},
	})
}

// clampInt parses raw into an int, falling back to def, and clamps the
// result to [min, max] (§6 "limit clamped 1-500, default 50").
func clampInt(raw string, def, min, max int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
