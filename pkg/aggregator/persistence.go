package aggregator

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/contactminer/engine/pkg/contact"
	"github.com/google/uuid"
)

// PersistStats summarizes what a persistence pass wrote, folded into the
// Job's stats blob (§4.9).
type PersistStats struct {
	TotalFound     int
	TotalEmailsRaw int
	EmailBased     int
	ProfileOnly    int
}

// rawBlob is the shape written to result_rows.raw — diagnostic provenance,
// never read back by the merge logic itself.
type rawBlob struct {
	Source        string `json:"source"`
	SourceURL     string `json:"source_url"`
	EvidenceKind  string `json:"evidence_kind"`
	EvidenceCtx   string `json:"evidence_context,omitempty"`
	EmailType     string `json:"email_type,omitempty"`
}

// PersistResultRows writes merged contacts into result_rows under a single
// transaction, then updates the Job's stats/status, per §4.9. It is used by
// both AggregateV2 and the aggregate_simple fallback from AggregateV1.
func PersistResultRows(ctx context.Context, db *sql.DB, jobID, tenantID string, contacts []contact.UnifiedContact) (PersistStats, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return PersistStats{}, fmt.Errorf("aggregator: begin persist tx: %w", err)
	}
	defer tx.Rollback()

	var stats PersistStats
	for _, c := range contacts {
		if c.HasEmail() {
			if err := upsertEmailKeyedRow(ctx, tx, jobID, tenantID, c); err != nil {
				return PersistStats{}, fmt.Errorf("aggregator: persist email-keyed row: %w", err)
			}
			stats.EmailBased++
			stats.TotalEmailsRaw += 1 + len(c.AdditionalEmails)
		} else {
			if c.ContactName == "" || c.SourceURL == "" {
				continue
			}
			if err := upsertProfileOnlyRow(ctx, tx, jobID, tenantID, c); err != nil {
				return PersistStats{}, fmt.Errorf("aggregator: persist profile-only row: %w", err)
			}
			stats.ProfileOnly++
		}
		stats.TotalFound++
	}

	statsJSON, err := json.Marshal(map[string]any{
		"total_found":      stats.TotalFound,
		"total_emails_raw": stats.TotalEmailsRaw,
	})
	if err != nil {
		return PersistStats{}, fmt.Errorf("aggregator: marshal job stats: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE jobs
		SET stats = COALESCE(stats, '{}'::jsonb) || $2::jsonb,
		    status = 'completed',
		    completed_at = now()
		WHERE job_id = $1`, jobID, statsJSON)
	if err != nil {
		return PersistStats{}, fmt.Errorf("aggregator: update job on persist: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return PersistStats{}, fmt.Errorf("aggregator: commit persist tx: %w", err)
	}
	return stats, nil
}

// upsertEmailKeyedRow implements the §4.9 email-keyed branch: lookup by
// (job_id, email ∈ emails), update with COALESCE(NULLIF) + confidence MAX, or
// insert a new row.
func upsertEmailKeyedRow(ctx context.Context, tx *sql.Tx, jobID, tenantID string, c contact.UnifiedContact) error {
	emails := dedupedEmails(c)

	var resultID string
	err := tx.QueryRowContext(ctx, `
		SELECT result_id FROM result_rows
		WHERE job_id = $1 AND EXISTS (
			SELECT 1 FROM unnest(emails) e WHERE lower(e) = lower($2)
		)
		LIMIT 1`, jobID, c.Email).Scan(&resultID)

	raw, err2 := marshalRaw(c)
	if err2 != nil {
		return err2
	}

	if err == sql.ErrNoRows {
		resultID = uuid.NewString()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO result_rows (
				result_id, job_id, tenant_id, source_url, company_name, contact_name,
				job_title, emails, phone, country, city, address, website,
				confidence, status, raw, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,'new',$15,now(),now())`,
			resultID, jobID, tenantID, c.SourceURL, nullable(c.CompanyName), nullable(c.ContactName),
			nullable(c.JobTitle), emails, nullable(c.Phone), nullable(c.Country),
			nullable(c.City), nullable(c.Address), nullable(c.Website), c.Confidence, raw,
		)
		return err
	}
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE result_rows SET
			company_name = COALESCE(NULLIF($2, ''), company_name),
			contact_name = COALESCE(NULLIF($3, ''), contact_name),
			job_title    = COALESCE(NULLIF($4, ''), job_title),
			phone        = COALESCE(NULLIF($5, ''), phone),
			country      = COALESCE(NULLIF($6, ''), country),
			city         = COALESCE(NULLIF($7, ''), city),
			address      = COALESCE(NULLIF($8, ''), address),
			website      = COALESCE(NULLIF($9, ''), website),
			confidence   = GREATEST(confidence, $10),
			emails       = (SELECT array_agg(DISTINCT x) FROM unnest(emails || $11::text[]) AS x),
			updated_at   = now()
		WHERE result_id = $1`,
		resultID, c.CompanyName, c.ContactName, c.JobTitle, c.Phone,
		c.Country, c.City, c.Address, c.Website, c.Confidence, emails,
	)
	return err
}

// upsertProfileOnlyRow implements the §4.9 profile-only branch: lookup by
// (job_id, contact_name, source_url, emails empty), update with
// COALESCE(NULLIF) + confidence LEAST, or insert. Never matches or updates
// an email-keyed row.
func upsertProfileOnlyRow(ctx context.Context, tx *sql.Tx, jobID, tenantID string, c contact.UnifiedContact) error {
	var resultID string
	err := tx.QueryRowContext(ctx, `
		SELECT result_id FROM result_rows
		WHERE job_id = $1 AND contact_name = $2 AND source_url = $3 AND emails = '{}'
		LIMIT 1`, jobID, c.ContactName, c.SourceURL).Scan(&resultID)

	raw, err2 := marshalRaw(c)
	if err2 != nil {
		return err2
	}

	if err == sql.ErrNoRows {
		resultID = uuid.NewString()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO result_rows (
				result_id, job_id, tenant_id, source_url, company_name, contact_name,
				job_title, emails, phone, country, city, address, website,
				confidence, status, raw, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,'{}',$8,$9,$10,$11,$12,$13,'new',$14,now(),now())`,
			resultID, jobID, tenantID, c.SourceURL, nullable(c.CompanyName), nullable(c.ContactName),
			nullable(c.JobTitle), nullable(c.Phone), nullable(c.Country),
			nullable(c.City), nullable(c.Address), nullable(c.Website), c.Confidence, raw,
		)
		return err
	}
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE result_rows SET
			company_name = COALESCE(NULLIF($2, ''), company_name),
			job_title    = COALESCE(NULLIF($3, ''), job_title),
			phone        = COALESCE(NULLIF($4, ''), phone),
			country      = COALESCE(NULLIF($5, ''), country),
			city         = COALESCE(NULLIF($6, ''), city),
			address      = COALESCE(NULLIF($7, ''), address),
			website      = COALESCE(NULLIF($8, ''), website),
			confidence   = LEAST(confidence, $9),
			updated_at   = now()
		WHERE result_id = $1`,
		resultID, c.CompanyName, c.JobTitle, c.Phone, c.Country, c.City, c.Address, c.Website, c.Confidence,
	)
	return err
}

// dedupedEmails returns c's primary email plus additional emails, lowercased
// and deduplicated, for storage in the emails array column.
func dedupedEmails(c contact.UnifiedContact) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, 1+len(c.AdditionalEmails))
	add := func(e string) {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || seen[e] {
			return
		}
		seen[e] = true
		out = append(out, e)
	}
	add(c.Email)
	for _, e := range c.AdditionalEmails {
		add(e)
	}
	return out
}

// nullable turns an empty string into a SQL NULL so NULLIF-based COALESCE
// updates treat "never extracted" distinctly from "extracted empty".
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func marshalRaw(c contact.UnifiedContact) ([]byte, error) {
	return json.Marshal(rawBlob{
		Source:       c.Source,
		SourceURL:    c.SourceURL,
		EvidenceKind: string(c.Evidence.Kind),
		EvidenceCtx:  c.Evidence.Context,
		EmailType:    string(c.EmailType),
	})
}
