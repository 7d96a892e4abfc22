package importpipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/contactminer/engine/pkg/aggregator"
	"github.com/contactminer/engine/pkg/config"
	"github.com/contactminer/engine/pkg/contact"
)

// importRow is one result_rows record eligible for import.
type importRow struct {
	ResultID    string
	Emails      []string
	CompanyName sql.NullString
	ContactName sql.NullString
	JobTitle    sql.NullString
	Phone       sql.NullString
	Country     sql.NullString
	City        sql.NullString
	Website     sql.NullString
	SourceURL   sql.NullString
	Confidence  int
}

func (r importRow) primaryEmail() string {
	for _, e := range r.Emails {
		if strings.Contains(e, "@") {
			return strings.ToLower(e)
		}
	}
	return ""
}

func (r importRow) toContact() contact.UnifiedContact {
	return contact.UnifiedContact{
		Email:       r.primaryEmail(),
		ContactName: r.ContactName.String,
		CompanyName: r.CompanyName.String,
		JobTitle:    r.JobTitle.String,
		Phone:       r.Phone.String,
		Country:     r.Country.String,
		City:        r.City.String,
		Website:     r.Website.String,
		SourceURL:   r.SourceURL.String,
		Confidence:  r.Confidence,
	}
}

// runBackground is the §4.11 background loop, launched by StartImport in its
// own goroutine with a context independent of the originating HTTP request.
func (p *Pipeline) runBackground(ctx context.Context, jobID, tenantID string, req Request, listID string) {
	var canonicalCfg = config.DefaultCanonicalConfig()
	total := progress{}

	for {
		n, err := p.importBatch(ctx, jobID, tenantID, req, listID, canonicalCfg, &total)
		if err != nil {
			slog.Error("importpipeline: batch failed", "job_id", jobID, "error", err)
			if werr := total.finish(ctx, p.db, jobID, true, err.Error()); werr != nil {
				slog.Error("importpipeline: failed to record failure", "job_id", jobID, "error", werr)
			}
			return
		}
		if werr := total.write(ctx, p.db, jobID); werr != nil {
			slog.Error("importpipeline: progress write failed", "job_id", jobID, "error", werr)
		}
		if n == 0 {
			break
		}
	}

	if listID != "" {
		var count int
		if err := p.db.QueryRowContext(ctx, `SELECT count(*) FROM list_members WHERE list_id = $1`, listID).Scan(&count); err == nil {
			total.ListMemberCount = count
		}
	}

	if err := total.finish(ctx, p.db, jobID, false, ""); err != nil {
		slog.Error("importpipeline: failed to write final import progress", "job_id", jobID, "error", err)
	}
}

// importBatch processes up to BatchSize rows and returns how many rows it
// moved to status='imported' this pass (dup-skips plus successful
// promotions). A row whose savepoint failed in importOneRow is left
// status != 'imported' and is not counted here, so a batch of only failing
// rows also returns 0; the caller stops on 0 in both cases rather than
// re-selecting the same rows forever.
func (p *Pipeline) importBatch(ctx context.Context, jobID, tenantID string, req Request, listID string, canonicalCfg *config.CanonicalConfig, total *progress) (int, error) {
	rows, err := p.selectBatch(ctx, jobID)
	if err != nil {
		return 0, fmt.Errorf("select batch: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	survivors, dupSkipped, err := dedupAndMarkImported(ctx, tx, rows)
	if err != nil {
		return 0, fmt.Errorf("dedup batch: %w", err)
	}
	total.Skipped += dupSkipped
	total.Duplicates += dupSkipped

	sort.Slice(survivors, func(i, j int) bool { return survivors[i].primaryEmail() < survivors[j].primaryEmail() })

	imported := 0
	for _, row := range survivors {
		if err := p.importOneRow(ctx, tx, tenantID, jobID, listID, req.Tags, canonicalCfg, row); err != nil {
			total.Skipped++
			total.recordError(row.ResultID, err)
			continue
		}
		total.Imported++
		imported++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}
	return dupSkipped + imported, nil
}

// selectBatch pulls up to BatchSize importable rows ordered by id (§4.11
// step 2.a).
func (p *Pipeline) selectBatch(ctx context.Context, jobID string) ([]importRow, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT result_id, emails, company_name, contact_name, job_title,
		       phone, country, city, website, source_url, confidence
		FROM result_rows
		WHERE job_id = $1 AND array_length(emails, 1) > 0 AND status != 'imported'
		ORDER BY result_id
		LIMIT $2`,
		jobID, BatchSize,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []importRow
	for rows.Next() {
		var r importRow
		if err := rows.Scan(&r.ResultID, &r.Emails, &r.CompanyName, &r.ContactName, &r.JobTitle,
			&r.Phone, &r.Country, &r.City, &r.Website, &r.SourceURL, &r.Confidence); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// dedupAndMarkImported keeps the first row per lower(primary_email) within
// the batch, marking the rest (and any row with no eligible email) imported
// without further processing (§4.11 step 2.b).
func dedupAndMarkImported(ctx context.Context, tx *sql.Tx, rows []importRow) ([]importRow, int, error) {
	seen := make(map[string]bool, len(rows))
	survivors := make([]importRow, 0, len(rows))
	skipped := 0

	for _, row := range rows {
		email := row.primaryEmail()
		if email == "" || seen[email] {
			if _, err := tx.ExecContext(ctx, `UPDATE result_rows SET status = 'imported' WHERE result_id = $1`, row.ResultID); err != nil {
				return nil, 0, err
			}
			skipped++
			continue
		}
		seen[email] = true
		survivors = append(survivors, row)
	}
	return survivors, skipped, nil
}

// importOneRow runs one row's full promotion under its own SAVEPOINT, so a
// single row's failure doesn't abort the rest of the batch (§4.11 step 2.d).
func (p *Pipeline) importOneRow(ctx context.Context, tx *sql.Tx, tenantID, jobID, listID string, tags []string, canonicalCfg *config.CanonicalConfig, row importRow) error {
	const savepoint = "sp_import_row"
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
		return err
	}

	if err := p.importOneRowBody(ctx, tx, tenantID, jobID, listID, tags, canonicalCfg, row); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}

	_, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepoint)
	return err
}

func (p *Pipeline) importOneRowBody(ctx context.Context, tx *sql.Tx, tenantID, jobID, listID string, tags []string, canonicalCfg *config.CanonicalConfig, row importRow) error {
	c := row.toContact()

	prospectID, err := upsertProspect(ctx, tx, tenantID, c, tags)
	if err != nil {
		return fmt.Errorf("upsert prospect: %w", err)
	}

	if listID != "" {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO list_members (list_member_id, tenant_id, list_id, prospect_id)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (list_id, prospect_id) DO NOTHING`,
			uuid.NewString(), tenantID, listID, prospectID,
		); err != nil {
			return fmt.Errorf("insert list member: %w", err)
		}
	}

	if canonicalCfg.Enabled && !canonicalCfg.Shadow() {
		personID, err := aggregator.UpsertPersonTx(ctx, tx, tenantID, c)
		if err != nil {
			return fmt.Errorf("upsert person: %w", err)
		}
		if err := aggregator.UpsertAffiliationTx(ctx, tx, tenantID, personID, jobID, c); err != nil {
			return fmt.Errorf("upsert affiliation: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE result_rows SET status = 'imported' WHERE result_id = $1`, row.ResultID); err != nil {
		return fmt.Errorf("mark row imported: %w", err)
	}

	return nil
}

// upsertProspect implements §4.11 step 2.d's legacy prospect upsert: find by
// (tenant, lower(email)); if found, union tags; otherwise insert with a
// metadata blob and the tag array.
func upsertProspect(ctx context.Context, tx *sql.Tx, tenantID string, c contact.UnifiedContact, tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	var existingID string
	err := tx.QueryRowContext(ctx, `
		SELECT prospect_id FROM prospects WHERE tenant_id = $1 AND lower(email) = lower($2)`,
		tenantID, c.Email,
	).Scan(&existingID)

	if errors.Is(err, sql.ErrNoRows) {
		prospectID := uuid.NewString()
		metadata := []byte(`{}`)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO prospects (prospect_id, tenant_id, email, contact_name, company_name, tags, metadata)
			VALUES ($1, $2, lower($3), $4, $5, $6, $7)`,
			prospectID, tenantID, c.Email, nullableStr(c.ContactName), nullableStr(c.CompanyName),
			tags, metadata,
		)
		return prospectID, err
	}
	if err != nil {
		return "", err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE prospects
		SET tags = (SELECT array_agg(DISTINCT x) FROM unnest(tags || $2::text[]) AS x),
		    contact_name = COALESCE(NULLIF($3, ''), contact_name),
		    company_name = COALESCE(NULLIF($4, ''), company_name),
		    updated_at = now()
		WHERE prospect_id = $1`,
		existingID, tags, c.ContactName, c.CompanyName,
	)
	return existingID, err
}

func nullableStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
