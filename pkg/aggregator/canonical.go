package aggregator

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/contactminer/engine/pkg/config"
	"github.com/contactminer/engine/pkg/contact"
	"github.com/contactminer/engine/pkg/normalize"
	"github.com/google/uuid"
)

// CanonicalSourcePersist identifies writes coming from ResultAggregator V2.
const CanonicalSourcePersist = "aggregator"

// UpsertCanonical applies §4.10 to every contact with an email: upsert a
// Person keyed by (tenant, lower(email)); for each contact whose company
// name is usable, upsert an Affiliation keyed by (tenant, person,
// lower(company_name)) with additive NULL-fill and confidence MAX; contacts
// with no usable company name get an unconstrained affiliation insert. It
// never returns an error to a V2 caller — failures are logged and swallowed,
// per "best-effort" in §4.10. The import pipeline, which needs to know
// whether its own canonical write succeeded, calls upsertPerson/
// upsertAffiliation directly on its own transaction instead.
func UpsertCanonical(ctx context.Context, db *sql.DB, cfg *config.CanonicalConfig, tenantID, sourceRef string, contacts []contact.UnifiedContact) {
	if cfg == nil || !cfg.Enabled {
		return
	}

	for _, c := range contacts {
		if !c.HasEmail() {
			continue
		}
		if err := upsertCanonicalOne(ctx, db, cfg, tenantID, sourceRef, c); err != nil {
			slog.Warn("canonical aggregation failed for contact",
				"tenant_id", tenantID, "source_ref", sourceRef, "error", err)
		}
	}
}

func upsertCanonicalOne(ctx context.Context, db *sql.DB, cfg *config.CanonicalConfig, tenantID, sourceRef string, c contact.UnifiedContact) error {
	if cfg.Shadow() {
		if cfg.VerboseShadowLogging {
			slog.Info("canonical aggregation shadow write",
				"tenant_id", tenantID, "email", c.Email, "company_name", c.CompanyName)
		}
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin canonical tx: %w", err)
	}
	defer tx.Rollback()

	personID, err := upsertPerson(ctx, tx, tenantID, c)
	if err != nil {
		return fmt.Errorf("upsert person: %w", err)
	}

	if err := upsertAffiliation(ctx, tx, tenantID, personID, sourceRef, c); err != nil {
		return fmt.Errorf("upsert affiliation: %w", err)
	}

	return tx.Commit()
}

// UpsertPersonTx and UpsertAffiliationTx expose upsertPerson/upsertAffiliation
// to callers that need the same canonical-write semantics inside their own
// transaction — namely the import pipeline (§4.11 step 2.d), which must know
// whether its own write succeeded rather than getting the best-effort,
// errors-swallowed behavior UpsertCanonical gives ResultAggregator V2.
func UpsertPersonTx(ctx context.Context, tx *sql.Tx, tenantID string, c contact.UnifiedContact) (string, error) {
	return upsertPerson(ctx, tx, tenantID, c)
}

func UpsertAffiliationTx(ctx context.Context, tx *sql.Tx, tenantID, personID, sourceRef string, c contact.UnifiedContact) error {
	return upsertAffiliation(ctx, tx, tenantID, personID, sourceRef, c)
}

// upsertPerson upserts a Person keyed on (tenant_id, lower(email)), filling
// names via COALESCE-on-NULLIF, and returns its person_id.
func upsertPerson(ctx context.Context, tx *sql.Tx, tenantID string, c contact.UnifiedContact) (string, error) {
	first, last := normalize.SplitName(c.ContactName)
	personID := uuid.NewString()

	var id string
	err := tx.QueryRowContext(ctx, `
		INSERT INTO persons (person_id, tenant_id, email, first_name, last_name, created_at, updated_at)
		VALUES ($1, $2, lower($3), $4, $5, now(), now())
		ON CONFLICT (tenant_id, (lower(email))) DO UPDATE SET
			first_name = COALESCE(NULLIF(EXCLUDED.first_name, ''), persons.first_name),
			last_name  = COALESCE(NULLIF(EXCLUDED.last_name, ''), persons.last_name),
			updated_at = now()
		RETURNING person_id`,
		personID, tenantID, c.Email, nullable(first), nullable(last),
	).Scan(&id)
	return id, err
}

// upsertAffiliation upserts an Affiliation for personID. When c.CompanyName
// is usable, it upserts keyed on (tenant, person, lower(company_name)) with
// additive NULL-fill and confidence MAX. Otherwise it inserts unconstrained,
// per §4.10.
func upsertAffiliation(ctx context.Context, tx *sql.Tx, tenantID, personID, sourceRef string, c contact.UnifiedContact) error {
	affiliationID := uuid.NewString()

	if !isUsableCompanyName(c.CompanyName) {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO affiliations (
				affiliation_id, tenant_id, person_id, company_name, position,
				country_code, city, website, phone, source_type, source_ref, confidence
			) VALUES ($1,$2,$3,NULL,$4,$5,$6,$7,$8,$9,$10,$11)`,
			affiliationID, tenantID, personID, nullable(c.JobTitle),
			nullable(c.Country), nullable(c.City), nullable(c.Website), nullable(c.Phone),
			CanonicalSourcePersist, sourceRef, c.Confidence,
		)
		return err
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO affiliations (
			affiliation_id, tenant_id, person_id, company_name, position,
			country_code, city, website, phone, source_type, source_ref, confidence
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (tenant_id, person_id, (lower(company_name))) WHERE company_name IS NOT NULL
		DO UPDATE SET
			position     = COALESCE(affiliations.position, EXCLUDED.position),
			country_code = COALESCE(affiliations.country_code, EXCLUDED.country_code),
			city         = COALESCE(affiliations.city, EXCLUDED.city),
			website      = COALESCE(affiliations.website, EXCLUDED.website),
			phone        = COALESCE(affiliations.phone, EXCLUDED.phone),
			confidence   = GREATEST(affiliations.confidence, EXCLUDED.confidence)`,
		affiliationID, tenantID, personID, c.CompanyName, nullable(c.JobTitle),
		nullable(c.Country), nullable(c.City), nullable(c.Website), nullable(c.Phone),
		CanonicalSourcePersist, sourceRef, c.Confidence,
	)
	return err
}

// isUsableCompanyName rejects empty names, @-strings (an email that leaked
// into the company field), and pipe-separated junk, per §4.10.
func isUsableCompanyName(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	if strings.Contains(name, "@") {
		return false
	}
	if strings.Contains(name, "|") {
		return false
	}
	return true
}
