package database

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql"
)

// CreateGINIndexes creates full-text search GIN indexes for PostgreSQL.
// These enable efficient search on result_rows.company_name and contact_name,
// alongside the array-membership GIN index on emails created by the SQL
// migration (to_tsvector indexes aren't expressible via plain ent schema tags).
func CreateGINIndexes(ctx context.Context, driver *sql.Driver) error {
	db := driver.DB()

	// GIN index for company_name full-text search
	_, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_result_rows_company_name_gin
		ON result_rows USING gin(to_tsvector('english', COALESCE(company_name, '')))`)
	if err != nil {
		return fmt.Errorf("failed to create company_name GIN index: %w", err)
	}

	// GIN index for contact_name full-text search
	_, err = db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_result_rows_contact_name_gin
		ON result_rows USING gin(to_tsvector('english', COALESCE(contact_name, '')))`)
	if err != nil {
		return fmt.Errorf("failed to create contact_name GIN index: %w", err)
	}

	return nil
}
