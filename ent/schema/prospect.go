package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Prospect holds the schema definition for the Prospect entity.
// The legacy tenant-scoped prospect table the import pipeline dual-writes
// into alongside the canonical Person/Affiliation tables (§4.11).
type Prospect struct {
	ent.Schema
}

// Fields of the Prospect.
func (Prospect) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("prospect_id").
			Unique().
			Immutable(),
		field.String("tenant_id").
			Immutable(),
		field.String("email").
			Comment("stored lowercase"),
		field.String("contact_name").
			Optional().
			Nillable(),
		field.String("company_name").
			Optional().
			Nillable(),
		field.Strings("tags").
			Optional(),
		field.JSON("metadata", map[string]interface{}{}).
			Optional(),
		field.Time("created_at").
			Default(time.Now),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Indexes of the Prospect.
func (Prospect) Indexes() []ent.Index {
	return []ent.Index{
		// (tenant, lower(email)) uniqueness is enforced by a functional unique
		// index created in a migration hook (ent field-level uniqueness can't
		// express lower()); see pkg/database/migrations.go.
		index.Fields("tenant_id", "email"),
	}
}
