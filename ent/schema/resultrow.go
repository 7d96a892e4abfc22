package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ResultRow holds the schema definition for the ResultRow entity.
// The canonical per-extracted-contact row attached to a Job (§3).
type ResultRow struct {
	ent.Schema
}

// Fields of the ResultRow.
func (ResultRow) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("result_id").
			Unique().
			Immutable(),
		field.String("job_id").
			Immutable(),
		field.String("tenant_id").
			Immutable(),
		field.String("source_url").
			Optional(),
		field.String("company_name").
			Optional().
			Nillable(),
		field.String("contact_name").
			Optional().
			Nillable(),
		field.String("job_title").
			Optional().
			Nillable(),
		field.Strings("emails").
			Optional().
			Comment("ordered set, may be empty for profile-only rows"),
		field.String("phone").
			Optional().
			Nillable(),
		field.String("country").
			Optional().
			Nillable().
			Comment("ISO-3166-alpha-2 when resolvable"),
		field.String("city").
			Optional().
			Nillable(),
		field.String("address").
			Optional().
			Nillable(),
		field.String("website").
			Optional().
			Nillable(),
		field.Int("confidence").
			Default(0).
			Comment("0-100, clamped"),
		field.Enum("status").
			Values("new", "imported").
			Default("new"),
		field.String("verification_status").
			Optional().
			Nillable(),
		field.JSON("raw", map[string]interface{}{}).
			Optional().
			Comment("source + evidence + extraction metadata"),
		field.Time("created_at").
			Default(time.Now),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Edges of the ResultRow.
func (ResultRow) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("job", Job.Type).
			Ref("results").
			Field("job_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the ResultRow.
func (ResultRow) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("job_id"),
		index.Fields("tenant_id"),
		index.Fields("job_id", "status"),
		// GIN index over emails for the (job_id, email ∈ row.emails) lookup
		// used by §4.9 merge; created via migration hook, see pkg/database.
		index.Fields("job_id", "contact_name", "source_url").
			Annotations(entsql.IndexWhere("emails = '{}'")),
	}
}
