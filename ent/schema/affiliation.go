package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Affiliation holds the schema definition for the canonical Affiliation
// entity (§3). Additive: enrichment fills NULLs and upgrades confidence via
// MAX, it never overwrites non-NULL fields (§4.10).
type Affiliation struct {
	ent.Schema
}

// Fields of the Affiliation.
func (Affiliation) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("affiliation_id").
			Unique().
			Immutable(),
		field.String("tenant_id").
			Immutable(),
		field.String("person_id").
			Immutable(),
		field.String("company_name").
			Optional().
			Nillable(),
		field.String("position").
			Optional().
			Nillable(),
		field.String("country_code").
			Optional().
			Nillable(),
		field.String("city").
			Optional().
			Nillable(),
		field.String("website").
			Optional().
			Nillable(),
		field.String("phone").
			Optional().
			Nillable(),
		field.String("source_type").
			Optional().
			Nillable().
			Comment("extractor name or 'import'"),
		field.String("source_ref").
			Optional().
			Nillable().
			Comment("job_id or prospect import batch ref"),
		field.Int("confidence").
			Default(0),
		field.JSON("raw", map[string]interface{}{}).
			Optional(),
	}
}

// Edges of the Affiliation.
func (Affiliation) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("person", Person.Type).
			Ref("affiliations").
			Field("person_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the Affiliation.
func (Affiliation) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "person_id"),
		// Uniqueness on (tenant, person, lower(company_name)) only applies when
		// company_name is non-null; enforced as a partial functional unique
		// index via migration hook (ent can't express lower() + partial
		// uniqueness together). NULL-company affiliations accumulate
		// unconstrained, per the open question in spec.md §9.
	}
}
