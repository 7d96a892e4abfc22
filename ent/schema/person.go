package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Person holds the schema definition for the canonical Person entity (§3).
// Created/updated only by canonical aggregation (§4.10) and the import
// pipeline's canonical upsert (§4.11).
type Person struct {
	ent.Schema
}

// Fields of the Person.
func (Person) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("person_id").
			Unique().
			Immutable(),
		field.String("tenant_id").
			Immutable(),
		field.String("email").
			Comment("stored lowercase; unique per tenant case-insensitively"),
		field.String("first_name").
			Optional().
			Nillable(),
		field.String("last_name").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Edges of the Person.
func (Person) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("affiliations", Affiliation.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the Person.
func (Person) Indexes() []ent.Index {
	return []ent.Index{
		// True case-insensitive uniqueness is a functional index created via
		// migration hook (lower(email)); this index supports lookup planning.
		index.Fields("tenant_id", "email").
			Unique(),
	}
}
