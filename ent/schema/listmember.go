package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ListMember holds the schema definition for the ListMember entity.
// Membership row linking a Prospect to a List, tenant-scoped.
type ListMember struct {
	ent.Schema
}

// Fields of the ListMember.
func (ListMember) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("list_member_id").
			Unique().
			Immutable(),
		field.String("tenant_id").
			Immutable(),
		field.String("list_id").
			Immutable(),
		field.String("prospect_id").
			Immutable(),
		field.Time("created_at").
			Default(time.Now),
	}
}

// Indexes of the ListMember.
func (ListMember) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("list_id", "prospect_id").
			Unique(),
	}
}
