package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Job holds the schema definition for the Job entity.
// A tenant-owned mining request: a URL plus a mining-mode hint, tracked
// through Flow 1 / Flow 2 extraction and, later, background import.
type Job struct {
	ent.Schema
}

// Fields of the Job.
func (Job) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("job_id").
			Unique().
			Immutable(),
		field.String("tenant_id").
			Immutable(),
		field.String("input_url"),
		field.JSON("config", map[string]interface{}{}).
			Optional().
			Comment("mining_mode, preferred_miner, flow2 overrides, page caps"),
		field.Enum("status").
			Values("pending", "flow1_running", "flow1_complete", "flow2_running", "flow2_complete", "completed", "failed").
			Default("pending"),
		field.String("worker_id").
			Optional().
			Nillable().
			Comment("id of the worker pool member currently holding this job, for stale-claim recovery"),
		field.Time("stage_updated_at").
			Default(time.Now).
			UpdateDefault(time.Now).
			Comment("bumped on every status transition; a claimed job whose stage hasn't moved past the staleness threshold is considered orphaned"),
		field.Enum("import_status").
			Values("absent", "processing", "completed", "failed").
			Default("absent"),
		field.JSON("import_progress", map[string]interface{}{}).
			Optional().
			Comment("imported/skipped/duplicates counters, last errors, list_member_count"),
		field.JSON("stats", map[string]interface{}{}).
			Optional().
			Comment("miner_stats, enrichment_rate, total_found, total_emails_raw, block_detected"),
		field.Time("import_started_at").
			Optional().
			Nillable().
			Comment("set when import transitions to processing, used for staleness checks"),
		field.String("error_message").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now),
		field.Time("completed_at").
			Optional().
			Nillable(),
	}
}

// Edges of the Job.
func (Job) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("results", ResultRow.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the Job.
func (Job) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id"),
		index.Fields("status"),
		index.Fields("import_status"),
		index.Fields("tenant_id", "status"),
	}
}
