package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
)

// DatasetRecord holds the schema definition for a single-turn answer.
type DatasetRecord struct {
	ent.Schema
}

// Fields of the DatasetRecord.
func (DatasetRecord) Fields() []ent.Field {
	return []ent.Field{
		field.Text("answer"),
		field.String("model").
			Default(""),
		field.Bool("confirmed").
			Default(false),
	}
}

// Edges of the DatasetRecord.
func (DatasetRecord) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("question", Question.Type).
			Ref("dataset").
			Unique().
			Required(),
	}
}
