package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
)

// Question holds the schema definition for a generated distill question.
type Question struct {
	ent.Schema
}

// Fields of the Question.
func (Question) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("question_id").
			Unique().
			Immutable(),
		field.String("tag_label").
			Default(""),
		field.Text("text"),
		field.Bool("answered").
			Default(false),
	}
}

// Edges of the Question.
func (Question) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("project", Project.Type).
			Ref("questions").
			Unique(),
		edge.From("tag", Tag.Type).
			Ref("questions").
			Unique(),
		edge.To("dataset", DatasetRecord.Type).
			Unique(),
		edge.To("conversation", Conversation.Type).
			Unique(),
	}
}
