package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"

	"distillery/internal/types"
)

// Conversation holds the schema definition for a multi-turn dataset entry.
type Conversation struct {
	ent.Schema
}

// Fields of the Conversation.
func (Conversation) Fields() []ent.Field {
	return []ent.Field{
		field.String("scenario").
			Default(""),
		field.String("role_a").
			Default(""),
		field.String("role_b").
			Default(""),
		field.Int("rounds").
			Default(0),
		field.JSON("turns", []types.ConversationTurn{}).
			Default([]types.ConversationTurn{}),
	}
}

// Edges of the Conversation.
func (Conversation) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("question", Question.Type).
			Ref("conversation").
			Unique().
			Required(),
	}
}
