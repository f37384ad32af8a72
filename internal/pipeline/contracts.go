// Package pipeline runs a distillation job end to end: topic tree, leaf
// questions, then single-turn and multi-turn dataset generation. Every
// stage is deficit-driven, so rerunning a job only generates what is
// still missing.
package pipeline

import (
	"context"

	"distillery/internal/types"
)

// TreeService is what the tree builder needs from a generation backend.
type TreeService interface {
	ListTags(ctx context.Context) ([]types.Tag, error)
	GenerateTags(ctx context.Context, req types.GenerateTagsRequest) ([]types.Tag, error)
}

// QuestionService is what the question generator needs.
type QuestionService interface {
	ListTags(ctx context.Context) ([]types.Tag, error)
	ListQuestions(ctx context.Context) ([]types.Question, error)
	GenerateQuestions(ctx context.Context, req types.GenerateQuestionsRequest) ([]types.Question, error)
}

// DatasetService is what the single-turn dataset generator needs.
type DatasetService interface {
	ListQuestions(ctx context.Context) ([]types.Question, error)
	GenerateSingleDataset(ctx context.Context, req types.GenerateDatasetRequest) (types.DatasetRecord, error)
}

// ConversationService is what the multi-turn generator needs.
type ConversationService interface {
	GetMultiTurnConfig(ctx context.Context) (types.MultiTurnConfig, error)
	ListQuestions(ctx context.Context) ([]types.Question, error)
	ListConvertedQuestionIDs(ctx context.Context) ([]string, error)
	GenerateMultiTurnDataset(ctx context.Context, req types.GenerateConversationRequest) (types.MultiTurnConversation, error)
}

// Service is the full collaborator surface the orchestrator wires up.
// *service.Generator satisfies it.
type Service interface {
	GetProject(ctx context.Context) (types.Project, error)
	TreeService
	QuestionService
	DatasetService
	ConversationService
}
