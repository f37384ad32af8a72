// Package store persists projects, tags, questions and generated datasets.
//
// Two modes exist behind one interface: an in-memory store for tests and
// one-shot CLI runs, and a Postgres store selected when a DSN is configured.
package store

import (
	"context"
	"errors"

	"distillery/internal/types"
)

var ErrNotFound = errors.New("store: not found")

// Store is the full persistence surface the distillation services need.
// List operations return full snapshots; no pagination is assumed.
type Store interface {
	GetProject(ctx context.Context, projectID string) (types.Project, error)
	PutProject(ctx context.Context, p types.Project) error

	GetMultiTurnConfig(ctx context.Context, projectID string) (types.MultiTurnConfig, error)
	PutMultiTurnConfig(ctx context.Context, projectID string, cfg types.MultiTurnConfig) error

	ListTags(ctx context.Context, projectID string) ([]types.Tag, error)
	AddTags(ctx context.Context, projectID string, tags []types.Tag) error

	ListQuestions(ctx context.Context, projectID string) ([]types.Question, error)
	AddQuestions(ctx context.Context, projectID string, questions []types.Question) error

	// PutDataset stores a single-turn record and flips the question's
	// answered flag in the same operation.
	PutDataset(ctx context.Context, projectID string, rec types.DatasetRecord) error
	ListDatasets(ctx context.Context, projectID string) ([]types.DatasetRecord, error)

	PutConversation(ctx context.Context, projectID string, conv types.MultiTurnConversation) error
	ListConversations(ctx context.Context, projectID string) ([]types.MultiTurnConversation, error)
	ListConversationQuestionIDs(ctx context.Context, projectID string) ([]string, error)

	Close() error
}
