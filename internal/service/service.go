// Package service implements the generation collaborators the pipeline
// calls into: tag, question, single-turn dataset and multi-turn
// conversation generation, all backed by an LLM client and a store.
//
// Generated entities are persisted before being returned, so everything a
// partially failed run produced survives for the next run to build on.
package service

import (
	"context"
	"fmt"
	"strings"

	llmclient "distillery/internal/llmClient"
	"distillery/internal/store"
	"distillery/internal/types"
)

// Generator bundles the collaborator operations around one project.
type Generator struct {
	ProjectID string
	Store     store.Store
	LLM       llmclient.LLMClient
}

// New creates a Generator for one project.
func New(projectID string, st store.Store, llm llmclient.LLMClient) *Generator {
	return &Generator{ProjectID: strings.TrimSpace(projectID), Store: st, LLM: llm}
}

// GetProject resolves the project display name.
func (g *Generator) GetProject(ctx context.Context) (types.Project, error) {
	return g.Store.GetProject(ctx, g.ProjectID)
}

// GetMultiTurnConfig fetches the project's multi-turn settings.
func (g *Generator) GetMultiTurnConfig(ctx context.Context) (types.MultiTurnConfig, error) {
	return g.Store.GetMultiTurnConfig(ctx, g.ProjectID)
}

// ListTags returns the full tag snapshot for the project.
func (g *Generator) ListTags(ctx context.Context) ([]types.Tag, error) {
	return g.Store.ListTags(ctx, g.ProjectID)
}

// ListQuestions returns the full distill-question snapshot.
func (g *Generator) ListQuestions(ctx context.Context) ([]types.Question, error) {
	return g.Store.ListQuestions(ctx, g.ProjectID)
}

// ListConvertedQuestionIDs returns the IDs of questions that already have a
// multi-turn conversation.
func (g *Generator) ListConvertedQuestionIDs(ctx context.Context) ([]string, error) {
	return g.Store.ListConversationQuestionIDs(ctx, g.ProjectID)
}

func (g *Generator) generate(ctx context.Context, kind llmclient.GenerationKind, promptText string, input any) ([]byte, error) {
	raw, err := g.LLM.GenerateJSON(llmclient.WithKind(ctx, kind), promptText, input)
	if err != nil {
		return nil, fmt.Errorf("%s generation: %w", kind, err)
	}
	return raw, nil
}
