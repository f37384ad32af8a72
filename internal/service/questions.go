package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	llmclient "distillery/internal/llmClient"
	"distillery/internal/prompt"
	"distillery/internal/types"
	"distillery/internal/util/jsonutil"
)

var questionPromptSpec = prompt.ApplyPresets(prompt.Spec{
	Purpose:    "Write standalone questions a learner could ask about the given leaf topic.",
	Background: "Each question later receives a generated answer; together they form a fine-tuning dataset.",
	OutputFields: []prompt.Field{
		{Name: "questions", Type: "string[]", Required: true, Description: "Self-contained questions about the topic."},
	},
	Constraints: []string{
		"Return at most `count` questions.",
		"Each question must be answerable without seeing the others.",
		"No yes/no questions.",
	},
	Rules: []string{
		"Use tagPath to stay within the topic's ancestry; currentTag is the precise subject.",
	},
}, prompt.PresetStrictJSON(), prompt.PresetNoInvent())

type questionsOut struct {
	Questions []string `json:"questions"`
}

// GenerateQuestions asks the LLM for questions on a leaf tag, persists and
// returns them. The returned slice may be shorter than requested.
func (g *Generator) GenerateQuestions(ctx context.Context, req types.GenerateQuestionsRequest) ([]types.Question, error) {
	if req.Count <= 0 {
		return nil, fmt.Errorf("generate questions: count must be positive, got %d", req.Count)
	}
	spec := questionPromptSpec
	spec.Language = req.Language

	text, err := spec.Render(req)
	if err != nil {
		return nil, err
	}
	raw, err := g.generate(ctx, llmclient.KindQuestions, text, req)
	if err != nil {
		return nil, err
	}

	var out questionsOut
	if err := jsonutil.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse questions response: %w", err)
	}

	created := make([]types.Question, 0, req.Count)
	for _, q := range out.Questions {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		created = append(created, types.Question{
			ID:       uuid.NewString(),
			TagID:    req.TagID,
			TagLabel: req.CurrentTag,
			Text:     q,
		})
		if len(created) == req.Count {
			break
		}
	}
	if len(created) == 0 {
		return nil, nil
	}
	if err := g.Store.AddQuestions(ctx, g.ProjectID, created); err != nil {
		return nil, fmt.Errorf("persist questions: %w", err)
	}
	return created, nil
}
