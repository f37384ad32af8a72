package service

import (
	"context"
	"fmt"
	"strings"

	llmclient "distillery/internal/llmClient"
	"distillery/internal/prompt"
	"distillery/internal/types"
	"distillery/internal/util/jsonutil"
)

var answerPromptSpec = prompt.ApplyPresets(prompt.Spec{
	Purpose:    "Answer the given question thoroughly and accurately for use as fine-tuning data.",
	Background: "The answer is stored verbatim as the assistant turn of a single-turn training example.",
	OutputFields: []prompt.Field{
		{Name: "answer", Type: "string", Required: true, Description: "Complete answer to the question."},
	},
	Constraints: []string{
		"Answer only the question asked.",
		"No preamble such as 'Sure' or 'Great question'.",
	},
}, prompt.PresetStrictJSON())

type answerOut struct {
	Answer string `json:"answer"`
}

// GenerateSingleDataset asks the LLM for an answer, persists the record
// (which also flips the question's answered flag) and returns it.
func (g *Generator) GenerateSingleDataset(ctx context.Context, req types.GenerateDatasetRequest) (types.DatasetRecord, error) {
	if strings.TrimSpace(req.Question) == "" {
		// callers pass the question text; fall back to a lookup by ID
		questions, err := g.ListQuestions(ctx)
		if err != nil {
			return types.DatasetRecord{}, err
		}
		for _, q := range questions {
			if q.ID == req.QuestionID {
				req.Question = q.Text
				req.TagLabel = q.TagLabel
				break
			}
		}
		if strings.TrimSpace(req.Question) == "" {
			return types.DatasetRecord{}, fmt.Errorf("generate dataset: question %s not found", req.QuestionID)
		}
	}

	spec := answerPromptSpec
	spec.Language = req.Language

	text, err := spec.Render(req)
	if err != nil {
		return types.DatasetRecord{}, err
	}
	raw, err := g.generate(ctx, llmclient.KindAnswer, text, req)
	if err != nil {
		return types.DatasetRecord{}, err
	}

	var out answerOut
	if err := jsonutil.Unmarshal(raw, &out); err != nil {
		return types.DatasetRecord{}, fmt.Errorf("parse answer response: %w", err)
	}
	if strings.TrimSpace(out.Answer) == "" {
		return types.DatasetRecord{}, fmt.Errorf("generate dataset: empty answer for question %s", req.QuestionID)
	}

	rec := types.DatasetRecord{
		QuestionID: req.QuestionID,
		Answer:     out.Answer,
		Model:      req.Model,
	}
	if err := g.Store.PutDataset(ctx, g.ProjectID, rec); err != nil {
		return types.DatasetRecord{}, fmt.Errorf("persist dataset: %w", err)
	}
	return rec, nil
}
