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

var tagPromptSpec = prompt.ApplyPresets(prompt.Spec{
	Purpose:    "Propose distinct subtopic labels under the given parent topic for a knowledge distillation taxonomy.",
	Background: "The labels become child tags in a topic tree used to seed question generation.",
	OutputFields: []prompt.Field{
		{Name: "tags", Type: "string[]", Required: true, Description: "Subtopic labels, most general first."},
	},
	Constraints: []string{
		"Return at most `count` labels.",
		"Labels must be short noun phrases, no numbering.",
		"Labels must not repeat the parent label or each other.",
	},
	Rules: []string{
		"Stay inside the scope described by tagPath; do not drift to sibling topics.",
	},
}, prompt.PresetStrictJSON(), prompt.PresetNoInvent())

type tagsOut struct {
	Tags []string `json:"tags"`
}

// GenerateTags asks the LLM for child labels, persists the resulting tags
// and returns them. The returned slice may be shorter than requested.
func (g *Generator) GenerateTags(ctx context.Context, req types.GenerateTagsRequest) ([]types.Tag, error) {
	if req.Count <= 0 {
		return nil, fmt.Errorf("generate tags: count must be positive, got %d", req.Count)
	}
	spec := tagPromptSpec
	spec.Language = req.Language

	text, err := spec.Render(req)
	if err != nil {
		return nil, err
	}
	raw, err := g.generate(ctx, llmclient.KindTags, text, req)
	if err != nil {
		return nil, err
	}

	var out tagsOut
	if err := jsonutil.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse tags response: %w", err)
	}

	seen := map[string]bool{strings.ToLower(strings.TrimSpace(req.ParentLabel)): true}
	created := make([]types.Tag, 0, req.Count)
	for _, label := range out.Tags {
		label = strings.TrimSpace(label)
		if label == "" || seen[strings.ToLower(label)] {
			continue
		}
		seen[strings.ToLower(label)] = true
		created = append(created, types.Tag{
			ID:       uuid.NewString(),
			Label:    label,
			ParentID: req.ParentTagID,
			Path:     req.TagPath,
		})
		if len(created) == req.Count {
			break
		}
	}
	if len(created) == 0 {
		return nil, nil
	}
	if err := g.Store.AddTags(ctx, g.ProjectID, created); err != nil {
		return nil, fmt.Errorf("persist tags: %w", err)
	}
	return created, nil
}
