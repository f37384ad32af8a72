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

var conversationPromptSpec = prompt.ApplyPresets(prompt.Spec{
	Purpose:    "Simulate a realistic multi-round dialogue between two roles, opened by the given question.",
	Background: "The dialogue becomes a multi-turn training example; roleA asks, roleB answers, for the requested number of rounds.",
	OutputFields: []prompt.Field{
		{Name: "turns", Type: "object[]", Required: true, Description: "Alternating {role, content} turns, roleA first, exactly rounds*2 entries."},
	},
	Constraints: []string{
		"The first turn must be roleA asking the given question (rephrasing allowed).",
		"Later roleA turns must follow up naturally on roleB's previous answer.",
		"Stay inside the scenario.",
	},
}, prompt.PresetStrictJSON())

type conversationOut struct {
	Turns []types.ConversationTurn `json:"turns"`
}

// GenerateMultiTurnDataset asks the LLM for a conversation, persists and
// returns it.
func (g *Generator) GenerateMultiTurnDataset(ctx context.Context, req types.GenerateConversationRequest) (types.MultiTurnConversation, error) {
	spec := conversationPromptSpec
	spec.Language = req.Language

	text, err := spec.Render(req)
	if err != nil {
		return types.MultiTurnConversation{}, err
	}
	raw, err := g.generate(ctx, llmclient.KindConversation, text, req)
	if err != nil {
		return types.MultiTurnConversation{}, err
	}

	var out conversationOut
	if err := jsonutil.Unmarshal(raw, &out); err != nil {
		return types.MultiTurnConversation{}, fmt.Errorf("parse conversation response: %w", err)
	}
	if len(out.Turns) == 0 {
		return types.MultiTurnConversation{}, fmt.Errorf("generate conversation: empty turns for question %s", req.QuestionID)
	}
	for i, turn := range out.Turns {
		if strings.TrimSpace(turn.Role) == "" || strings.TrimSpace(turn.Content) == "" {
			return types.MultiTurnConversation{}, fmt.Errorf("generate conversation: turn %d is incomplete for question %s", i, req.QuestionID)
		}
	}

	conv := types.MultiTurnConversation{
		QuestionID: req.QuestionID,
		Scenario:   req.Scenario,
		RoleA:      req.RoleA,
		RoleB:      req.RoleB,
		Rounds:     req.Rounds,
		Turns:      out.Turns,
	}
	if err := g.Store.PutConversation(ctx, g.ProjectID, conv); err != nil {
		return types.MultiTurnConversation{}, fmt.Errorf("persist conversation: %w", err)
	}
	return conv, nil
}
