package pipeline

import (
	"context"
	"errors"
	"fmt"

	"distillery/internal/progress"
	"distillery/internal/types"
)

// ErrMultiTurnConfig reports an absent or incomplete multi-turn
// configuration. It is checked before any generation call is made.
var ErrMultiTurnConfig = errors.New("multi-turn configuration is missing or incomplete")

// MultiTurnGenerator builds one conversation per question that does not
// already have one. Existence is decided by the stored conversation ID
// set, so reruns skip converted questions.
type MultiTurnGenerator struct {
	svc     ConversationService
	tracker *progress.Tracker
	cfg     types.JobConfig
}

func NewMultiTurnGenerator(svc ConversationService, tr *progress.Tracker, cfg types.JobConfig) *MultiTurnGenerator {
	return &MultiTurnGenerator{svc: svc, tracker: tr, cfg: cfg}
}

// Run validates the project's multi-turn settings, then converts the
// remaining questions in waves.
func (m *MultiTurnGenerator) Run(ctx context.Context) error {
	m.tracker.SetStage(progress.StageMultiTurn)

	mtCfg, err := m.svc.GetMultiTurnConfig(ctx)
	if err != nil {
		return fmt.Errorf("multi-turn: %w: %w", ErrMultiTurnConfig, err)
	}
	if !mtCfg.Valid() {
		return fmt.Errorf("multi-turn: %w", ErrMultiTurnConfig)
	}

	questions, err := m.svc.ListQuestions(ctx)
	if err != nil {
		return fmt.Errorf("multi-turn: list questions: %w", err)
	}
	convertedIDs, err := m.svc.ListConvertedQuestionIDs(ctx)
	if err != nil {
		return fmt.Errorf("multi-turn: list conversations: %w", err)
	}
	converted := make(map[string]bool, len(convertedIDs))
	for _, id := range convertedIDs {
		converted[id] = true
	}

	var pending []types.Question
	for _, q := range questions {
		if !converted[q.ID] {
			pending = append(pending, q)
		}
	}

	m.tracker.Set(progress.FieldMultiTurnTotal, len(questions))
	m.tracker.Set(progress.FieldMultiTurnBuilt, len(questions)-len(pending))
	if len(pending) == 0 {
		m.tracker.Logf("all %d questions already have conversations", len(questions))
		return nil
	}
	m.tracker.Logf("converting %d of %d questions", len(pending), len(questions))

	work := func(ctx context.Context, q types.Question) error {
		_, err := m.svc.GenerateMultiTurnDataset(ctx, types.GenerateConversationRequest{
			QuestionID:   q.ID,
			Question:     q.Text,
			SystemPrompt: mtCfg.SystemPrompt,
			Scenario:     mtCfg.Scenario,
			Rounds:       mtCfg.Rounds,
			RoleA:        mtCfg.RoleA,
			RoleB:        mtCfg.RoleB,
			Model:        m.cfg.Model,
			Language:     m.cfg.Language,
		})
		if err != nil {
			return fmt.Errorf("convert question %s: %w", q.ID, err)
		}
		m.tracker.Add(progress.FieldMultiTurnBuilt, 1)
		return nil
	}

	report, err := forEachBatch(ctx, m.cfg.ConcurrencyLimit, pending, work, nil)
	if err != nil {
		return fmt.Errorf("multi-turn: %w", err)
	}
	for _, ferr := range report.Failed {
		m.tracker.Logf("multi-turn: %v", ferr)
	}
	return nil
}
