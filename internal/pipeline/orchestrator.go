package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"distillery/internal/progress"
	"distillery/internal/types"
)

// ErrModelRequired reports a job submitted without a model name. There is
// no sensible default, so the run refuses to start.
var ErrModelRequired = errors.New("job config has no model")

// Orchestrator sequences one distillation run: tree, questions, then the
// dataset tracks selected by the job's dataset type. Stage errors are
// fatal and leave already persisted work in place; there is no rollback.
type Orchestrator struct {
	svc     Service
	tracker *progress.Tracker
}

func NewOrchestrator(svc Service, tr *progress.Tracker) *Orchestrator {
	return &Orchestrator{svc: svc, tracker: tr}
}

// Run executes the job to completion or the first fatal error.
func (o *Orchestrator) Run(ctx context.Context, cfg types.JobConfig) error {
	cfg = cfg.Normalized()
	if strings.TrimSpace(cfg.Model) == "" {
		return ErrModelRequired
	}

	o.tracker.SetStage(progress.StageInitializing)
	o.tracker.Logf("run started: topic=%q levels=%d tags/level=%d questions/tag=%d type=%s",
		cfg.Topic, cfg.Levels, cfg.TagsPerLevel, cfg.QuestionsPerTag, cfg.DatasetType)

	project := o.resolveProjectName(ctx, cfg)

	tree := NewTreeBuilder(o.svc, o.tracker, cfg, project)
	if err := tree.Build(ctx); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	questions := NewQuestionGenerator(o.svc, o.tracker, cfg)
	if err := questions.Run(ctx); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	if cfg.DatasetType.WantsSingleTurn() {
		datasets := NewDatasetGenerator(o.svc, o.tracker, cfg)
		if err := datasets.Run(ctx); err != nil {
			return fmt.Errorf("run: %w", err)
		}
	}
	if cfg.DatasetType.WantsMultiTurn() {
		multi := NewMultiTurnGenerator(o.svc, o.tracker, cfg)
		if err := multi.Run(ctx); err != nil {
			return fmt.Errorf("run: %w", err)
		}
	}

	o.tracker.SetStage(progress.StageCompleted)
	o.tracker.Logf("run completed")
	return nil
}

// resolveProjectName prefers the stored project display name and falls
// back to the topic. Lookup failure is logged, never fatal.
func (o *Orchestrator) resolveProjectName(ctx context.Context, cfg types.JobConfig) string {
	p, err := o.svc.GetProject(ctx)
	if err != nil {
		log.Printf("[pipeline] project %s lookup failed, using topic as root: %v", cfg.ProjectID, err)
		o.tracker.Logf("project name unavailable, using topic %q", cfg.Topic)
		return cfg.Topic
	}
	if strings.TrimSpace(p.Name) == "" {
		o.tracker.Logf("project name empty, using topic %q", cfg.Topic)
		return cfg.Topic
	}
	return p.Name
}
