package pipeline

import (
	"context"
	"fmt"

	"distillery/internal/progress"
	"distillery/internal/types"
)

// QuestionGenerator fills each leaf tag up to questionsPerTag questions.
// A leaf is a tag with no children sitting at the deepest configured
// level; shallower childless tags are dead branches and are skipped.
type QuestionGenerator struct {
	svc     QuestionService
	tracker *progress.Tracker
	cfg     types.JobConfig
}

func NewQuestionGenerator(svc QuestionService, tr *progress.Tracker, cfg types.JobConfig) *QuestionGenerator {
	return &QuestionGenerator{svc: svc, tracker: tr, cfg: cfg}
}

type questionJob struct {
	tag   types.Tag
	path  string
	count int
}

// Run generates the missing questions for every leaf. Totals are set
// absolutely from the leaf count so reruns report honest progress.
func (q *QuestionGenerator) Run(ctx context.Context) error {
	q.tracker.SetStage(progress.StageQuestions)

	tags, err := q.svc.ListTags(ctx)
	if err != nil {
		return fmt.Errorf("questions: list tags: %w", err)
	}
	questions, err := q.svc.ListQuestions(ctx)
	if err != nil {
		return fmt.Errorf("questions: list questions: %w", err)
	}

	leaves := q.leaves(tags)
	existing := make(map[string]int, len(questions))
	for _, qu := range questions {
		existing[qu.TagLabel]++
	}

	built := 0
	var jobs []questionJob
	for _, leaf := range leaves {
		have := existing[leaf.Label]
		if have > q.cfg.QuestionsPerTag {
			have = q.cfg.QuestionsPerTag
		}
		built += have
		if n := q.cfg.QuestionsPerTag - have; n > 0 {
			jobs = append(jobs, questionJob{
				tag:   leaf,
				path:  types.JoinPath(leaf.Path, leaf.Label),
				count: n,
			})
		}
	}

	q.tracker.Set(progress.FieldQuestionsTotal, len(leaves)*q.cfg.QuestionsPerTag)
	q.tracker.Set(progress.FieldQuestionsBuilt, built)
	if len(jobs) == 0 {
		q.tracker.Logf("questions already complete for %d leaves", len(leaves))
		return nil
	}
	q.tracker.Logf("generating questions for %d of %d leaves", len(jobs), len(leaves))

	report, err := forEachBatch(ctx, q.cfg.ConcurrencyLimit, jobs, q.runJob, nil)
	if err != nil {
		return fmt.Errorf("questions: %w", err)
	}
	for _, ferr := range report.Failed {
		q.tracker.Logf("questions: %v", ferr)
	}
	return nil
}

func (q *QuestionGenerator) runJob(ctx context.Context, j questionJob) error {
	created, err := q.svc.GenerateQuestions(ctx, types.GenerateQuestionsRequest{
		TagID:      j.tag.ID,
		TagPath:    j.path,
		CurrentTag: j.tag.Label,
		Count:      j.count,
		Model:      q.cfg.Model,
		Language:   q.cfg.Language,
	})
	if err != nil {
		return fmt.Errorf("generate questions for %q: %w", j.tag.Label, err)
	}
	q.tracker.Add(progress.FieldQuestionsBuilt, len(created))
	return nil
}

func (q *QuestionGenerator) leaves(tags []types.Tag) []types.Tag {
	children := childCounts(tags)
	depth := tagDepths(tags)
	var leaves []types.Tag
	for _, t := range tags {
		if children[t.ID] == 0 && depth[t.ID] == q.cfg.Levels {
			leaves = append(leaves, t)
		}
	}
	return leaves
}
