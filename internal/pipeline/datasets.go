package pipeline

import (
	"context"
	"fmt"

	"distillery/internal/progress"
	"distillery/internal/types"
)

// DatasetGenerator answers every unanswered question, producing one
// single-turn dataset record each.
type DatasetGenerator struct {
	svc     DatasetService
	tracker *progress.Tracker
	cfg     types.JobConfig
}

func NewDatasetGenerator(svc DatasetService, tr *progress.Tracker, cfg types.JobConfig) *DatasetGenerator {
	return &DatasetGenerator{svc: svc, tracker: tr, cfg: cfg}
}

// Run sets the dataset counters absolutely from the question snapshot,
// then works through the unanswered remainder in waves.
func (d *DatasetGenerator) Run(ctx context.Context) error {
	d.tracker.SetStage(progress.StageDatasets)

	questions, err := d.svc.ListQuestions(ctx)
	if err != nil {
		return fmt.Errorf("datasets: list questions: %w", err)
	}

	var pending []types.Question
	for _, q := range questions {
		if !q.Answered {
			pending = append(pending, q)
		}
	}

	d.tracker.Set(progress.FieldDatasetsTotal, len(questions))
	d.tracker.Set(progress.FieldDatasetsBuilt, len(questions)-len(pending))
	if len(pending) == 0 {
		d.tracker.Logf("all %d questions already answered", len(questions))
		return nil
	}
	d.tracker.Logf("answering %d of %d questions", len(pending), len(questions))

	report, err := forEachBatch(ctx, d.cfg.ConcurrencyLimit, pending, d.answer, nil)
	if err != nil {
		return fmt.Errorf("datasets: %w", err)
	}
	for _, ferr := range report.Failed {
		d.tracker.Logf("datasets: %v", ferr)
	}
	return nil
}

func (d *DatasetGenerator) answer(ctx context.Context, q types.Question) error {
	_, err := d.svc.GenerateSingleDataset(ctx, types.GenerateDatasetRequest{
		QuestionID: q.ID,
		Question:   q.Text,
		TagLabel:   q.TagLabel,
		Model:      d.cfg.Model,
		Language:   d.cfg.Language,
	})
	if err != nil {
		return fmt.Errorf("answer question %s: %w", q.ID, err)
	}
	d.tracker.Add(progress.FieldDatasetsBuilt, 1)
	return nil
}
