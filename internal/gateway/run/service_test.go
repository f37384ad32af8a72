package run

import (
	"context"
	"testing"
	"time"

	"distillery/internal/gateway/repository/artifact"
	llmclient "distillery/internal/llmClient"
	"distillery/internal/store"
	"distillery/internal/tester"
	"distillery/internal/types"
)

func waitForFinish(t *testing.T, svc *Service, runID string) State {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if st, ok := svc.State(runID); ok && st.Status != StatusRunning {
			return st
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("run %s did not finish in time", runID)
	return State{}
}

func TestServiceRunsJobAndArchives(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	tester.NoErr(t, st.PutProject(ctx, types.Project{ID: "p1", Name: "Biology"}))

	archive := artifact.NewMemoryStore()
	svc := NewService(st, llmclient.NewFakeClient(), archive)

	runID, err := svc.Start(types.JobConfig{
		ProjectID:       "p1",
		Topic:           "Biology",
		Levels:          1,
		TagsPerLevel:    2,
		QuestionsPerTag: 1,
		DatasetType:     types.DatasetSingleTurn,
		Model:           "test-model",
	})
	tester.NoErr(t, err)
	tester.True(t, runID != "")

	final := waitForFinish(t, svc, runID)
	tester.Eq(t, final.Status, StatusCompleted)
	tester.Eq(t, final.Snapshot.DatasetsBuilt, 2)

	paths, err := archive.List(ctx, runID)
	tester.NoErr(t, err)
	tester.Eq(t, len(paths), 2)
	tester.Eq(t, paths[0], "dataset.json")
	tester.Eq(t, paths[1], "progress.json")

	raw, err := archive.Get(ctx, runID, "dataset.json")
	tester.NoErr(t, err)
	tester.True(t, len(raw) > 0)
}

func TestServiceRejectsMissingProject(t *testing.T) {
	svc := NewService(store.NewMemoryStore(), llmclient.NewFakeClient(), nil)

	_, err := svc.Start(types.JobConfig{Topic: "Biology", Model: "m"})
	tester.Err(t, err, "projectId is required")
}

func TestServiceRejectsMissingModel(t *testing.T) {
	svc := NewService(store.NewMemoryStore(), llmclient.NewFakeClient(), nil)

	_, err := svc.Start(types.JobConfig{ProjectID: "p1", Topic: "Biology"})
	tester.Err(t, err)
}

func TestServiceFailedRunReportsError(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	tester.NoErr(t, st.PutProject(ctx, types.Project{ID: "p1", Name: "Biology"}))

	// multi-turn without a stored config fails the precondition check
	svc := NewService(st, llmclient.NewFakeClient(), nil)
	runID, err := svc.Start(types.JobConfig{
		ProjectID:       "p1",
		Topic:           "Biology",
		Levels:          1,
		TagsPerLevel:    1,
		QuestionsPerTag: 1,
		DatasetType:     types.DatasetMultiTurn,
		Model:           "test-model",
	})
	tester.NoErr(t, err)

	final := waitForFinish(t, svc, runID)
	tester.Eq(t, final.Status, StatusFailed)
	tester.True(t, final.Error != "")
}

func TestEventBrokerPublishDropsOldestWhenFull(t *testing.T) {
	b := NewEventBroker()
	b.Allocate("r1", 1)

	b.Publish("r1", RunEvent{RunID: "r1", Status: StatusRunning})
	b.Publish("r1", RunEvent{RunID: "r1", Status: StatusCompleted})

	ch, ok := b.Get("r1")
	tester.True(t, ok)
	evt := <-ch
	tester.Eq(t, evt.Status, StatusCompleted, "newest event wins when the buffer is full")
}

func TestEventBrokerPublishUnknownRunIsNoop(t *testing.T) {
	b := NewEventBroker()
	b.Publish("missing", RunEvent{RunID: "missing"})
}
