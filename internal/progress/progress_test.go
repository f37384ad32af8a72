package progress

import (
	"fmt"
	"testing"

	"distillery/internal/tester"
)

func TestTrackerAbsoluteAndIncrement(t *testing.T) {
	tr := NewTracker()
	defer tr.Close()

	tr.Set(FieldDatasetsTotal, 10)
	tr.Set(FieldDatasetsBuilt, 4)
	tr.Add(FieldDatasetsBuilt, 1)
	tr.Add(FieldDatasetsBuilt, 1)

	snap := tr.Snapshot()
	tester.Eq(t, snap.DatasetsTotal, 10)
	tester.Eq(t, snap.DatasetsBuilt, 6)
}

func TestTrackerStageTransitions(t *testing.T) {
	tr := NewTracker()
	defer tr.Close()

	tester.Eq(t, tr.Snapshot().Stage, StageInitializing)

	tr.SetStage(StageLevel(1))
	tester.Eq(t, tr.Snapshot().Stage, Stage("level1"))

	tr.SetStage(StageLevel(3))
	tester.Eq(t, tr.Snapshot().Stage, Stage("level3"))

	tr.SetStage(StageQuestions)
	tr.SetStage(StageDatasets)
	tr.SetStage(StageMultiTurn)
	tr.SetStage(StageCompleted)
	tester.Eq(t, tr.Snapshot().Stage, StageCompleted)
}

func TestTrackerLogCapKeepsMostRecent(t *testing.T) {
	tr := NewTracker()
	defer tr.Close()

	for i := 0; i < 250; i++ {
		tr.Logf("line %d", i)
	}

	snap := tr.Snapshot()
	tester.Eq(t, len(snap.Logs), MaxLogLines)
	tester.Eq(t, snap.Logs[0], "line 50")
	tester.Eq(t, snap.Logs[len(snap.Logs)-1], "line 249")
	for i, line := range snap.Logs {
		tester.Eq(t, line, fmt.Sprintf("line %d", i+50))
	}
}

func TestTrackerReset(t *testing.T) {
	tr := NewTracker()
	defer tr.Close()

	tr.SetStage(StageQuestions)
	tr.Set(FieldTagsTotal, 9)
	tr.Logf("building")
	tr.Reset()

	snap := tr.Snapshot()
	tester.Eq(t, snap.Stage, StageInitializing)
	tester.Eq(t, snap.TagsTotal, 0)
	tester.Eq(t, len(snap.Logs), 0)
}

func TestTrackerOnChangeSeesEveryUpdate(t *testing.T) {
	seen := make(chan Snapshot, 16)
	tr := NewTrackerWithNotify(func(s Snapshot) { seen <- s })
	defer tr.Close()

	tr.Set(FieldTagsBuilt, 3)
	tr.Add(FieldTagsBuilt, 2)

	first := <-seen
	second := <-seen
	tester.Eq(t, first.TagsBuilt, 3)
	tester.Eq(t, second.TagsBuilt, 5)
}

func TestTrackerSnapshotAfterClose(t *testing.T) {
	tr := NewTracker()
	tr.Set(FieldQuestionsTotal, 18)
	snap := tr.Snapshot()
	tester.Eq(t, snap.QuestionsTotal, 18)

	tr.Close()
	after := tr.Snapshot()
	tester.Eq(t, after.QuestionsTotal, 18)
	// dropped after close
	tr.Add(FieldQuestionsTotal, 5)
	tester.Eq(t, tr.Snapshot().QuestionsTotal, 18)
}
