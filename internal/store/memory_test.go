package store

import (
	"context"
	"testing"

	"distillery/internal/tester"
	"distillery/internal/types"
)

func TestMemoryStoreProjectRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.GetProject(ctx, "p1")
	tester.Eq(t, err, ErrNotFound)

	tester.NoErr(t, s.PutProject(ctx, types.Project{ID: "p1", Name: "Biology Corpus"}))
	p, err := s.GetProject(ctx, "p1")
	tester.NoErr(t, err)
	tester.Eq(t, p.Name, "Biology Corpus")
}

func TestMemoryStorePutDatasetMarksQuestionAnswered(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	tester.NoErr(t, s.AddQuestions(ctx, "p1", []types.Question{
		{ID: "q1", TagID: "t1", TagLabel: "Cells", Text: "What is a cell?"},
		{ID: "q2", TagID: "t1", TagLabel: "Cells", Text: "What is mitosis?"},
	}))
	tester.NoErr(t, s.PutDataset(ctx, "p1", types.DatasetRecord{QuestionID: "q1", Answer: "a", Model: "m"}))

	qs, err := s.ListQuestions(ctx, "p1")
	tester.NoErr(t, err)
	answered := map[string]bool{}
	for _, q := range qs {
		answered[q.ID] = q.Answered
	}
	tester.True(t, answered["q1"])
	tester.False(t, answered["q2"])
}

func TestMemoryStoreConversationIDs(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	tester.NoErr(t, s.PutConversation(ctx, "p1", types.MultiTurnConversation{QuestionID: "q2"}))
	tester.NoErr(t, s.PutConversation(ctx, "p1", types.MultiTurnConversation{QuestionID: "q1"}))

	ids, err := s.ListConversationQuestionIDs(ctx, "p1")
	tester.NoErr(t, err)
	tester.Eq(t, ids, []string{"q1", "q2"})
}

func TestMemoryStoreSnapshotsAreCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	tester.NoErr(t, s.AddTags(ctx, "p1", []types.Tag{{ID: "t1", Label: "Cells", Path: "Biology"}}))
	snap, err := s.ListTags(ctx, "p1")
	tester.NoErr(t, err)
	tester.NoErr(t, s.AddTags(ctx, "p1", []types.Tag{{ID: "t2", Label: "Genetics", Path: "Biology"}}))
	tester.Eq(t, len(snap), 1)
}
