package service

import (
	"context"
	"testing"

	llmclient "distillery/internal/llmClient"
	"distillery/internal/store"
	"distillery/internal/tester"
	"distillery/internal/types"
)

func newTestGenerator(t *testing.T) (*Generator, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	if err := st.PutProject(context.Background(), types.Project{ID: "p1", Name: "Biology"}); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return New("p1", st, llmclient.NewFakeClient()), st
}

func TestGenerateTagsPersistsAndDedupes(t *testing.T) {
	g, st := newTestGenerator(t)
	ctx := context.Background()

	created, err := g.GenerateTags(ctx, types.GenerateTagsRequest{
		ParentLabel: "Biology",
		TagPath:     "Biology",
		Count:       3,
		Model:       "test-model",
	})
	tester.NoErr(t, err)
	tester.Eq(t, 3, len(created))

	for _, tag := range created {
		tester.True(t, tag.ID != "")
		tester.Eq(t, "Biology", tag.Path)
		tester.Eq(t, "", tag.ParentID)
	}

	stored, err := st.ListTags(ctx, "p1")
	tester.NoErr(t, err)
	tester.Eq(t, 3, len(stored))
}

func TestGenerateTagsRejectsNonPositiveCount(t *testing.T) {
	g, _ := newTestGenerator(t)

	_, err := g.GenerateTags(context.Background(), types.GenerateTagsRequest{
		ParentLabel: "Biology",
		Count:       0,
	})
	tester.Err(t, err)
}

func TestGenerateQuestionsPersists(t *testing.T) {
	g, st := newTestGenerator(t)
	ctx := context.Background()

	created, err := g.GenerateQuestions(ctx, types.GenerateQuestionsRequest{
		TagID:      "t1",
		TagPath:    "Biology > Genetics",
		CurrentTag: "Genetics",
		Count:      2,
		Model:      "test-model",
	})
	tester.NoErr(t, err)
	tester.Eq(t, 2, len(created))
	for _, q := range created {
		tester.Eq(t, "t1", q.TagID)
		tester.Eq(t, "Genetics", q.TagLabel)
		tester.False(t, q.Answered)
	}

	stored, err := st.ListQuestions(ctx, "p1")
	tester.NoErr(t, err)
	tester.Eq(t, 2, len(stored))
}

func TestGenerateSingleDatasetMarksAnswered(t *testing.T) {
	g, st := newTestGenerator(t)
	ctx := context.Background()

	q := types.Question{ID: "q1", TagID: "t1", TagLabel: "Genetics", Text: "What is DNA?"}
	tester.NoErr(t, st.AddQuestions(ctx, "p1", []types.Question{q}))

	rec, err := g.GenerateSingleDataset(ctx, types.GenerateDatasetRequest{
		QuestionID: "q1",
		Question:   q.Text,
		Model:      "test-model",
	})
	tester.NoErr(t, err)
	tester.Eq(t, "q1", rec.QuestionID)
	tester.Contains(t, rec.Answer, "What is DNA?")

	stored, err := st.ListQuestions(ctx, "p1")
	tester.NoErr(t, err)
	tester.True(t, stored[0].Answered)
}

func TestGenerateSingleDatasetLooksUpQuestionText(t *testing.T) {
	g, st := newTestGenerator(t)
	ctx := context.Background()

	q := types.Question{ID: "q1", TagID: "t1", TagLabel: "Genetics", Text: "What is RNA?"}
	tester.NoErr(t, st.AddQuestions(ctx, "p1", []types.Question{q}))

	rec, err := g.GenerateSingleDataset(ctx, types.GenerateDatasetRequest{QuestionID: "q1", Model: "m"})
	tester.NoErr(t, err)
	tester.Contains(t, rec.Answer, "What is RNA?")
}

func TestGenerateSingleDatasetUnknownQuestion(t *testing.T) {
	g, _ := newTestGenerator(t)

	_, err := g.GenerateSingleDataset(context.Background(), types.GenerateDatasetRequest{QuestionID: "missing"})
	tester.Err(t, err)
}

func TestGenerateMultiTurnDatasetPersists(t *testing.T) {
	g, st := newTestGenerator(t)
	ctx := context.Background()

	conv, err := g.GenerateMultiTurnDataset(ctx, types.GenerateConversationRequest{
		QuestionID: "q1",
		Question:   "What is mitosis?",
		Scenario:   "tutoring session",
		Rounds:     3,
		RoleA:      "student",
		RoleB:      "teacher",
		Model:      "test-model",
	})
	tester.NoErr(t, err)
	tester.Eq(t, 6, len(conv.Turns))
	tester.Eq(t, "student", conv.Turns[0].Role)
	tester.Eq(t, "teacher", conv.Turns[1].Role)

	ids, err := st.ListConversationQuestionIDs(ctx, "p1")
	tester.NoErr(t, err)
	tester.Eq(t, 1, len(ids))
	tester.Eq(t, "q1", ids[0])
}
