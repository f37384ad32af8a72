package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"distillery/internal/progress"
	"distillery/internal/tester"
	"distillery/internal/types"
)

// fakeService is an in-memory Service that records every generation call.
type fakeService struct {
	mu sync.Mutex

	project    types.Project
	projectErr error
	mtCfg      types.MultiTurnConfig
	mtCfgErr   error

	tags      []types.Tag
	questions []types.Question
	converted map[string]bool

	tagCalls      []types.GenerateTagsRequest
	questionCalls []types.GenerateQuestionsRequest
	datasetCalls  int
	convCalls     int
	events        []string

	failAnswerFor map[string]bool
	nextID        int
}

func newFakeService() *fakeService {
	return &fakeService{
		project:   types.Project{ID: "p1", Name: "Biology"},
		converted: make(map[string]bool),
	}
}

func (f *fakeService) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeService) GetProject(context.Context) (types.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.project, f.projectErr
}

func (f *fakeService) GetMultiTurnConfig(context.Context) (types.MultiTurnConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mtCfg, f.mtCfgErr
}

func (f *fakeService) ListTags(context.Context) ([]types.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Tag(nil), f.tags...), nil
}

func (f *fakeService) ListQuestions(context.Context) ([]types.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Question(nil), f.questions...), nil
}

func (f *fakeService) ListConvertedQuestionIDs(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.converted))
	for id := range f.converted {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeService) GenerateTags(_ context.Context, req types.GenerateTagsRequest) ([]types.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tagCalls = append(f.tagCalls, req)
	created := make([]types.Tag, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		t := types.Tag{
			ID:       f.id("tag"),
			Label:    fmt.Sprintf("%s child %d", req.ParentLabel, i+1),
			ParentID: req.ParentTagID,
			Path:     req.TagPath,
		}
		f.tags = append(f.tags, t)
		created = append(created, t)
	}
	return created, nil
}

func (f *fakeService) GenerateQuestions(_ context.Context, req types.GenerateQuestionsRequest) ([]types.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questionCalls = append(f.questionCalls, req)
	created := make([]types.Question, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		q := types.Question{
			ID:       f.id("q"),
			TagID:    req.TagID,
			TagLabel: req.CurrentTag,
			Text:     fmt.Sprintf("question %d about %s", i+1, req.CurrentTag),
		}
		f.questions = append(f.questions, q)
		created = append(created, q)
	}
	return created, nil
}

func (f *fakeService) GenerateSingleDataset(_ context.Context, req types.GenerateDatasetRequest) (types.DatasetRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.datasetCalls++
	f.events = append(f.events, "dataset")
	if f.failAnswerFor[req.QuestionID] {
		return types.DatasetRecord{}, fmt.Errorf("upstream refused question %s", req.QuestionID)
	}
	for i := range f.questions {
		if f.questions[i].ID == req.QuestionID {
			f.questions[i].Answered = true
		}
	}
	return types.DatasetRecord{QuestionID: req.QuestionID, Answer: "a", Model: req.Model}, nil
}

func (f *fakeService) GenerateMultiTurnDataset(_ context.Context, req types.GenerateConversationRequest) (types.MultiTurnConversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.convCalls++
	f.events = append(f.events, "conversation")
	f.converted[req.QuestionID] = true
	return types.MultiTurnConversation{QuestionID: req.QuestionID, Rounds: req.Rounds}, nil
}

func testConfig() types.JobConfig {
	return types.JobConfig{
		ProjectID:        "p1",
		Topic:            "Biology",
		Levels:           2,
		TagsPerLevel:     3,
		QuestionsPerTag:  2,
		DatasetType:      types.DatasetSingleTurn,
		ConcurrencyLimit: 2,
		Model:            "test-model",
		Language:         "English",
	}
}

func newTestTracker(t *testing.T) *progress.Tracker {
	t.Helper()
	tr := progress.NewTracker()
	t.Cleanup(tr.Close)
	return tr
}

// ---------------------------------------------------------------------------
// tree builder

func TestTreeBuilderBuildsFullTree(t *testing.T) {
	svc := newFakeService()
	tr := newTestTracker(t)
	cfg := testConfig()

	err := NewTreeBuilder(svc, tr, cfg, "Biology").Build(context.Background())
	tester.NoErr(t, err)

	tester.Eq(t, len(svc.tags), 12, "3 roots plus 3 children each")

	depth := tagDepths(svc.tags)
	roots, leaves := 0, 0
	for _, tag := range svc.tags {
		switch depth[tag.ID] {
		case 1:
			roots++
		case 2:
			leaves++
		}
	}
	tester.Eq(t, roots, 3)
	tester.Eq(t, leaves, 9)

	// level 1 hangs off the implicit project node
	tester.Eq(t, svc.tagCalls[0].ParentLabel, "Biology")
	tester.Eq(t, svc.tagCalls[0].TagPath, "Biology")
}

func TestTreeBuilderIsIdempotent(t *testing.T) {
	svc := newFakeService()
	tr := newTestTracker(t)
	cfg := testConfig()
	ctx := context.Background()

	tester.NoErr(t, NewTreeBuilder(svc, tr, cfg, "Biology").Build(ctx))
	calls := len(svc.tagCalls)

	tester.NoErr(t, NewTreeBuilder(svc, tr, cfg, "Biology").Build(ctx))
	tester.Eq(t, len(svc.tagCalls), calls, "complete tree must not trigger generation")
	tester.Eq(t, len(svc.tags), 12)
}

func TestTreeBuilderNeverRequestsNonPositiveCounts(t *testing.T) {
	svc := newFakeService()
	// partially built level 1: 2 of 3 roots exist
	svc.tags = []types.Tag{
		{ID: "t1", Label: "Genetics", Path: "Biology"},
		{ID: "t2", Label: "Ecology", Path: "Biology"},
	}
	tr := newTestTracker(t)

	tester.NoErr(t, NewTreeBuilder(svc, tr, testConfig(), "Biology").Build(context.Background()))
	for _, call := range svc.tagCalls {
		tester.True(t, call.Count > 0, "deficit request must be positive")
	}
	// level 1 deficit was exactly one
	tester.Eq(t, svc.tagCalls[0].Count, 1)
}

func TestTreeBuilderPathsStartWithProjectName(t *testing.T) {
	svc := newFakeService()
	// a pre-existing root whose stored path lacks the project prefix
	svc.tags = []types.Tag{{ID: "t1", Label: "Genetics", Path: "Genetics"}}
	tr := newTestTracker(t)

	tester.NoErr(t, NewTreeBuilder(svc, tr, testConfig(), "Biology").Build(context.Background()))

	for _, call := range svc.tagCalls {
		tester.True(t, strings.HasPrefix(call.TagPath, "Biology"),
			fmt.Sprintf("tag path %q must start with the project name", call.TagPath))
	}
	for _, tag := range svc.tags[1:] {
		tester.Eq(t, tag.PathRoot(), "Biology")
	}
}

// ---------------------------------------------------------------------------
// question generator

func TestQuestionGeneratorTargetsDeepLeavesOnly(t *testing.T) {
	svc := newFakeService()
	svc.tags = []types.Tag{
		{ID: "t1", Label: "Genetics", Path: "Biology"},
		{ID: "t2", Label: "DNA", ParentID: "t1", Path: "Biology > Genetics"},
		{ID: "t3", Label: "Ecology", Path: "Biology"}, // childless but shallow
	}
	tr := newTestTracker(t)

	tester.NoErr(t, NewQuestionGenerator(svc, tr, testConfig()).Run(context.Background()))

	tester.Eq(t, len(svc.questionCalls), 1)
	tester.Eq(t, svc.questionCalls[0].CurrentTag, "DNA")
	tester.Eq(t, svc.questionCalls[0].TagPath, "Biology > Genetics > DNA")
	tester.Eq(t, svc.questionCalls[0].Count, 2)
}

func TestQuestionGeneratorFillsDeficitOnly(t *testing.T) {
	svc := newFakeService()
	svc.tags = []types.Tag{
		{ID: "t1", Label: "Genetics", Path: "Biology"},
		{ID: "t2", Label: "DNA", ParentID: "t1", Path: "Biology > Genetics"},
	}
	svc.questions = []types.Question{
		{ID: "q1", TagID: "t2", TagLabel: "DNA", Text: "existing"},
	}
	tr := newTestTracker(t)

	tester.NoErr(t, NewQuestionGenerator(svc, tr, testConfig()).Run(context.Background()))

	tester.Eq(t, len(svc.questionCalls), 1)
	tester.Eq(t, svc.questionCalls[0].Count, 1, "one of two questions already exists")

	snap := tr.Snapshot()
	tester.Eq(t, snap.QuestionsTotal, 2)
	tester.Eq(t, snap.QuestionsBuilt, 2)
}

// ---------------------------------------------------------------------------
// dataset generator

func TestDatasetGeneratorSetsAbsoluteTotals(t *testing.T) {
	svc := newFakeService()
	svc.questions = []types.Question{
		{ID: "q1", TagLabel: "DNA", Text: "one", Answered: true},
		{ID: "q2", TagLabel: "DNA", Text: "two"},
		{ID: "q3", TagLabel: "DNA", Text: "three"},
	}
	tr := newTestTracker(t)

	tester.NoErr(t, NewDatasetGenerator(svc, tr, testConfig()).Run(context.Background()))

	tester.Eq(t, svc.datasetCalls, 2, "only unanswered questions get calls")
	snap := tr.Snapshot()
	tester.Eq(t, snap.DatasetsTotal, 3)
	tester.Eq(t, snap.DatasetsBuilt, 3)
}

func TestDatasetGeneratorItemFailureIsNotFatal(t *testing.T) {
	svc := newFakeService()
	svc.questions = []types.Question{
		{ID: "q1", TagLabel: "DNA", Text: "one"},
		{ID: "q2", TagLabel: "DNA", Text: "two"},
		{ID: "q3", TagLabel: "DNA", Text: "three"},
	}
	svc.failAnswerFor = map[string]bool{"q2": true}
	tr := newTestTracker(t)

	err := NewDatasetGenerator(svc, tr, testConfig()).Run(context.Background())
	tester.NoErr(t, err, "item failures must not abort the stage")

	snap := tr.Snapshot()
	tester.Eq(t, snap.DatasetsBuilt, 2)
	tester.Eq(t, snap.DatasetsTotal, 3)

	// failed item leaves its deficit for the next run
	found := false
	for _, line := range snap.Logs {
		if strings.Contains(line, "q2") {
			found = true
		}
	}
	tester.True(t, found, "failure must be logged")
}

// ---------------------------------------------------------------------------
// multi-turn generator

func TestMultiTurnRejectsIncompleteConfigBeforeAnyCall(t *testing.T) {
	svc := newFakeService()
	svc.questions = []types.Question{{ID: "q1", Text: "one"}}
	svc.mtCfg = types.MultiTurnConfig{Scenario: "exam prep", RoleA: "student", RoleB: "tutor", Rounds: 0}
	tr := newTestTracker(t)

	err := NewMultiTurnGenerator(svc, tr, testConfig()).Run(context.Background())
	tester.Err(t, err)
	tester.True(t, errors.Is(err, ErrMultiTurnConfig))
	tester.Eq(t, svc.convCalls, 0, "no generation before the precondition check")
}

func TestMultiTurnSkipsConvertedQuestions(t *testing.T) {
	svc := newFakeService()
	svc.questions = []types.Question{
		{ID: "q1", Text: "one"},
		{ID: "q2", Text: "two"},
	}
	svc.converted["q1"] = true
	svc.mtCfg = types.MultiTurnConfig{Scenario: "exam prep", RoleA: "student", RoleB: "tutor", Rounds: 2}
	tr := newTestTracker(t)

	tester.NoErr(t, NewMultiTurnGenerator(svc, tr, testConfig()).Run(context.Background()))

	tester.Eq(t, svc.convCalls, 1)
	snap := tr.Snapshot()
	tester.Eq(t, snap.MultiTurnTotal, 2)
	tester.Eq(t, snap.MultiTurnBuilt, 2)
}
