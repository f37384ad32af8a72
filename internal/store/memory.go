package store

import (
	"context"
	"sort"
	"sync"

	"distillery/internal/types"
)

// MemoryStore keeps everything in process memory. Snapshot reads copy the
// underlying slices so callers never observe later mutation.
type MemoryStore struct {
	mu            sync.RWMutex
	projects      map[string]types.Project
	multiTurn     map[string]types.MultiTurnConfig
	tags          map[string][]types.Tag
	questions     map[string][]types.Question
	datasets      map[string][]types.DatasetRecord
	conversations map[string][]types.MultiTurnConversation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects:      make(map[string]types.Project),
		multiTurn:     make(map[string]types.MultiTurnConfig),
		tags:          make(map[string][]types.Tag),
		questions:     make(map[string][]types.Question),
		datasets:      make(map[string][]types.DatasetRecord),
		conversations: make(map[string][]types.MultiTurnConversation),
	}
}

func (s *MemoryStore) GetProject(_ context.Context, projectID string) (types.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[projectID]
	if !ok {
		return types.Project{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) PutProject(_ context.Context, p types.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = p
	return nil
}

func (s *MemoryStore) GetMultiTurnConfig(_ context.Context, projectID string) (types.MultiTurnConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.multiTurn[projectID]
	if !ok {
		return types.MultiTurnConfig{}, ErrNotFound
	}
	return cfg, nil
}

func (s *MemoryStore) PutMultiTurnConfig(_ context.Context, projectID string, cfg types.MultiTurnConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.multiTurn[projectID] = cfg
	return nil
}

func (s *MemoryStore) ListTags(_ context.Context, projectID string) ([]types.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Tag(nil), s.tags[projectID]...), nil
}

func (s *MemoryStore) AddTags(_ context.Context, projectID string, tags []types.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags[projectID] = append(s.tags[projectID], tags...)
	return nil
}

func (s *MemoryStore) ListQuestions(_ context.Context, projectID string) ([]types.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Question(nil), s.questions[projectID]...), nil
}

func (s *MemoryStore) AddQuestions(_ context.Context, projectID string, questions []types.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[projectID] = append(s.questions[projectID], questions...)
	return nil
}

func (s *MemoryStore) PutDataset(_ context.Context, projectID string, rec types.DatasetRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasets[projectID] = append(s.datasets[projectID], rec)
	qs := s.questions[projectID]
	for i := range qs {
		if qs[i].ID == rec.QuestionID {
			qs[i].Answered = true
			break
		}
	}
	return nil
}

func (s *MemoryStore) ListDatasets(_ context.Context, projectID string) ([]types.DatasetRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.DatasetRecord(nil), s.datasets[projectID]...), nil
}

func (s *MemoryStore) PutConversation(_ context.Context, projectID string, conv types.MultiTurnConversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[projectID] = append(s.conversations[projectID], conv)
	return nil
}

func (s *MemoryStore) ListConversations(_ context.Context, projectID string) ([]types.MultiTurnConversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.MultiTurnConversation(nil), s.conversations[projectID]...), nil
}

func (s *MemoryStore) ListConversationQuestionIDs(_ context.Context, projectID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.conversations[projectID]))
	for _, c := range s.conversations[projectID] {
		ids = append(ids, c.QuestionID)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) Close() error { return nil }
