// Package run owns the lifecycle of distillation runs started through the
// gateway: launching the pipeline, fanning progress out to watchers and
// archiving the exportable results when a run completes.
package run

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"distillery/internal/gateway/repository/artifact"
	llmclient "distillery/internal/llmClient"
	"distillery/internal/pipeline"
	"distillery/internal/progress"
	"distillery/internal/service"
	"distillery/internal/store"
	"distillery/internal/types"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// State is the externally visible view of one run.
type State struct {
	RunID      string            `json:"runId"`
	ProjectID  string            `json:"projectId"`
	Status     Status            `json:"status"`
	Error      string            `json:"error,omitempty"`
	StartedAt  time.Time         `json:"startedAt"`
	FinishedAt time.Time         `json:"finishedAt,omitzero"`
	Snapshot   progress.Snapshot `json:"snapshot"`
}

// Service launches and tracks distillation runs.
type Service struct {
	store     store.Store
	llm       llmclient.LLMClient
	artifacts artifact.Store
	broker    *EventBroker

	mu   sync.RWMutex
	runs map[string]*State
}

// NewService wires the run service. artifacts may be nil; completed runs
// are then not archived.
func NewService(st store.Store, llm llmclient.LLMClient, artifacts artifact.Store) *Service {
	return &Service{
		store:     st,
		llm:       llm,
		artifacts: artifacts,
		broker:    NewEventBroker(),
		runs:      make(map[string]*State),
	}
}

// Broker exposes the event broker for watch handlers.
func (s *Service) Broker() *EventBroker { return s.broker }

// Start validates the job and launches it in the background, returning the
// new run ID immediately.
func (s *Service) Start(cfg types.JobConfig) (string, error) {
	cfg = cfg.Normalized()
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return "", fmt.Errorf("projectId is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return "", pipeline.ErrModelRequired
	}

	runID := uuid.NewString()
	s.broker.Allocate(runID, 64)

	s.mu.Lock()
	s.runs[runID] = &State{
		RunID:     runID,
		ProjectID: cfg.ProjectID,
		Status:    StatusRunning,
		StartedAt: time.Now(),
		Snapshot:  progress.Snapshot{Stage: progress.StageInitializing},
	}
	s.mu.Unlock()

	tracker := progress.NewTrackerWithNotify(func(snap progress.Snapshot) {
		s.updateSnapshot(runID, snap)
		s.broker.Publish(runID, RunEvent{RunID: runID, Status: StatusRunning, Snapshot: snap})
	})

	go s.execute(runID, cfg, tracker)
	return runID, nil
}

func (s *Service) execute(runID string, cfg types.JobConfig, tracker *progress.Tracker) {
	ctx := context.Background()
	gen := service.New(cfg.ProjectID, s.store, s.llm)

	err := pipeline.NewOrchestrator(gen, tracker).Run(ctx, cfg)
	final := tracker.Snapshot()
	tracker.Close()

	status := StatusCompleted
	errMsg := ""
	if err != nil {
		status = StatusFailed
		errMsg = err.Error()
		log.Printf("[run] %s failed: %v", runID, err)
	} else if s.artifacts != nil {
		s.archive(ctx, runID, cfg, final)
	}

	s.mu.Lock()
	if st, ok := s.runs[runID]; ok {
		st.Status = status
		st.Error = errMsg
		st.FinishedAt = time.Now()
		st.Snapshot = final
	}
	s.mu.Unlock()

	s.broker.Publish(runID, RunEvent{RunID: runID, Status: status, Error: errMsg, Snapshot: final})
	s.broker.ScheduleCleanup(runID)
}

// archive writes the run's exportable outputs. Failures are logged, never
// fatal; the data stays queryable in the primary store regardless.
func (s *Service) archive(ctx context.Context, runID string, cfg types.JobConfig, final progress.Snapshot) {
	put := func(path string, v any) {
		raw, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			log.Printf("[run] %s marshal %s: %v", runID, path, err)
			return
		}
		if err := s.artifacts.Put(ctx, runID, path, raw); err != nil {
			log.Printf("[run] %s archive %s: %v", runID, path, err)
		}
	}

	put("progress.json", final)

	if cfg.DatasetType.WantsSingleTurn() {
		datasets, err := s.store.ListDatasets(ctx, cfg.ProjectID)
		if err != nil {
			log.Printf("[run] %s list datasets: %v", runID, err)
		} else {
			put("dataset.json", datasets)
		}
	}
	if cfg.DatasetType.WantsMultiTurn() {
		conversations, err := s.store.ListConversations(ctx, cfg.ProjectID)
		if err != nil {
			log.Printf("[run] %s list conversations: %v", runID, err)
		} else {
			put("conversations.json", conversations)
		}
	}
}

func (s *Service) updateSnapshot(runID string, snap progress.Snapshot) {
	s.mu.Lock()
	if st, ok := s.runs[runID]; ok && st.Status == StatusRunning {
		st.Snapshot = snap
	}
	s.mu.Unlock()
}

// State returns a copy of the run's current state.
func (s *Service) State(runID string) (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.runs[strings.TrimSpace(runID)]
	if !ok {
		return State{}, false
	}
	out := *st
	out.Snapshot.Logs = append([]string(nil), st.Snapshot.Logs...)
	return out, true
}

// Logs returns the run's retained log feed.
func (s *Service) Logs(runID string) ([]string, bool) {
	st, ok := s.State(runID)
	if !ok {
		return nil, false
	}
	return st.Snapshot.Logs, true
}

// Artifacts lists the archived export paths for a run.
func (s *Service) Artifacts(ctx context.Context, runID string) ([]string, error) {
	if s.artifacts == nil {
		return nil, nil
	}
	return s.artifacts.List(ctx, runID)
}

// Artifact fetches one archived export.
func (s *Service) Artifact(ctx context.Context, runID, path string) ([]byte, error) {
	if s.artifacts == nil {
		return nil, artifact.ErrNotFound
	}
	return s.artifacts.Get(ctx, runID, path)
}
