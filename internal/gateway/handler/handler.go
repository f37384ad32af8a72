// Package handler exposes the gateway's JSON HTTP surface: project setup,
// run control and the websocket progress watch.
package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"distillery/internal/gateway/repository/artifact"
	"distillery/internal/gateway/run"
	"distillery/internal/store"
	"distillery/internal/types"
)

type Handler struct {
	runs  *run.Service
	store store.Store
}

func New(runs *run.Service, st store.Store) *Handler {
	return &Handler{runs: runs, store: st}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[handler] write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// HandleUpsertProject creates or renames a project.
func (h *Handler) HandleUpsertProject(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var p types.Project
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(p.ID) == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if err := h.store.PutProject(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type multiTurnConfigRequest struct {
	ProjectID string                `json:"projectId"`
	Config    types.MultiTurnConfig `json:"config"`
}

// HandleUpsertMultiTurnConfig stores the scenario and role settings a
// multi-turn run requires.
func (h *Handler) HandleUpsertMultiTurnConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req multiTurnConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.ProjectID) == "" {
		writeError(w, http.StatusBadRequest, "projectId is required")
		return
	}
	if !req.Config.Valid() {
		writeError(w, http.StatusBadRequest, "scenario, roleA, roleB are required and rounds must be at least 1")
		return
	}
	if err := h.store.PutMultiTurnConfig(r.Context(), req.ProjectID, req.Config); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, req.Config)
}

// HandleStartRun launches a distillation run and returns its ID.
func (h *Handler) HandleStartRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var cfg types.JobConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	runID, err := h.runs.Start(cfg)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"runId": runID})
}

// HandleRunState returns the current state of a run.
func (h *Handler) HandleRunState(w http.ResponseWriter, r *http.Request) {
	runID := strings.TrimSpace(r.URL.Query().Get("run_id"))
	if runID == "" {
		writeError(w, http.StatusBadRequest, "run_id is required")
		return
	}
	state, ok := h.runs.State(runID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown run")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// HandleRunLogs returns the retained log feed for a run.
func (h *Handler) HandleRunLogs(w http.ResponseWriter, r *http.Request) {
	runID := strings.TrimSpace(r.URL.Query().Get("run_id"))
	if runID == "" {
		writeError(w, http.StatusBadRequest, "run_id is required")
		return
	}
	logs, ok := h.runs.Logs(runID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown run")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runId": runID, "logs": logs})
}

// HandleRunArtifacts lists the archived exports of a run.
func (h *Handler) HandleRunArtifacts(w http.ResponseWriter, r *http.Request) {
	runID := strings.TrimSpace(r.URL.Query().Get("run_id"))
	if runID == "" {
		writeError(w, http.StatusBadRequest, "run_id is required")
		return
	}
	paths, err := h.runs.Artifacts(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runId": runID, "paths": paths})
}

// HandleRunArtifact streams one archived export.
func (h *Handler) HandleRunArtifact(w http.ResponseWriter, r *http.Request) {
	runID := strings.TrimSpace(r.URL.Query().Get("run_id"))
	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if runID == "" || path == "" {
		writeError(w, http.StatusBadRequest, "run_id and path are required")
		return
	}
	content, err := h.runs.Artifact(r.Context(), runID, path)
	if errors.Is(err, artifact.ErrNotFound) {
		writeError(w, http.StatusNotFound, "artifact not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(content)
}
