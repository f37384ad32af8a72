package server

import (
	"net/http"

	"distillery/internal/gateway/handler"
	"distillery/internal/gateway/middleware"
)

func NewMux(h *handler.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/project", h.HandleUpsertProject)
	mux.HandleFunc("/v1/project/multi-turn", h.HandleUpsertMultiTurnConfig)

	mux.HandleFunc("/v1/run/start", h.HandleStartRun)
	mux.HandleFunc("/v1/run/state", h.HandleRunState)
	mux.HandleFunc("/v1/run/logs", h.HandleRunLogs)
	mux.HandleFunc("/v1/run/artifacts", h.HandleRunArtifacts)
	mux.HandleFunc("/v1/run/artifact", h.HandleRunArtifact)
	mux.HandleFunc("/v1/run/watch", h.HandleWatchRun)

	return middleware.CORS(mux)
}
