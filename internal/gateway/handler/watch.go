package handler

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"distillery/internal/gateway/run"
)

const (
	watchWSWriteWait = 10 * time.Second
	watchWSPongWait  = 60 * time.Second
	watchWSPingEvery = (watchWSPongWait * 9) / 10
)

var watchWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type watchWSOutbound struct {
	Type  string        `json:"type"`
	RunID string        `json:"runId,omitempty"`
	Event *run.RunEvent `json:"event,omitempty"`
	Code  string        `json:"code,omitempty"`
	Msg   string        `json:"message,omitempty"`
}

// HandleWatchRun streams run progress events over a websocket until the
// run ends or the client disconnects.
func (h *Handler) HandleWatchRun(w http.ResponseWriter, r *http.Request) {
	runID := strings.TrimSpace(r.URL.Query().Get("run_id"))
	if runID == "" {
		http.Error(w, "run_id is required", http.StatusBadRequest)
		return
	}

	conn, err := watchWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx := r.Context()

	if err := conn.SetReadDeadline(time.Now().Add(watchWSPongWait)); err != nil {
		log.Printf("watch ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(watchWSPongWait))
	})

	// Drain inbound frames so pong handling keeps working; clients do not
	// send anything meaningful on this socket.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	events, ok := h.runs.Broker().Get(runID)
	if !ok {
		_ = conn.SetWriteDeadline(time.Now().Add(watchWSWriteWait))
		_ = conn.WriteJSON(watchWSOutbound{
			Type: "error",
			Code: "not_found",
			Msg:  "unknown run",
		})
		return
	}

	_ = conn.SetWriteDeadline(time.Now().Add(watchWSWriteWait))
	if err := conn.WriteJSON(watchWSOutbound{Type: "subscribed", RunID: runID}); err != nil {
		return
	}
	if state, ok := h.runs.State(runID); ok {
		evt := run.RunEvent{RunID: runID, Status: state.Status, Error: state.Error, Snapshot: state.Snapshot}
		_ = conn.SetWriteDeadline(time.Now().Add(watchWSWriteWait))
		if err := conn.WriteJSON(watchWSOutbound{Type: "event", RunID: runID, Event: &evt}); err != nil {
			return
		}
	}

	ticker := time.NewTicker(watchWSPingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-readerDone:
			return
		case evt := <-events:
			if err := conn.SetWriteDeadline(time.Now().Add(watchWSWriteWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(watchWSOutbound{Type: "event", RunID: runID, Event: &evt}); err != nil {
				return
			}
			if evt.Status != run.StatusRunning {
				_ = conn.SetWriteDeadline(time.Now().Add(watchWSWriteWait))
				_ = conn.WriteJSON(watchWSOutbound{Type: "done", RunID: runID})
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(watchWSWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
