package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/smallnest/reviewgraph/graph"
)

type nodeEventData struct {
	Node           string `json:"node"`
	Step           int    `json:"step"`
	Next           string `json:"next,omitempty"`
	DurationMS     int64  `json:"duration_ms"`
	RevisionNumber int    `json:"revision_number"`
	Snippets       int    `json:"snippets"`
}

// handleAnalyzeStream runs an analysis and reports each completed node as a
// server-sent event, followed by "result" or "error" and a final "done".
func (s *Server) handleAnalyzeStream(w http.ResponseWriter, r *http.Request) {
	runner, req, _, task, ok := s.prepare(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		sendJSONError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	events, sessionID, err := runner.Stream(r.Context(), task, req.MaxRevisions, req.SessionID)
	if err != nil {
		sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	sseEvent(w, flusher, "metadata", map[string]string{"session_id": sessionID})

	var draft string
	var revision int
	for e := range events {
		switch e.Event {
		case graph.NodeEventComplete:
			draft, revision = e.State.Draft, e.State.RevisionNumber
			sseEvent(w, flusher, "node", nodeEventData{
				Node:           e.NodeName,
				Step:           e.Step,
				Next:           e.Next,
				DurationMS:     e.Duration.Milliseconds(),
				RevisionNumber: e.State.RevisionNumber,
				Snippets:       len(e.State.Content),
			})
		case graph.NodeEventError:
			sseEvent(w, flusher, "error", map[string]string{"node": e.NodeName, "error": e.Err.Error()})
			sseEvent(w, flusher, "done", nil)
			return
		}
	}

	if draft == "" {
		// a finished session replays nothing; Run returns its saved draft
		res, err := runner.Run(r.Context(), task, req.MaxRevisions, sessionID)
		draft, revision = res.Draft, res.RevisionNumber
		if err != nil {
			sseEvent(w, flusher, "error", map[string]string{"error": err.Error()})
			sseEvent(w, flusher, "done", nil)
			return
		}
	}
	if draft == "" {
		sseEvent(w, flusher, "error", map[string]string{"error": "Analyze content not found"})
	} else {
		sseEvent(w, flusher, "result", analyzeResponse{
			Status:         "success",
			Content:        draft,
			SessionID:      sessionID,
			RevisionNumber: revision,
		})
	}
	sseEvent(w, flusher, "done", nil)
}

// sseEvent sends a server-sent event.
func sseEvent(w http.ResponseWriter, flusher http.Flusher, event string, data any) {
	payload := []byte("{}")
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return
		}
		payload = b
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	flusher.Flush()
}
