package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/TimurManjosov/goloyalty/internal/store"
)

// handleStream handles GET /v1/rulesets/stream: a Server-Sent Events feed of
// committed rule-set writes. ?kind= restricts it to one owner kind.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	var only store.OwnerKind
	if k := r.URL.Query().Get("kind"); k != "" {
		only = store.OwnerKind(k)
		if !only.Valid() {
			BadRequestError(w, r, ErrCodeInvalidKind, fmt.Sprintf("Unknown owner kind '%s'", k))
			return
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		InternalError(w, r, "Streaming not supported")
		return
	}

	changes, unsub := s.feed.Subscribe()
	defer unsub()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	fmt.Fprint(w, "event: ready\ndata: {}\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.streamsDone:
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case c, open := <-changes:
			if !open {
				return
			}
			if only != "" && c.Kind != only {
				continue
			}
			event := "update"
			if c.Deleted {
				event = "delete"
			}
			data, _ := json.Marshal(c)
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
			flusher.Flush()
		}
	}
}
