package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/hperssn/steady/internal/runner"
)

// streamRunEvents sends the current snapshot, then every run event, as
// server-sent events until the client goes away.
func (s *Server) streamRunEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	userID := UserID(r)
	events, unsubscribe := s.manager.Subscribe(userID)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	writeEvent(w, runner.Event{Kind: runner.EventNone, Snapshot: s.manager.Snapshot(userID)})
	flusher.Flush()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}

			writeEvent(w, ev)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, ev runner.Event) {
	data, _ := json.Marshal(ev)
	w.Write([]byte("event: " + string(ev.Kind) + "\n"))
	w.Write([]byte("data: "))
	w.Write(data)
	w.Write([]byte("\n\n"))
}
