package httpapi

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/hperssn/steady/internal/runner"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsCommand struct {
	Command runner.Command `json:"command"`
}

type wsMessage struct {
	Type  string        `json:"type"`
	Event *runner.Event `json:"event,omitempty"`
	Error string        `json:"error,omitempty"`
}

// runSocket streams run events over a websocket and accepts run commands
// ({"command":"pause"}) from the client.
func (s *Server) runSocket(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := s.manager.Subscribe(userID)
	defer unsubscribe()

	out := make(chan wsMessage, 16)
	done := make(chan struct{})
	quit := make(chan struct{})
	defer close(quit)

	reply := func(msg wsMessage) {
		select {
		case out <- msg:
		case <-quit:
		}
	}

	go func() {
		defer close(done)
		for {
			var msg wsCommand
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Command == runner.CmdTick {
				reply(wsMessage{Type: "error", Error: "ticks are driven by the server"})
				continue
			}
			if _, err := s.manager.Apply(userID, msg.Command); err != nil {
				log.Printf("ws: rejected command from %s: %v", userID, err)
				reply(wsMessage{Type: "error", Error: err.Error()})
			}
		}
	}()

	snap := runner.Event{Kind: runner.EventNone, Snapshot: s.manager.Snapshot(userID)}
	if err := conn.WriteJSON(wsMessage{Type: "event", Event: &snap}); err != nil {
		return
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(wsMessage{Type: "event", Event: &ev}); err != nil {
				log.Printf("ws: write error: %v", err)
				return
			}
		case msg := <-out:
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws: write error: %v", err)
				return
			}
		case <-done:
			return
		}
	}
}
