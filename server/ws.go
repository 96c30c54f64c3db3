package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wizenheimer/banter"
)

const writeWait = 10 * time.Second

// wsRequest is the incoming WebSocket message format.
type wsRequest struct {
	Type    string `json:"type"` // "message", "regenerate", "clear" or "learning"
	Text    string `json:"text,omitempty"`
	Enabled bool   `json:"enabled,omitempty"`
}

// wsResponse is the outgoing WebSocket message format.
type wsResponse struct {
	Type  string        `json:"type"` // "event" or "error"
	Event *banter.Event `json:"event,omitempty"`
	Error string        `json:"error,omitempty"`
}

// handleWebSocket streams every conversation event to the client and accepts
// commands on the same connection. Replies arrive as events.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	send := func(resp wsResponse) {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(resp); err != nil {
			slog.Debug("websocket write failed", slog.Any("error", err))
		}
	}

	events, unsubscribe := s.engine.Subscribe(64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			send(wsResponse{Type: "event", Event: &ev})
		}
	}()
	defer func() {
		unsubscribe()
		<-done
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read failed", slog.Any("error", err))
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			send(wsResponse{Type: "error", Error: "invalid message format"})
			continue
		}

		switch req.Type {
		case "message":
			_, err = s.engine.Respond(r.Context(), req.Text)
		case "regenerate":
			_, err = s.engine.Regenerate(r.Context())
		case "clear":
			s.engine.Clear(r.Context())
		case "learning":
			s.engine.SetLearning(req.Enabled)
		default:
			send(wsResponse{Type: "error", Error: "unknown message type: " + req.Type})
			continue
		}
		if err != nil {
			send(wsResponse{Type: "error", Error: err.Error()})
		}
	}
}
