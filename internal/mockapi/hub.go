package mockapi

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// hub tracks websocket connections per user and fans notification events
// out to them, in the shape the backend emits.
type hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[int64][]*websocket.Conn
}

func newHub(logger *slog.Logger) *hub {
	return &hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Dev harness: all origins allowed.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[int64][]*websocket.Conn),
	}
}

// serve upgrades the request and parks the connection until the peer
// closes it. Inbound frames are read and discarded to keep control
// handling alive; the channel is push-only.
func (h *hub) serve(w http.ResponseWriter, r *http.Request, userID int64) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("mockapi: upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.conns[userID] = append(h.conns[userID], conn)
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		remaining := h.conns[userID][:0]
		for _, c := range h.conns[userID] {
			if c != conn {
				remaining = append(remaining, c)
			}
		}
		h.conns[userID] = remaining
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// send marshals event to every connection of userID.
func (h *hub) send(userID int64, event any) {
	h.mu.Lock()
	conns := append([]*websocket.Conn(nil), h.conns[userID]...)
	h.mu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(event); err != nil {
			h.logger.Warn("mockapi: push failed", "user_id", userID, "error", err)
		}
	}
}
