package server

import (
	"net/http"
	"sync"
	"time"

	"vagent/core"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	statusSendBufferSize = 64
	statusWriteTimeout   = 10 * time.Second
)

// StatusEvent is one frame sent to observer UIs.
type StatusEvent struct {
	Type   string `json:"type"`
	State  string `json:"state"`
	Detail string `json:"detail,omitempty"`
}

// StatusHub fans request lifecycle events out to connected WebSocket
// observers. Slow observers drop frames rather than stalling the turn.
type StatusHub struct {
	logger   *core.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*statusClient
}

type statusClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func NewStatusHub(logger *core.Logger) *StatusHub {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &StatusHub{
		logger: logger.With(map[string]interface{}{"component": "statushub"}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*statusClient),
	}
}

// HandleWS upgrades the request and keeps streaming status frames until
// the observer disconnects.
func (h *StatusHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &statusClient{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, statusSendBufferSize),
	}

	h.mu.Lock()
	h.clients[client.id] = client
	h.mu.Unlock()
	h.logger.Debug("observer connected", "id", client.id)

	go h.writePump(client)
	h.readPump(client)
}

// Broadcast sends one status frame to every connected observer. Safe on a
// nil hub so callers need no wiring checks.
func (h *StatusHub) Broadcast(state, detail string) {
	if h == nil {
		return
	}

	payload, err := sonic.Marshal(StatusEvent{Type: "status", State: state, Detail: detail})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, client := range h.clients {
		select {
		case client.send <- payload:
		default:
			// Observer is not keeping up; drop the frame.
		}
	}
}

func (h *StatusHub) writePump(client *statusClient) {
	for payload := range client.send {
		_ = client.conn.SetWriteDeadline(time.Now().Add(statusWriteTimeout))
		if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.remove(client)
			return
		}
	}
}

func (h *StatusHub) readPump(client *statusClient) {
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			h.remove(client)
			return
		}
	}
}

func (h *StatusHub) remove(client *statusClient) {
	h.mu.Lock()
	_, present := h.clients[client.id]
	if present {
		delete(h.clients, client.id)
	}
	h.mu.Unlock()

	if present {
		close(client.send)
		_ = client.conn.Close()
		h.logger.Debug("observer disconnected", "id", client.id)
	}
}

// Close disconnects all observers.
func (h *StatusHub) Close() {
	h.mu.Lock()
	clients := make([]*statusClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
	}
}
