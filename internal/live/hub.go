// Package live pushes attendance events to connected websocket clients.
package live

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"checkclass/internal/domain"
	"checkclass/internal/queue"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

// Message is the frame sent to clients.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type client struct {
	who  domain.Principal
	send chan Message
}

// Hub tracks connected clients and fans events out to the ones allowed to see them.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewHub accepts websocket upgrades from the given origins. An empty list accepts any origin.
func NewHub(log *zap.Logger, origins ...string) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		log:     log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				o := r.Header.Get("Origin")
				return len(allowed) == 0 || o == "" || allowed[o]
			},
		},
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve upgrades the request and streams events to who until the connection closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, who domain.Principal) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{who: who, send: make(chan Message, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Info("live client connected", zap.String("user_id", who.UserID), zap.String("role", string(who.Role)))

	go h.writeLoop(conn, c)
	go h.readLoop(conn, c)
	return nil
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// readLoop only consumes control frames; clients have nothing to say.
func (h *Hub) readLoop(conn *websocket.Conn, c *client) {
	defer func() {
		h.remove(c)
		conn.Close()
		h.log.Info("live client disconnected", zap.String("user_id", c.who.UserID))
	}()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(conn *websocket.Conn, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Publish forwards msg to every client allowed to see it. Slow clients lose the message
// rather than blocking the publisher.
func (h *Hub) Publish(_ context.Context, msg queue.Message) error {
	out := Message{Event: msg.Type, Data: json.RawMessage(msg.Body)}
	var owner string
	if msg.Type == queue.TypeAttendanceRecorded || msg.Type == queue.TypeAttendanceUpdated {
		var rec struct {
			StudentID string `json:"studentId"`
		}
		if err := json.Unmarshal(msg.Body, &rec); err == nil {
			owner = rec.StudentID
		}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !visible(c.who, msg.Type, owner) {
			continue
		}
		select {
		case c.send <- out:
		default:
			h.log.Warn("live client too slow, dropping event", zap.String("user_id", c.who.UserID))
		}
	}
	return nil
}

// visible decides whether who may see an event of type typ concerning owner's record.
func visible(who domain.Principal, typ, owner string) bool {
	if domain.Allowed(who.Role, domain.CapViewAllAttendance) {
		return true
	}
	switch typ {
	case queue.TypeAttendanceRecorded, queue.TypeAttendanceUpdated:
		return owner != "" && owner == who.UserID
	}
	return false
}
