package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"CoinSentinel/internal/model"
	"CoinSentinel/internal/notifier"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrAckTimeout is returned by Prompt when nobody acknowledged in time.
var ErrAckTimeout = errors.New("alert not acknowledged in time")

type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type wsOut struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type ackData struct {
	FiringID string `json:"firingId"`
}

// Hub pushes rows and alerts to UI clients over WebSocket and collects
// their acknowledgements. It is the UI's notifier.Prompter.
type Hub struct {
	AckTimeout time.Duration

	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}

	mu      sync.Mutex
	pending map[string]*pendingAlert
}

type pendingAlert struct {
	prompt notifier.Prompt
	acked  chan struct{}
	once   sync.Once
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    map[*client]bool{},
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 1024),
		done:       make(chan struct{}),
		pending:    map[string]*pendingAlert{},
	}
}

// Run serves client registration and broadcasts until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return
		case c := <-h.register:
			h.clients[c] = true
			// late joiners still see alerts waiting for an ack
			for _, p := range h.Pending() {
				select {
				case c.send <- marshalWS("alert", p):
				default:
				}
			}
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
		}
	}
}

func (h *Hub) publish(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		zap.L().Warn("ws broadcast queue full, dropping message")
	}
}

// PublishRows sends the rows of a completed cycle to every client.
func (h *Hub) PublishRows(rows []model.DisplayRow) {
	h.publish(marshalWS("rows", rows))
}

// Prompt shows the alert on every client and blocks until one of them, or
// the HTTP API, acknowledges it.
func (h *Hub) Prompt(ctx context.Context, p notifier.Prompt) error {
	pa := &pendingAlert{prompt: p, acked: make(chan struct{})}
	h.mu.Lock()
	h.pending[p.FiringID] = pa
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.pending, p.FiringID)
		h.mu.Unlock()
	}()

	h.publish(marshalWS("alert", p))

	var timeout <-chan time.Time
	if h.AckTimeout > 0 {
		timer := time.NewTimer(h.AckTimeout)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-pa.acked:
		h.publish(marshalWS("ack", ackData{FiringID: p.FiringID}))
		return nil
	case <-timeout:
		return ErrAckTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ack acknowledges a pending alert. It reports false for unknown ids.
func (h *Hub) Ack(firingID string) bool {
	h.mu.Lock()
	pa, ok := h.pending[firingID]
	h.mu.Unlock()
	if !ok {
		return false
	}
	pa.once.Do(func() { close(pa.acked) })
	return true
}

// Pending returns the alerts waiting for an acknowledgement.
func (h *Hub) Pending() []notifier.Prompt {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]notifier.Prompt, 0, len(h.pending))
	for _, pa := range h.pending {
		out = append(out, pa.prompt)
	}
	return out
}

var upgrader = websocket.Upgrader{
	HandshakeTimeout:  10 * time.Second,
	ReadBufferSize:    4096,
	WriteBufferSize:   4096,
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// ServeWS upgrades the request and attaches the client to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Error("ws upgrade", zap.Error(err))
		return
	}
	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			zap.L().Debug("ws: bad client message", zap.Error(err))
			continue
		}
		if msg.Type != "ack" {
			continue
		}
		var ack ackData
		if err := json.Unmarshal(msg.Data, &ack); err == nil && ack.FiringID != "" {
			c.hub.Ack(ack.FiringID)
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(25 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return
			}
		}
	}
}

func marshalWS(t string, v interface{}) []byte {
	b, _ := json.Marshal(wsOut{Type: t, Data: v})
	return b
}
