package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wricardo/socialspot/room/router"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Avatars travel as data URIs.
	maxMessageSize = 512 * 1024

	// Outbound frames buffered per client before it is dropped.
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// EventHandler receives connection lifecycle events and inbound frames.
// All calls are made from the Run goroutine, one at a time.
type EventHandler interface {
	Connect(connID string)
	Disconnect(connID string)
	HandleFrame(connID string, frame []byte)
}

// Frame is the wire envelope written to clients
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Client represents a WebSocket client
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string
}

type inbound struct {
	client *Client
	data   []byte
}

// Hub owns every client connection and serialises their events
type Hub struct {
	// Registered clients by connection id
	clients map[string]*Client
	mu      sync.RWMutex

	// Inbound frames from clients
	inbound chan inbound

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	logger *slog.Logger
}

// NewHub creates a new WebSocket hub. A nil logger discards output.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Hub{
		clients:    make(map[string]*Client),
		inbound:    make(chan inbound),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run is the hub's event loop. Every register, unregister and inbound frame
// is handed to handler to completion before the next one is read. Run
// returns when ctx is cancelled, closing every client.
func (h *Hub) Run(ctx context.Context, handler EventHandler) error {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
			h.safely(client.id, "connect", func() { handler.Connect(client.id) })

		case client := <-h.unregister:
			h.unregisterClient(client)
			h.safely(client.id, "disconnect", func() { handler.Disconnect(client.id) })

		case msg := <-h.inbound:
			h.safely(msg.client.id, "frame", func() { handler.HandleFrame(msg.client.id, msg.data) })

		case <-ctx.Done():
			h.closeAll()
			return nil
		}
	}
}

// ServeWS upgrades the request and registers a client with a fresh id.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		id:   uuid.NewString(),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// Emit queues an event for connID. Unknown connections are ignored. A client
// whose buffer is full is closed; its read pump then reports the disconnect.
func (h *Hub) Emit(connID string, event router.Outbound, payload any) {
	data, err := json.Marshal(Frame{Event: string(event), Data: payload})
	if err != nil {
		h.logger.Error("failed to marshal frame", "event", event, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[connID]
	if !ok {
		return
	}
	select {
	case client.send <- data:
	default:
		h.logger.Warn("client send buffer full, dropping connection", "conn", connID)
		delete(h.clients, connID)
		close(client.send)
	}
}

// Clients returns the number of open connections.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client.id] = client
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("client registered", "conn", client.id, "clients", total)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if current, ok := h.clients[client.id]; ok && current == client {
		delete(h.clients, client.id)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("client unregistered", "conn", client.id, "clients", total)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		delete(h.clients, id)
		close(client.send)
	}
}

// safely runs fn and logs a panic instead of crashing the event loop.
func (h *Hub) safely(connID, what string, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			h.logger.Error("event handler panicked", "conn", connID, "stage", what, "panic", p)
		}
	}()
	fn()
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read error", "conn", c.id, "error", err)
			}
			return
		}

		select {
		case c.hub.inbound <- inbound{client: c, data: data}:
		case <-c.hub.done:
			return
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection. Each
// queued event goes out as its own text frame.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
