package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS is enforced on the REST routes only.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans desk events out to websocket clients by channel name.
//
// Run owns client registration. Once Run returns, clients that connect are
// turned away and pumps of connected clients stop without blocking on it.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	done       chan struct{} // closed when Run returns
	pumps      sync.WaitGroup

	logger *zap.SugaredLogger
}

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.SugaredLogger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes client registration until ctx is done, then disconnects
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				h.drop(c)
			}
			h.mu.Unlock()
			h.logger.Infow("ws_hub_stopped")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Infow("ws_client_connected", "client", c.id, "total", n)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				h.logger.Infow("ws_client_disconnected", "client", c.id, "total", len(h.clients))
			}
			h.mu.Unlock()
		}
	}
}

// drop removes c and closes its send queue. Caller holds h.mu.
func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.send)
}

// join hands c to Run. It reports false once the hub has stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Wait blocks until every client pump has exited.
func (h *Hub) Wait() { h.pumps.Wait() }

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastToChannel queues a message for every client subscribed to
// channel. Clients whose queue is full miss it.
func (h *Hub) BroadcastToChannel(channel, typ string, data any) {
	msg, err := json.Marshal(WSMessage{Type: typ, Channel: channel, Data: data})
	if err != nil {
		h.logger.Warnw("ws_marshal_failed", "channel", channel, "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.IsSubscribed(channel) {
			c.enqueue(msg)
		}
	}
}

// reply queues a message for c alone, if c is still connected.
func (h *Hub) reply(c *Client, msg WSMessage) {
	b, err := json.Marshal(msg)
	if err != nil {
		h.logger.Warnw("ws_marshal_failed", "client", c.id, "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; ok {
		c.enqueue(b)
	}
}

// Client is one websocket connection and its channel subscriptions.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string

	subsMu   sync.RWMutex
	channels map[string]struct{}
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		id:       conn.RemoteAddr().String(),
		channels: make(map[string]struct{}),
	}
}

// enqueue drops msg when the queue is full. Caller holds hub.mu so send is
// not closed underneath it.
func (c *Client) enqueue(msg []byte) {
	select {
	case c.send <- msg:
	default:
	}
}

// IsSubscribed reports whether c receives messages on channel.
func (c *Client) IsSubscribed(channel string) bool {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	_, ok := c.channels[channel]
	return ok
}

// apply handles one subscription request and acknowledges each channel.
func (c *Client) apply(req WSSubscribeRequest) {
	var subscribe bool
	switch req.Op {
	case "subscribe":
		subscribe = true
	case "unsubscribe":
	default:
		c.hub.reply(c, WSMessage{Type: "error", Data: "unknown op " + req.Op})
		return
	}

	for _, ch := range req.Channels {
		if !validChannel(ch) {
			c.hub.reply(c, WSMessage{Type: "error", Channel: ch, Data: "unknown channel"})
			continue
		}
		c.subsMu.Lock()
		if subscribe {
			c.channels[ch] = struct{}{}
		} else {
			delete(c.channels, ch)
		}
		c.subsMu.Unlock()
		c.hub.reply(c, WSMessage{Type: req.Op + "d", Channel: ch})
		c.hub.logger.Debugw("ws_"+req.Op+"d", "client", c.id, "channel", ch)
	}
}

func validChannel(ch string) bool {
	switch ch {
	case "executions", "inquiries", "gui":
		return true
	}
	id, ok := strings.CutPrefix(ch, "streams:")
	return ok && id != ""
}

// readPump decodes subscription requests until the connection fails.
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
		c.hub.pumps.Done()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var req WSSubscribeRequest
		if err := c.conn.ReadJSON(&req); err != nil {
			var syntax *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntax) || errors.As(err, &typeErr) {
				c.hub.reply(c, WSMessage{Type: "error", Data: "invalid request"})
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warnw("ws_read_failed", "client", c.id, "err", err)
			}
			return
		}
		c.apply(req)
	}
}

// writePump drains the send queue and keeps the connection alive with
// pings. A closed queue means the hub dropped the client.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.hub.pumps.Done()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "hub stopped"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// handleWebSocket upgrades the request and starts the client pumps. After
// the hub has stopped the connection is closed with CloseGoingAway.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("ws_upgrade_failed", "err", err)
		return
	}

	c := newClient(s.hub, conn)
	if !s.hub.join(c) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "hub stopped"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	s.hub.pumps.Add(2)
	go c.writePump()
	go c.readPump()
}
