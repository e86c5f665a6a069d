package realtime

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/carlfalc/offer-direct-stays/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10

	sendBufferSize = 32
)

// ConversationStream names the realtime stream carrying messages for one
// conversation.
func ConversationStream(conversationID string) string {
	return "conversation:" + conversationID
}

// Message is a JSON payload delivered to realtime subscribers.
type Message struct {
	Stream string `json:"stream"`
	Event  string `json:"event"`
	Data   any    `json:"data,omitempty"`
}

// Hub fans conversation events out to connected websocket clients. A client
// may only subscribe to streams in its allowed set (the conversations it
// participates in).
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*client]struct{}
	upgrader    websocket.Upgrader
	log         *zap.Logger
}

// NewHub constructs a realtime hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || hostOf(origin) == hostOf(r.Host)
			},
		},
		log: logger.WithModule("realtime"),
	}
}

// Serve upgrades the HTTP connection to a websocket subscribed to the given
// streams. allowed limits which streams the connection may ever join; nil
// means no restriction.
func (h *Hub) Serve(userID string, streams []string, allowed map[string]struct{}, w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		hub:     h,
		socket:  socket,
		userID:  userID,
		allowed: allowed,
		streams: make(map[string]struct{}),
		send:    make(chan Message, sendBufferSize),
	}
	h.subscribe(c, streams)

	go c.writeLoop()
	c.readLoop()
}

// Publish delivers a message to every subscriber of the stream. Delivery is
// best-effort: a slow client is disconnected rather than blocking the sender.
func (h *Hub) Publish(stream, event string, data any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := h.subscribers[stream]
	if len(targets) == 0 {
		return
	}

	msg := Message{Stream: stream, Event: event, Data: data}
	for c := range targets {
		select {
		case c.send <- msg:
		default:
			h.log.Warn("dropping slow realtime client", zap.String("user_id", c.userID))
			c.close()
		}
	}
}

// SubscriberCount reports how many clients listen on a stream (test hook).
func (h *Hub) SubscriberCount(stream string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[stream])
}

func (h *Hub) subscribe(c *client, streams []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, stream := range streams {
		stream = strings.TrimSpace(stream)
		if stream == "" || !c.isAllowed(stream) {
			continue
		}
		if _, ok := c.streams[stream]; ok {
			continue
		}
		if h.subscribers[stream] == nil {
			h.subscribers[stream] = make(map[*client]struct{})
		}
		h.subscribers[stream][c] = struct{}{}
		c.streams[stream] = struct{}{}
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for stream := range c.streams {
		if targets := h.subscribers[stream]; targets != nil {
			delete(targets, c)
			if len(targets) == 0 {
				delete(h.subscribers, stream)
			}
		}
	}
	c.streams = make(map[string]struct{})
}

type client struct {
	hub     *Hub
	socket  *websocket.Conn
	userID  string
	allowed map[string]struct{}
	streams map[string]struct{}
	send    chan Message
	once    sync.Once
}

func (c *client) isAllowed(stream string) bool {
	if c.allowed == nil {
		return true
	}
	_, ok := c.allowed[stream]
	return ok
}

func (c *client) close() {
	c.once.Do(func() {
		c.hub.unregister(c)
		close(c.send)
		_ = c.socket.Close()
	})
}

func (c *client) readLoop() {
	defer c.close()

	c.socket.SetReadLimit(maxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		// Clients are read-only; any inbound frame besides control traffic
		// is discarded, but read errors end the connection.
		if _, _, err := c.socket.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.socket.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.socket.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func hostOf(value string) string {
	value = strings.TrimPrefix(strings.TrimPrefix(value, "https://"), "http://")
	if idx := strings.IndexAny(value, "/:"); idx >= 0 {
		value = value[:idx]
	}
	return strings.ToLower(value)
}
