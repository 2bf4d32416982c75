// Package realtime pushes notification events to dashboard clients over
// WebSockets. Each client listens on exactly one role channel.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/notify"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is one WebSocket connection. Send is buffered; when it is full new
// events for this client are dropped.
type Client struct {
	ID      string
	Channel notify.Channel
	Send    chan []byte
}

// Hub tracks connected clients per channel. Safe for concurrent use.
type Hub struct {
	mu         sync.RWMutex
	clients    map[notify.Channel]map[*Client]struct{}
	bufferSize int
	upgrader   websocket.Upgrader
	log        *zap.Logger
}

func NewHub(bufferSize int, allowedOrigins []string, log *zap.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Hub{
		clients:    make(map[notify.Channel]map[*Client]struct{}),
		bufferSize: bufferSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log.Named("realtime"),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func (h *Hub) NewClient(channel notify.Channel) *Client {
	return &Client{
		ID:      uuid.NewString(),
		Channel: channel,
		Send:    make(chan []byte, h.bufferSize),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c.Channel] == nil {
		h.clients[c.Channel] = make(map[*Client]struct{})
	}
	h.clients[c.Channel][c] = struct{}{}
}

// Unregister removes the client and closes its Send channel. Calling it twice is a no-op.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subscribers, ok := h.clients[c.Channel]
	if !ok {
		return
	}
	if _, ok := subscribers[c]; !ok {
		return
	}

	delete(subscribers, c)
	if len(subscribers) == 0 {
		delete(h.clients, c.Channel)
	}
	close(c.Send)
}

// Publish implements notify.Publisher. It never blocks on a slow client.
func (h *Hub) Publish(_ context.Context, ev notify.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[ev.Channel] {
		select {
		case c.Send <- data:
		default:
			h.log.Warn("client buffer full, dropping event",
				zap.String("client_id", c.ID),
				zap.String("event", ev.Name),
			)
		}
	}
	return nil
}

func (h *Hub) ClientCount(channel notify.Channel) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[channel])
}

// Serve upgrades the request and streams channel events until the client
// disconnects. welcome, if non-nil, is the first frame the client receives.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, channel notify.Channel, welcome *notify.Event) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}

	client := h.NewClient(channel)
	if welcome != nil {
		if data, err := json.Marshal(welcome); err == nil {
			client.Send <- data
		}
	}
	h.Register(client)

	h.log.Info("client connected",
		zap.String("client_id", client.ID),
		zap.String("channel", string(channel)),
	)

	go h.writePump(client, ws)
	go h.readPump(client, ws)

	return nil
}

// readPump only exists to process control frames and detect disconnects;
// dashboards never send application messages.
func (h *Hub) readPump(c *Client, ws *websocket.Conn) {
	defer func() {
		h.Unregister(c)
		ws.Close()
		h.log.Info("client disconnected", zap.String("client_id", c.ID))
	}()

	ws.SetReadLimit(512)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *Client, ws *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
