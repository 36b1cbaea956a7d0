package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/sentinel-infra/gridtwin/pkg/cascade"
	"github.com/sentinel-infra/gridtwin/pkg/logger"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
	wsSendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The stream is broadcast-only operational telemetry.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient is one connected subscriber.
type wsClient struct {
	conn *websocket.Conn
	send chan *cascade.Result
	done chan struct{}
}

// Hub fans completed simulation results out to WebSocket subscribers.
// Slow clients are disconnected rather than allowed to stall the broadcast.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	log     logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		clients: make(map[*wsClient]struct{}),
		log:     log,
	}
}

// Serve upgrades the request and registers the connection until it closes.
func (h *Hub) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warnf("websocket upgrade failed: %v", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan *cascade.Result, wsSendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.log.Debugf("websocket client connected (%d active)", count)

	go h.writeLoop(client)
	h.readLoop(client)
}

// Forward consumes engine results and broadcasts them until ctx ends.
func (h *Hub) Forward(ctx context.Context, results <-chan *cascade.Result) {
	for {
		select {
		case <-ctx.Done():
			return
		case result, ok := <-results:
			if !ok {
				return
			}
			h.Broadcast(result)
		}
	}
}

// Broadcast queues the result to every client, dropping clients whose
// buffers are full.
func (h *Hub) Broadcast(result *cascade.Result) {
	h.mu.RLock()
	stalled := make([]*wsClient, 0)
	for client := range h.clients {
		select {
		case client.send <- result:
		default:
			stalled = append(stalled, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stalled {
		h.log.Warn("dropping stalled websocket client")
		h.remove(client)
	}
}

// ClientCount reports active subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) remove(client *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.done)
	}
	h.mu.Unlock()
	client.conn.Close()
}

func (h *Hub) writeLoop(client *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-client.done:
			return
		case result := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteJSON(result); err != nil {
				h.remove(client)
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(client)
				return
			}
		}
	}
}

// readLoop drains incoming frames so close and pong handling work; the
// stream carries no client commands.
func (h *Hub) readLoop(client *wsClient) {
	defer h.remove(client)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}
