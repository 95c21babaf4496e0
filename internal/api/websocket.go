// internal/api/websocket.go
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Corphon/EbookGen/internal/services"
	"github.com/Corphon/EbookGen/internal/utils"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = 54 * time.Second
	sendBuffer  = 64
	maxReadSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the UI is served from the same process; CORS already gates the API
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient is one open change feed
type wsClient struct {
	conn      *websocket.Conn
	send      chan []byte // closed only by the hub
	lastPing  atomic.Int64
	createdAt time.Time
	remote    string
}

func (client *wsClient) touch() {
	client.lastPing.Store(time.Now().UnixNano())
}

func (client *wsClient) expired(timeout time.Duration) bool {
	return time.Since(time.Unix(0, client.lastPing.Load())) > timeout
}

// ChangeHub fans state change events out to every connected UI. It owns the
// clients' send channels; only its run loop closes them.
type ChangeHub struct {
	clients    map[*wsClient]struct{}
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *wsClient
	stop       chan struct{}
	stopped    chan struct{}
	stopOnce   sync.Once

	mu          sync.RWMutex
	pingTimeout time.Duration
	delivered   atomic.Int64
	dropped     atomic.Int64
	logger      *utils.Logger
}

var _ services.ChangeNotifier = (*ChangeHub)(nil)

// NewChangeHub starts the hub loop
func NewChangeHub() *ChangeHub {
	h := &ChangeHub{
		clients:     make(map[*wsClient]struct{}),
		broadcast:   make(chan []byte, 256),
		register:    make(chan *wsClient, 16),
		unregister:  make(chan *wsClient, 16),
		stop:        make(chan struct{}),
		stopped:     make(chan struct{}),
		pingTimeout: 2 * pongWait,
		logger:      utils.GetLogger(),
	}
	go h.run()
	return h
}

func (h *ChangeHub) run() {
	defer close(h.stopped)
	cleanup := time.NewTicker(30 * time.Second)
	defer cleanup.Stop()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			client.touch()
			h.deliver(client, h.encode("connected", "", nil))
			h.logger.Debug("websocket client connected", map[string]interface{}{"remote": client.remote})

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*wsClient, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()
			for _, client := range clients {
				h.deliver(client, message)
			}

		case <-cleanup.C:
			h.mu.RLock()
			var expired []*wsClient
			for client := range h.clients {
				if client.expired(h.pingTimeout) {
					expired = append(expired, client)
				}
			}
			h.mu.RUnlock()
			for _, client := range expired {
				h.remove(client)
			}

		case <-h.stop:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return
		}
	}
}

// deliver never blocks; a client whose queue is full is dropped
func (h *ChangeHub) deliver(client *wsClient, message []byte) {
	if message == nil {
		return
	}
	select {
	case client.send <- message:
		h.delivered.Add(1)
	default:
		h.dropped.Add(1)
		h.logger.Warn("websocket client queue full, disconnecting", map[string]interface{}{"remote": client.remote})
		h.remove(client)
	}
}

func (h *ChangeHub) remove(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
}

func (h *ChangeHub) encode(kind, topic string, data map[string]interface{}) []byte {
	msg := map[string]interface{}{
		"type":      kind,
		"timestamp": time.Now().Format(time.RFC3339Nano),
	}
	if topic != "" {
		msg["topic"] = topic
	}
	if data != nil {
		msg["data"] = data
	}
	encoded, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode websocket message", map[string]interface{}{"error": err})
		return nil
	}
	return encoded
}

// NotifyChange broadcasts a state_changed event. It never blocks the caller.
func (h *ChangeHub) NotifyChange(topic string, data map[string]interface{}) {
	message := h.encode("state_changed", topic, data)
	if message == nil {
		return
	}
	select {
	case <-h.stop:
	case h.broadcast <- message:
	default:
		h.dropped.Add(1)
	}
}

// Stop closes every feed and ends the loop
func (h *ChangeHub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.stopped
}

// Status is reported by the metrics endpoint
func (h *ChangeHub) Status() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return map[string]interface{}{
		"clients":   len(h.clients),
		"delivered": h.delivered.Load(),
		"dropped":   h.dropped.Load(),
	}
}

// ServeWS upgrades the request into a change feed
func (h *ChangeHub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", map[string]interface{}{"error": err})
		return
	}

	client := &wsClient{
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		createdAt: time.Now(),
		remote:    c.ClientIP(),
	}
	client.touch()

	select {
	case h.register <- client:
	case <-h.stop:
		conn.Close()
		return
	}

	go h.writePump(client)
	h.readPump(client)
}

// readPump only keeps the connection alive; the feed is one-way
func (h *ChangeHub) readPump(client *wsClient) {
	defer func() {
		select {
		case h.unregister <- client:
		case <-h.stop:
		}
	}()

	client.conn.SetReadLimit(maxReadSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.touch()
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read ended", map[string]interface{}{"error": err})
			}
			return
		}
		client.touch()
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

func (h *ChangeHub) writePump(client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
