package dashboard

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"polybin/internal/models"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientSendSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSClient is one connected dashboard
type WSClient struct {
	ID   uuid.UUID
	Conn *websocket.Conn

	Send chan []byte
	Done chan struct{}
}

// Hub fans events out to every connected dashboard. A client that cannot
// keep up loses events instead of slowing the broadcaster.
type Hub struct {
	clients map[uuid.UUID]*WSClient
	mu      sync.RWMutex

	// snapshot is sent to a client right after it connects
	snapshot func() *models.Event

	dropped atomic.Int64
}

// NewHub creates a hub; snapshot may be nil
func NewHub(snapshot func() *models.Event) *Hub {
	return &Hub{
		clients:  make(map[uuid.UUID]*WSClient),
		snapshot: snapshot,
	}
}

// Broadcast sends an event to all clients without blocking
func (h *Hub) Broadcast(event *models.Event) {
	message, err := json.Marshal(event)
	if err != nil {
		log.Printf("Dashboard: failed to marshal %s event: %v", event.Event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Send <- message:
		default:
			h.dropped.Add(1)
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns the number of events dropped for slow clients
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Serve upgrades the request and runs the client until it disconnects
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Dashboard: websocket upgrade failed: %v", err)
		return
	}

	client := &WSClient{
		ID:   uuid.New(),
		Conn: conn,
		Send: make(chan []byte, clientSendSize),
		Done: make(chan struct{}),
	}

	if h.snapshot != nil {
		if event := h.snapshot(); event != nil {
			if message, err := json.Marshal(event); err == nil {
				client.Send <- message
			}
		}
	}

	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
	log.Printf("Dashboard: client %s connected", client.ID)

	go h.writePump(client)
	h.readPump(client)
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		client.Conn.Close()
		delete(h.clients, id)
	}
}

func (h *Hub) readPump(client *WSClient) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, client.ID)
		h.mu.Unlock()
		close(client.Done)
		client.Conn.Close()
		log.Printf("Dashboard: client %s disconnected", client.ID)
	}()

	client.Conn.SetReadLimit(512)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// dashboards only listen; inbound messages are discarded
	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(client *WSClient) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				client.Conn.Close()
				return
			}
		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				client.Conn.Close()
				return
			}
		case <-client.Done:
			return
		}
	}
}
