package stubserver

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait     = 10 * time.Second
	clientSendBuf = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Hub broadcasts triggered alerts to connected stream clients.
type Hub struct {
	mu      sync.Mutex
	clients map[*hubClient]bool
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*hubClient]bool)}
}

// BroadcastAlert fans an alert out to every connected client. Slow
// clients are dropped rather than blocking the broadcast.
func (h *Hub) BroadcastAlert(alert any) {
	message, err := json.Marshal(map[string]any{"type": "alert", "payload": alert})
	if err != nil {
		log.Printf("Error marshalling alert for broadcast: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			log.Printf("Stream client send buffer full, removing")
			close(client.send)
			delete(h.clients, client)
		}
	}
}

// ServeStream upgrades the request and registers the client.
func (h *Hub) ServeStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Stream upgrade failed: %v", err)
		return
	}

	client := &hubClient{conn: conn, send: make(chan []byte, clientSendBuf)}

	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	go client.writePump()
	go client.readPump(h)
}

func (c *hubClient) writePump() {
	defer func() {
		if err := c.conn.Close(); err != nil {
			log.Printf("Failed to close stream connection: %v", err)
		}
	}()

	for message := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// readPump drains the connection so close frames are processed, and
// unregisters the client when it drops.
func (c *hubClient) readPump(h *Hub) {
	defer func() {
		h.mu.Lock()
		if _, ok := h.clients[c]; ok {
			delete(h.clients, c)
			close(c.send)
		}
		h.mu.Unlock()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
