package ws

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The gateway authenticates via bearer token, not origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub tracks live websocket subscribers per user id and pushes milestone
// notifications to them as they happen.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{conns: map[string]map[*websocket.Conn]bool{}}
}

// Broadcast sends a payload to every live connection of one user. Dead
// connections are dropped on write failure.
func (h *Hub) Broadcast(userID string, payload []byte) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.conns[userID]))
	for c := range h.conns[userID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.remove(userID, c)
			_ = c.Close()
		}
	}
}

func (h *Hub) add(userID string, c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == nil {
		h.conns[userID] = map[*websocket.Conn]bool{}
	}
	h.conns[userID][c] = true
}

func (h *Hub) remove(userID string, c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns[userID], c)
	if len(h.conns[userID]) == 0 {
		delete(h.conns, userID)
	}
}

// Subscribe upgrades the request and streams the caller's notifications
// until the peer disconnects. The auth middleware has already resolved
// user_id (bearer header or ?token= for websocket clients).
func (h *Hub) Subscribe(c *gin.Context) {
	userIDValue, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return
	}
	userID := userIDValue.(string)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ websocket upgrade failed for user %s: %v", userID, err)
		return
	}

	h.add(userID, conn)
	log.Printf("🔌 user %s subscribed to live notifications", userID)

	// Reads are discarded; the socket exists for server pushes. The read
	// loop still runs so close frames are processed.
	go func() {
		defer func() {
			h.remove(userID, conn)
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
