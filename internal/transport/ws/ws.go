package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/alanyang/projects-sync/internal/domain/event"
	portnotifier "github.com/alanyang/projects-sync/internal/port/notifier"
)

var _ portnotifier.RepositoryNotifier = (*Hub)(nil)

const writeTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// client receives the events of one repository, or every event when the
// filter is empty. writeMu serializes writes; gorilla allows one writer.
type client struct {
	owner      string
	repository string
	writeMu    sync.Mutex
}

func (c *client) wants(e event.Event) bool {
	if c.owner != "" && c.owner != e.Owner {
		return false
	}
	return c.repository == "" || c.repository == e.Repository
}

// Hub streams sync events to websocket clients. Clients may narrow the
// stream with ?owner=&repository= query parameters.
type Hub struct {
	clients map[*websocket.Conn]*client
	mu      sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]*client),
	}
}

func (h *Hub) Register(rg *gin.RouterGroup) {
	rg.GET("", h.handleWS)
}

func (h *Hub) handleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = &client{owner: c.Query("owner"), repository: c.Query("repository")}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Notify broadcasts e. Write failures are logged per client, never returned.
func (h *Hub) Notify(_ context.Context, e event.Event) error {
	h.Broadcast(e)
	return nil
}

func (h *Hub) Broadcast(e event.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		slog.Error("websocket broadcast marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn, cl := range h.clients {
		if !cl.wants(e) {
			continue
		}
		cl.writeMu.Lock()
		conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
		err := conn.WriteMessage(websocket.TextMessage, data)
		cl.writeMu.Unlock()
		if err != nil {
			slog.Error("websocket write failed", "error", err)
		}
	}
}
