package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mykaresto/engine/pkg/outbox"
)

// Hub fans lifecycle notifications out to connected dashboard and
// confirmation-page clients. Delivery downstream of the outbox is
// best-effort; clients re-fetch authoritative state by entity id.
const writeWait = 5 * time.Second

type Hub struct {
	log        *slog.Logger
	broadcast  chan outbox.Notification
	register   chan subscription
	unregister chan subscription
	done       chan struct{} // closed when Run exits

	mu      sync.Mutex
	clients map[*websocket.Conn]string // conn -> feed filter
}

type subscription struct {
	conn *websocket.Conn
	feed string // "orders", "reservations" or "all"
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:        log,
		broadcast:  make(chan outbox.Notification, 64),
		register:   make(chan subscription),
		unregister: make(chan subscription),
		done:       make(chan struct{}),
		clients:    make(map[*websocket.Conn]string),
	}
}

// Publish hands a notification to the hub without ever blocking the
// consumer; a slow hub drops rather than stalls.
func (h *Hub) Publish(n outbox.Notification) {
	select {
	case h.broadcast <- n:
	default:
		h.log.Warn("hub broadcast buffer full, dropping notification", "entity_id", n.EntityID)
	}
}

func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return nil
		case sub := <-h.register:
			h.mu.Lock()
			h.clients[sub.conn] = sub.feed
			h.mu.Unlock()
		case sub := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[sub.conn]; ok {
				delete(h.clients, sub.conn)
				sub.conn.Close()
			}
			h.mu.Unlock()
		case n := <-h.broadcast:
			h.mu.Lock()
			for conn, feed := range h.clients {
				if !feedMatches(feed, n.EntityType) {
					continue
				}
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(n); err != nil {
					h.log.Debug("ws write failed, dropping client", "err", err)
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]string)
}

func feedMatches(feed, entityType string) bool {
	switch feed {
	case "orders":
		return entityType == outbox.EntityOrder
	case "reservations":
		return entityType == outbox.EntityReservation
	default:
		return true
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWebSocket upgrades GET /ws?feed=orders|reservations|all.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	feed := r.URL.Query().Get("feed")
	switch feed {
	case "orders", "reservations":
	default:
		feed = "all"
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("ws upgrade failed", "err", err)
		return
	}
	select {
	case h.register <- subscription{conn: conn, feed: feed}:
	case <-h.done:
		// Hub already stopped; turn the late subscriber away.
		conn.Close()
		return
	}

	// Reads are discarded; the socket is push-only. The read loop
	// exists to notice the client going away.
	go func() {
		defer func() {
			select {
			case h.unregister <- subscription{conn: conn, feed: feed}:
			case <-h.done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
