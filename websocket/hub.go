package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/anjiri1684/career_mentor/models"
	"github.com/anjiri1684/career_mentor/utils"
	"github.com/gofiber/contrib/websocket"
)

// writeWait bounds a single write so a stalled peer cannot hold up
// delivery to everyone else.
const writeWait = 10 * time.Second

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	SetWriteDeadline(t time.Time) error
	WriteJSON(v any) error
	Close() error
}

type Client struct {
	Email string
	Conn  Conn
}

type broadcast struct {
	recipients []string
	change     models.SessionStatusChange
}

// Hub fans session status changes out to the connections of the
// participants of that session. A participant may hold several connections.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcast
	done       chan struct{}
	stopOnce   sync.Once

	mu      sync.RWMutex
	clients map[string]map[Conn]struct{}

	log *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcast, 64),
		done:       make(chan struct{}),
		clients:    make(map[string]map[Conn]struct{}),
		log:        log,
	}
}

// Run processes registrations and broadcasts until ctx is cancelled, then
// closes every open connection.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.mu.Lock()
			conns, ok := h.clients[client.Email]
			if !ok {
				conns = make(map[Conn]struct{})
				h.clients[client.Email] = conns
			}
			conns[client.Conn] = struct{}{}
			h.mu.Unlock()
			h.log.Debug("client registered", slog.String("email", client.Email))
		case client := <-h.unregister:
			h.remove(client.Email, client.Conn)
			h.log.Debug("client unregistered", slog.String("email", client.Email))
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg broadcast) {
	for _, email := range msg.recipients {
		h.mu.RLock()
		conns := make([]Conn, 0, len(h.clients[email]))
		for conn := range h.clients[email] {
			conns = append(conns, conn)
		}
		h.mu.RUnlock()

		for _, conn := range conns {
			if err := write(conn, msg.change); err != nil {
				h.log.Warn("dropping websocket client",
					slog.String("email", email), utils.ErrAttr(err))
				_ = conn.Close()
				h.remove(email, conn)
			}
		}
	}
}

func write(conn Conn, v any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}

func (h *Hub) remove(email string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.clients[email]
	if !ok {
		return
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.clients, email)
	}
}

func (h *Hub) shutdown() {
	h.stopOnce.Do(func() { close(h.done) })
	h.mu.Lock()
	defer h.mu.Unlock()
	for email, conns := range h.clients {
		for conn := range conns {
			_ = conn.Close()
		}
		delete(h.clients, email)
	}
}

// Register adds a connection. It reports false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish queues a status change for the given recipients. It never blocks
// the caller; changes are dropped when the queue is full or the hub stopped.
func (h *Hub) Publish(recipients []string, change models.SessionStatusChange) {
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.broadcast <- broadcast{recipients: recipients, change: change}:
	default:
		h.log.Warn("realtime queue full, dropping status change",
			slog.String("session_id", change.SessionID.String()))
	}
}

// Connected returns how many connections are open for email.
func (h *Hub) Connected(email string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[email])
}

// Serve keeps an authenticated connection registered until the peer goes
// away. Inbound frames are read and discarded.
func (h *Hub) Serve(c *websocket.Conn, email string) {
	client := &Client{Email: email, Conn: c}
	if !h.Register(client) {
		_ = c.Close()
		return
	}
	defer func() {
		h.Unregister(client)
		_ = c.Close()
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.log.Debug("websocket closed", slog.String("email", email))
			} else {
				h.log.Warn("websocket read error", slog.String("email", email), utils.ErrAttr(err))
			}
			return
		}
	}
}
