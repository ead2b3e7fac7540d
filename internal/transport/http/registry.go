package http

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"trivia-game-service/internal/domain"
)

// Role tags a connection as the facilitator console or a player screen.
type Role string

const (
	RoleFacilitator Role = "facilitator"
	RolePlayer      Role = "player"
)

const (
	sendBuffer   = 32
	writeTimeout = 5 * time.Second
)

// Conn wraps a websocket with a buffered outbox and a single writer
// goroutine, so concurrent deliveries never race on the socket.
type Conn struct {
	id   string
	ws   *websocket.Conn
	send chan domain.Event
	done chan struct{}
	once sync.Once
}

func newConn(ws *websocket.Conn) *Conn {
	c := &Conn{
		id:   uuid.NewString(),
		ws:   ws,
		send: make(chan domain.Event, sendBuffer),
		done: make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// ID returns the connection's unique identifier.
func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) writeLoop() {
	for {
		select {
		case ev := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteJSON(ev); err != nil {
				log.Printf("ws write to %s: %v", c.id, err)
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// Send enqueues an event for this connection. Best-effort: a full outbox
// means the client cannot keep up, and the connection is dropped rather
// than delivered out of order or blocking the caller.
func (c *Conn) Send(ev domain.Event) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- ev:
	default:
		log.Printf("ws outbox full, dropping connection %s", c.id)
		c.close()
	}
}

func (c *Conn) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

type connMeta struct {
	sessionID int64
	teamID    int64
	role      Role
}

// Hub is the connection registry: a per-session connection set and a
// per-connection metadata index, kept consistent under one lock. It
// implements app.Broadcaster.
type Hub struct {
	mu       sync.RWMutex
	sessions map[int64]map[string]*Conn
	meta     map[string]connMeta
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[int64]map[string]*Conn),
		meta:     make(map[string]connMeta),
	}
}

// Register wraps an upgraded websocket and tracks it under the session.
func (h *Hub) Register(ws *websocket.Conn, sessionID int64, role Role, teamID int64) *Conn {
	conn := newConn(ws)

	h.mu.Lock()
	if h.sessions[sessionID] == nil {
		h.sessions[sessionID] = make(map[string]*Conn)
	}
	h.sessions[sessionID][conn.id] = conn
	h.meta[conn.id] = connMeta{sessionID: sessionID, teamID: teamID, role: role}
	h.mu.Unlock()

	return conn
}

// Unregister drops a connection from both indexes and closes it. Removing
// the last connection of a session removes the session entry; that is pure
// housekeeping, not a session-lifecycle event.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	meta, ok := h.meta[connID]
	var conn *Conn
	if ok {
		delete(h.meta, connID)
		if conns := h.sessions[meta.sessionID]; conns != nil {
			conn = conns[connID]
			delete(conns, connID)
			if len(conns) == 0 {
				delete(h.sessions, meta.sessionID)
			}
		}
	}
	h.mu.Unlock()

	if conn != nil {
		conn.close()
	}
}

// Broadcast delivers an event to every connection in a session. Events are
// enqueued in call order, so each connection observes broadcasts in the
// order they were issued; the actual writes proceed concurrently on the
// per-connection writers, so one slow client never delays another.
func (h *Hub) Broadcast(sessionID int64, ev domain.Event) {
	for _, conn := range h.collect(sessionID, func(connMeta) bool { return true }) {
		conn.Send(ev)
	}
}

// SendTo delivers an event to a single connection, if it is still registered.
func (h *Hub) SendTo(connID string, ev domain.Event) {
	h.mu.RLock()
	meta, ok := h.meta[connID]
	var conn *Conn
	if ok {
		conn = h.sessions[meta.sessionID][connID]
	}
	h.mu.RUnlock()

	if conn != nil {
		conn.Send(ev)
	}
}

// SendToTeam delivers an event to every connection of one team.
func (h *Hub) SendToTeam(sessionID, teamID int64, ev domain.Event) {
	for _, conn := range h.collect(sessionID, func(m connMeta) bool { return m.teamID == teamID }) {
		conn.Send(ev)
	}
}

// SendToFacilitators delivers an event to the session's facilitator connections.
func (h *Hub) SendToFacilitators(sessionID int64, ev domain.Event) {
	for _, conn := range h.collect(sessionID, func(m connMeta) bool { return m.role == RoleFacilitator }) {
		conn.Send(ev)
	}
}

// Count reports how many connections a session has.
func (h *Hub) Count(sessionID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

func (h *Hub) collect(sessionID int64, match func(connMeta) bool) []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var conns []*Conn
	for id, conn := range h.sessions[sessionID] {
		if match(h.meta[id]) {
			conns = append(conns, conn)
		}
	}
	return conns
}
