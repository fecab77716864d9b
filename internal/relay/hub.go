// Package relay fans session control messages out to the WebSocket
// connections of one room: one teacher, zero or more students. Delivery is
// best-effort, at most once per currently connected recipient, in arrival
// order.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

type Role string

const (
	RoleTeacher = Role("teacher")
	RoleStudent = Role("student")
)

// Client is a single WebSocket connection in the hub.
type Client struct {
	ID          string
	Role        Role
	AnonymousID string
	Conn        *websocket.Conn
	Send        chan []byte
}

// WritePump reads from the Send channel and writes to the WebSocket connection.
func (c *Client) WritePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.Send:
			if !ok {
				return
			}
			if err := c.Conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}
}

// Hub holds the live connections of one session.
type Hub struct {
	mu       sync.RWMutex
	teacher  *Client
	students map[string]*Client
}

func NewHub() *Hub {
	return &Hub{
		students: make(map[string]*Client),
	}
}

// Register adds a client. A second teacher connection replaces the first,
// which is closed.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	var replaced *Client
	if c.Role == RoleTeacher {
		replaced = h.teacher
		h.teacher = c
	} else {
		h.students[c.ID] = c
	}
	h.mu.Unlock()

	if replaced != nil {
		close(replaced.Send)
	}
}

// Unregister removes a client and closes its Send channel. Returns false when
// the client was not registered.
func (h *Hub) Unregister(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.Role == RoleTeacher {
		if h.teacher != c {
			return false
		}
		h.teacher = nil
		close(c.Send)
		return true
	}
	registered, ok := h.students[c.ID]
	if !ok || registered != c {
		return false
	}
	delete(h.students, c.ID)
	close(c.Send)
	return true
}

// BroadcastStudents sends a message to every currently connected student of
// this room. Non-blocking: a student with a full send buffer misses the
// message.
func (h *Hub) BroadcastStudents(msg Message) {
	data, err := encode(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.students {
		select {
		case c.Send <- data:
		default:
			// drop for slow consumers
		}
	}
}

// SendStudent delivers a message to one student. A missing recipient is a
// no-op.
func (h *Hub) SendStudent(id string, msg Message) bool {
	data, err := encode(msg)
	if err != nil {
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.students[id]
	if !ok {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// SendTeacher delivers a message to the teacher connection, if any.
func (h *Hub) SendTeacher(msg Message) bool {
	data, err := encode(msg)
	if err != nil {
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.teacher == nil {
		return false
	}
	select {
	case h.teacher.Send <- data:
		return true
	default:
		return false
	}
}

// StudentCount returns the number of connected students.
func (h *Hub) StudentCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.students)
}

// Shutdown notifies everyone that the session ended and closes all
// connections. Used when the teacher ends or the session expires.
func (h *Hub) Shutdown(msg Message) {
	data, err := encode(msg)
	if err != nil {
		data = nil
	}

	h.mu.Lock()
	teacher := h.teacher
	students := h.students
	h.teacher = nil
	h.students = make(map[string]*Client)
	h.mu.Unlock()

	closeClient := func(c *Client) {
		if data != nil {
			select {
			case c.Send <- data:
			default:
			}
		}
		close(c.Send)
	}
	if teacher != nil {
		closeClient(teacher)
	}
	for _, c := range students {
		closeClient(c)
	}
}

func encode(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("relay marshal failed", "event", msg.Event, "err", err)
		return nil, err
	}
	return data, nil
}
