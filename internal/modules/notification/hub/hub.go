// Package hub keeps track of live notification connections per user.
//
// A Hub is created once by the server and handed to the notification service
// and the websocket handler. Entries are added when a socket connects and
// removed when it goes away; nothing else reaches into the maps.
package hub

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrClosed = errors.New("hub is closed")

const DefaultBuffer = 32

// Subscription is one live connection of a user.
type Subscription struct {
	ID     string
	UserID uuid.UUID

	send chan []byte
}

// Messages yields payloads pushed to this connection. The channel is closed
// when the subscription is unregistered.
func (s *Subscription) Messages() <-chan []byte {
	return s.send
}

type Hub struct {
	mu     sync.RWMutex
	users  map[uuid.UUID]map[string]*Subscription
	subs   map[string]*Subscription
	buffer int
	closed bool
}

func New(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		users:  make(map[uuid.UUID]map[string]*Subscription),
		subs:   make(map[string]*Subscription),
		buffer: buffer,
	}
}

// Register adds a connection for userID.
func (h *Hub) Register(userID uuid.UUID) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}

	sub := &Subscription{
		ID:     uuid.NewString(),
		UserID: userID,
		send:   make(chan []byte, h.buffer),
	}

	if h.users[userID] == nil {
		h.users[userID] = make(map[string]*Subscription)
	}
	h.users[userID][sub.ID] = sub
	h.subs[sub.ID] = sub

	return sub, nil
}

// Unregister removes the connection. Calling it twice is harmless.
func (h *Hub) Unregister(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(sub)
}

func (h *Hub) removeLocked(sub *Subscription) {
	if _, ok := h.subs[sub.ID]; !ok {
		return
	}
	delete(h.subs, sub.ID)

	if conns := h.users[sub.UserID]; conns != nil {
		delete(conns, sub.ID)
		if len(conns) == 0 {
			delete(h.users, sub.UserID)
		}
	}
	close(sub.send)
}

func (h *Hub) IsOnline(userID uuid.UUID) bool {
	return h.ConnectionCount(userID) > 0
}

func (h *Hub) ConnectionCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

func (h *Hub) OnlineUsers() []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]uuid.UUID, 0, len(h.users))
	for id := range h.users {
		out = append(out, id)
	}
	return out
}

// Push hands payload to every connection of userID without blocking. A
// connection whose buffer is full misses this payload. It returns how many
// connections accepted it.
func (h *Hub) Push(userID uuid.UUID, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, sub := range h.users[userID] {
		select {
		case sub.send <- payload:
			delivered++
		default:
		}
	}
	return delivered
}

// Close drops every connection and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for _, sub := range h.subs {
		h.removeLocked(sub)
	}
}
