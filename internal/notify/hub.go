// Package notify fans engine events out to UI collaborators: browsers
// through the in-process Hub and remote displays through NATS.
package notify

import (
	"encoding/json"
	"sync"

	"github.com/jsdx761/nexus/internal/announce"
	"github.com/jsdx761/nexus/internal/monitoring"
)

// clientBuffer is the number of encoded events a client may lag behind
// before events are dropped for it.
const clientBuffer = 256

// Client is one Hub subscriber.
type Client struct {
	id   uint64
	Send chan []byte
}

// Hub broadcasts encoded engine events to its clients. Publish never
// blocks: a client whose buffer is full misses the event.
type Hub struct {
	mu      sync.Mutex
	clients map[uint64]*Client
	nextID  uint64
	last    []byte
	dropped uint64
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[uint64]*Client)}
}

// Register adds a client. The latest threat list, if any, is queued to it
// straight away so a new display does not start empty.
func (h *Hub) Register() *Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	c := &Client{id: h.nextID, Send: make(chan []byte, clientBuffer)}
	if h.last != nil {
		c.Send <- h.last
	}
	h.clients[c.id] = c
	return c
}

// Unregister removes a client and closes its channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.Send)
	}
}

// Len returns the number of registered clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns how many events were dropped for slow clients.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Publish implements announce.Listener.
func (h *Hub) Publish(ev announce.Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		monitoring.Logf("notify: encoding %s event: %v", ev.Kind, err)
		return
	}
	h.Broadcast(msg, ev.Kind == announce.EventThreats)
}

// Broadcast queues msg to every client. When latest is set msg also
// becomes the message replayed to new clients.
func (h *Hub) Broadcast(msg []byte, latest bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if latest {
		h.last = msg
	}
	for _, c := range h.clients {
		select {
		case c.Send <- msg:
		default:
			h.dropped++
		}
	}
}

// Close unregisters every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.Send)
	}
}
