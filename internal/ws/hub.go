package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/dinepos/api/internal/events"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// isSnapshot reports whether the event carries a full collection state that
// late joiners should be replayed.
func (e Event) isSnapshot() bool {
	return strings.HasSuffix(e.Type, ".snapshot")
}

// roomEvent is an internal struct for routing events to one restaurant
type roomEvent struct {
	RestaurantID string
	Event        Event
}

// room holds the clients of one restaurant, the feed serving them and the
// last snapshot of each kind.
type room struct {
	clients map[*Client]bool
	last    map[string][]byte
	stop    func()
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Rooms by restaurant ID
	rooms map[string]*room

	// Inbound messages from clients (register/unregister)
	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *roomEvent

	feed Feed
	done chan struct{}

	// Mutex for thread-safe room access
	mu sync.RWMutex
}

// NewHub creates a new Hub. A nil feed means rooms only receive what is
// broadcast or published to them.
func NewHub(feed Feed) *Hub {
	return &Hub{
		rooms:      make(map[string]*room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomEvent, 256),
		feed:       feed,
		done:       make(chan struct{}),
	}
}

// SetFeed replaces the feed opened for new rooms. It must be called before
// Run; the order service publishes into the hub, so the hub usually exists
// before the services its feed watches.
func (h *Hub) SetFeed(feed Feed) {
	h.feed = feed
}

// Run starts the hub's main loop and returns when ctx is cancelled.
// This should be called as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			rm := h.rooms[client.restaurantID]
			if rm == nil {
				rm = &room{clients: make(map[*Client]bool), last: make(map[string][]byte)}
				h.rooms[client.restaurantID] = rm
				rm.stop = h.openFeed(ctx, client.restaurantID)
			}
			rm.clients[client] = true
			replay(rm, client)
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if rm, ok := h.rooms[client.restaurantID]; ok {
				if _, exists := rm.clients[client]; exists {
					delete(rm.clients, client)
					close(client.send)
					h.closeIfEmpty(client.restaurantID, rm)
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			rm := h.rooms[event.RestaurantID]
			if rm == nil {
				h.mu.Unlock()
				continue
			}

			// Marshal event to JSON once
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.mu.Unlock()
				continue
			}
			if event.Event.isSnapshot() {
				rm.last[event.Event.Type] = message
			}

			for client := range rm.clients {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and unregister
					close(client.send)
					delete(rm.clients, client)
				}
			}
			h.closeIfEmpty(event.RestaurantID, rm)
			h.mu.Unlock()
		}
	}
}

// Broadcast sends an event to every client of one restaurant. It is a
// no-op once the hub has stopped.
func (h *Hub) Broadcast(restaurantID string, event Event) {
	select {
	case h.broadcast <- &roomEvent{RestaurantID: restaurantID, Event: event}:
	case <-h.done:
	}
}

// Publish forwards an order lifecycle event to the restaurant's clients.
// The payload is the event's own payload, normally the order.
func (h *Hub) Publish(ctx context.Context, e events.Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return err
	}
	h.Broadcast(e.RestaurantID, Event{Type: e.Type, Payload: payload})
	return nil
}

func (h *Hub) openFeed(ctx context.Context, restaurantID string) func() {
	if h.feed == nil {
		return nil
	}
	stop, err := h.feed(ctx, restaurantID, func(e Event) { h.Broadcast(restaurantID, e) })
	if err != nil {
		slog.Error("ws: open feed", "restaurant_id", restaurantID, "error", err)
		return nil
	}
	return stop
}

// closeIfEmpty must be called with mu held.
func (h *Hub) closeIfEmpty(restaurantID string, rm *room) {
	if len(rm.clients) > 0 {
		return
	}
	if rm.stop != nil {
		rm.stop()
	}
	delete(h.rooms, restaurantID)
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, rm := range h.rooms {
		if rm.stop != nil {
			rm.stop()
		}
		for client := range rm.clients {
			close(client.send)
		}
		delete(h.rooms, id)
	}
	close(h.done)
}

// replay hands a joining client the cached snapshots in type order.
func replay(rm *room, client *Client) {
	types := make([]string, 0, len(rm.last))
	for t := range rm.last {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		select {
		case client.send <- rm.last[t]:
		default:
		}
	}
}
