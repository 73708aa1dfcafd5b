package websocket

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/kataclub/kataclub_server/internal/store"
)

type Hub struct {
	clients    map[*Client]bool
	byEntity   map[string][]*Client // entity -> subscribers
	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		byEntity:   make(map[string][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastChange(message)
		}
	}
}

// Forward drains a store's change channel into the hub until the channel
// closes. Run it in its own goroutine per followed entity.
func (h *Hub) Forward(entity string, changes <-chan store.Change) {
	for change := range changes {
		h.broadcast <- &BroadcastMessage{Entity: entity, Change: change}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	log.Info().
		Str("userId", client.user.ID).
		Int("totalClients", len(h.clients)).
		Msg("[WS] Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	delete(h.clients, client)
	close(client.send)

	for entity := range client.subscriptions {
		h.removeFromEntity(client, entity)
	}

	log.Info().
		Str("userId", client.user.ID).
		Int("totalClients", len(h.clients)).
		Msg("[WS] Client unregistered")
}

func (h *Hub) removeFromEntity(client *Client, entity string) {
	subscribers := h.byEntity[entity]
	for i, c := range subscribers {
		if c == client {
			h.byEntity[entity] = append(subscribers[:i], subscribers[i+1:]...)
			break
		}
	}
	if len(h.byEntity[entity]) == 0 {
		delete(h.byEntity, entity)
	}
}

func (h *Hub) Subscribe(client *Client, entity string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.byEntity[entity] {
		if c == client {
			return
		}
	}

	h.byEntity[entity] = append(h.byEntity[entity], client)

	log.Debug().
		Str("entity", entity).
		Int("subscribers", len(h.byEntity[entity])).
		Msg("[WS] Entity subscription added")
}

func (h *Hub) Unsubscribe(client *Client, entity string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromEntity(client, entity)

	log.Debug().
		Str("entity", entity).
		Int("subscribers", len(h.byEntity[entity])).
		Msg("[WS] Entity subscription removed")
}

func (h *Hub) broadcastChange(msg *BroadcastMessage) {
	h.mu.RLock()
	clients := make([]*Client, len(h.byEntity[msg.Entity]))
	copy(clients, h.byEntity[msg.Entity])
	h.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	changeMsg := &ChangeMessage{
		Type:   MessageTypeChange,
		Entity: msg.Entity,
		Kind:   msg.Change.Kind,
		ID:     msg.Change.ID,
	}

	for _, client := range clients {
		select {
		case client.send <- changeMsg:
		default:
			// Client buffer full, skip this message
			log.Warn().
				Str("userId", client.user.ID).
				Str("entity", msg.Entity).
				Msg("[WS] Client send buffer full, dropping message")
		}
	}

	log.Debug().
		Str("entity", msg.Entity).
		Str("kind", string(msg.Change.Kind)).
		Int("recipients", len(clients)).
		Msg("[WS] Change broadcast complete")
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) GetStats() (totalClients, totalSubscriptions int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	totalClients = len(h.clients)
	for _, clients := range h.byEntity {
		totalSubscriptions += len(clients)
	}
	return
}
