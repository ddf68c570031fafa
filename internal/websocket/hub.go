package websocket

import "github.com/rs/zerolog/log"

type broadcast struct {
	action string
	data   []byte
}

// Hub maintains the set of active clients and broadcasts report snapshots to
// them. The latest snapshot of every action is replayed to new clients.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Latest message per action.
	latest map[string][]byte

	broadcast chan broadcast

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	done chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		latest:     make(map[string][]byte),
		broadcast:  make(chan broadcast),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.Register:
			h.clients[client] = true
			log.Info().Str("client_id", client.ID).Int("total_clients", len(h.clients)).Msg("Client connected")
			for _, msg := range h.latest {
				h.send(client, msg)
			}
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().Str("client_id", client.ID).Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case b := <-h.broadcast:
			if b.action != ActionError {
				h.latest[b.action] = b.data
			}
			for client := range h.clients {
				h.send(client, b.data)
			}
		}
	}
}

// Stop terminates Run and disconnects every client.
func (h *Hub) Stop() {
	close(h.done)
}

// Broadcast sends data to every connected client. Blocks until the hub
// accepts the message or is stopped.
func (h *Hub) Broadcast(action string, data []byte) {
	select {
	case h.broadcast <- broadcast{action: action, data: data}:
	case <-h.done:
	}
}

// send delivers msg without blocking; slow clients are dropped.
func (h *Hub) send(client *Client, msg []byte) {
	select {
	case client.Send <- msg:
	default:
		log.Warn().Str("client_id", client.ID).Msg("Client send buffer full, dropping client")
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
}

// Add registers client unless the hub has been stopped.
func (h *Hub) Add(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Remove unregisters client unless the hub has been stopped.
func (h *Hub) Remove(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}
