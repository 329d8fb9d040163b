package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Message is the frame exchanged over the socket. Inbound frames are echoed
// to every connection the same user holds, so a second device sees them.
type Message struct {
	Type    string    `json:"type"`
	UserID  string    `json:"-"`
	Content string    `json:"content"`
	SentAt  time.Time `json:"sent_at"`
}

// Hub is the registry of live websocket connections.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	log     zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		log:     log,
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
}

// Count reports the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast delivers the message to every connection of its user. Clients
// with a full send buffer are dropped rather than blocking the sender.
func (h *Hub) Broadcast(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.Error().Err(err).Msg("encode ws message")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		if client.userID != msg.UserID {
			continue
		}
		select {
		case client.send <- payload:
		default:
			delete(h.clients, client)
			close(client.send)
		}
	}
}

// Notify pushes a server-originated message to one user's connections.
func (h *Hub) Notify(userID string, msgType, content string) {
	h.Broadcast(Message{
		Type:    msgType,
		UserID:  userID,
		Content: content,
		SentAt:  time.Now().UTC(),
	})
}
