package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"steel-copilot-be/internal/pkg/logger"
	"steel-copilot-be/internal/realtime"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Envelope is the wire frame exchanged with connected clients.
type Envelope struct {
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

type Hub struct {
	// Registered clients map: UserID -> List of Clients (multi-tab)
	clients map[string][]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Inbound frames from clients fan out through the channel router.
	router *realtime.Router

	// Redis connection for cross-instance communication
	rdb *redis.Client

	// Cluster messages carry this id so an instance skips its own publishes.
	instanceID string

	logger logger.ILogger
}

func NewHub(router *realtime.Router, rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		router:     router,
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run() {
	// Start Redis Subscriber if Redis is available
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.UserID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.UserID]) == 0 {
					delete(h.clients, client.UserID)
					h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"user_id": client.UserID})
				}
			}
			h.mu.Unlock()
		}
	}
}

// Inbound routes a frame received from a client into the channel router.
func (h *Hub) Inbound(userID string, frame Envelope) {
	var payload interface{}
	if len(frame.Payload) > 0 {
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			h.logger.Warn("Hub", "Inbound payload parse error", map[string]interface{}{
				"user_id": userID, "channel": frame.Channel, "error": err.Error(),
			})
			return
		}
	}
	h.router.Publish(frame.Channel, payload)
}

// Broadcast sends a frame to ALL connected clients.
func (h *Hub) Broadcast(channel string, payload interface{}) {
	data, err := marshalEnvelope(channel, payload)
	if err != nil {
		h.logger.Error("Hub", "Broadcast marshal failed", map[string]interface{}{"channel": channel, "error": err.Error()})
		return
	}

	for _, client := range h.allClients() {
		select {
		case client.Send <- data:
		default:
			// Only the unregister handler in Run closes Send; closing here
			// too would close the channel twice.
			h.unregister <- client
		}
	}

	// Publish to Redis for other instances
	if h.rdb != nil {
		h.publishCluster("*", data)
	}
}

// allClients snapshots every connected client so delivery never runs under
// the registry lock.
func (h *Hub) allClients() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var all []*Client
	for _, clients := range h.clients {
		all = append(all, clients...)
	}
	return all
}

// Send delivers a frame to every open client of one user.
func (h *Hub) Send(userID string, channel string, payload interface{}) {
	data, err := marshalEnvelope(channel, payload)
	if err != nil {
		h.logger.Error("Hub", "Send marshal failed", map[string]interface{}{"channel": channel, "error": err.Error()})
		return
	}

	h.mu.RLock()
	clients, localFound := h.clients[userID]
	h.mu.RUnlock()

	if localFound {
		for _, client := range clients {
			select {
			case client.Send <- data:
			default:
				h.logger.Warn("Hub", "Client Send buffer full, dropping message", map[string]interface{}{"user_id": userID})
				h.unregister <- client
			}
		}
		return
	}

	// Not connected here; another instance may hold the user's clients.
	if h.rdb != nil {
		h.publishCluster(userID, data)
	}
}

func marshalEnvelope(channel string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Channel: channel, Payload: raw})
}

func (h *Hub) publishCluster(targetUserID string, data []byte) {
	payload := map[string]interface{}{
		"origin":         h.instanceID,
		"target_user_id": targetUserID,
		"message":        json.RawMessage(data),
	}
	jsonPayload, _ := json.Marshal(payload)
	if err := h.rdb.Publish(context.Background(), "cluster_events", jsonPayload).Err(); err != nil {
		h.logger.Warn("Hub", "Cluster publish failed", map[string]interface{}{"error": err.Error()})
	}
}

func (h *Hub) subscribeToRedis() {
	// All instances subscribe to "cluster_events"; each checks whether the
	// target user has local clients before delivering.
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, "cluster_events")
	defer pubsub.Close()

	ch := pubsub.Channel()

	for msg := range ch {
		var payload struct {
			Origin       string          `json:"origin"`
			TargetUserID string          `json:"target_user_id"`
			Message      json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("Hub", "Redis msg parse error", map[string]interface{}{"error": err.Error()})
			continue
		}
		if payload.Origin == h.instanceID {
			continue
		}

		if payload.TargetUserID == "*" {
			for _, client := range h.allClients() {
				select {
				case client.Send <- payload.Message:
				default:
					h.unregister <- client
				}
			}
			continue
		}

		h.mu.RLock()
		clients, ok := h.clients[payload.TargetUserID]
		h.mu.RUnlock()

		if ok {
			for _, client := range clients {
				select {
				case client.Send <- payload.Message:
				default:
					h.unregister <- client
				}
			}
		}
	}
}
