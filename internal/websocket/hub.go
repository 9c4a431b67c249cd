package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"worksheet-backend/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const writeWait = 10 * time.Second

// TokenParser resolves a client token to its client id.
type TokenParser interface {
	ParseToken(token string) (string, error)
}

type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Hub pushes generation status to every open connection of a client. With a
// Redis client, messages travel over client_updates:<clientID> so any
// instance can publish; without one they are delivered in-process.
type Hub struct {
	mu            sync.RWMutex
	connections   map[string][]*conn
	redisClient   *redis.Client
	tokens        TokenParser
	subscriptions map[string]*subscription
	subscribe     func(ctx context.Context, clientID string, ready chan<- struct{})
}

// subscription is a client's Redis listener. ready closes once SUBSCRIBE
// is confirmed.
type subscription struct {
	cancel context.CancelFunc
	ready  chan struct{}
}

func NewHub(redisClient *redis.Client, tokens TokenParser) *Hub {
	h := &Hub{
		connections:   make(map[string][]*conn),
		redisClient:   redisClient,
		tokens:        tokens,
		subscriptions: make(map[string]*subscription),
	}
	h.subscribe = h.subscribeToPubSub
	return h
}

func channelName(clientID string) string {
	return "client_updates:" + clientID
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Authenticate via token query param
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	clientID, err := h.tokens.ParseToken(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &conn{ws: ws}
	h.registerConnection(clientID, c)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(clientID, c)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (h *Hub) registerConnection(clientID string, c *conn) {
	h.mu.Lock()
	h.connections[clientID] = append(h.connections[clientID], c)
	total := len(h.connections[clientID])

	// First connection for this client starts the subscription
	var sub *subscription
	if h.redisClient != nil {
		sub = h.subscriptions[clientID]
		if sub == nil {
			ctx, cancel := context.WithCancel(context.Background())
			sub = &subscription{cancel: cancel, ready: make(chan struct{})}
			h.subscriptions[clientID] = sub
			go h.subscribe(ctx, clientID, sub.ready)
		}
	}
	h.mu.Unlock()

	// The handshake is awaited without holding h.mu.
	if sub != nil {
		<-sub.ready
	}

	log.Printf("WebSocket connected: client %s (total: %d)", clientID, total)
}

func (h *Hub) unregisterConnection(clientID string, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.ws.Close()

	conns := h.connections[clientID]
	for i, existing := range conns {
		if existing == c {
			h.connections[clientID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	if len(h.connections[clientID]) == 0 {
		delete(h.connections, clientID)
		if sub, ok := h.subscriptions[clientID]; ok {
			sub.cancel()
			delete(h.subscriptions, clientID)
		}
	}

	log.Printf("WebSocket disconnected: client %s", clientID)
}

func (h *Hub) subscribeToPubSub(ctx context.Context, clientID string, ready chan<- struct{}) {
	pubsub := h.redisClient.Subscribe(ctx, channelName(clientID))
	defer pubsub.Close()

	// Wait for the subscription to be confirmed so nothing published right
	// after connect is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		log.Printf("WebSocket: subscribe %s failed: %v", clientID, err)
	}
	close(ready)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(clientID, []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(clientID string, data []byte) {
	h.mu.RLock()
	conns := append([]*conn(nil), h.connections[clientID]...)
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.write(data); err != nil {
			log.Printf("WebSocket write to client %s failed: %v", clientID, err)
		}
	}
}

// Publish sends a status message to all of a client's connections.
func (h *Hub) Publish(ctx context.Context, clientID string, msg models.WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", msg.Type, err)
	}
	if h.redisClient == nil {
		h.broadcast(clientID, data)
		return nil
	}
	return h.redisClient.Publish(ctx, channelName(clientID), data).Err()
}

// Connections reports how many sockets a client has open.
func (h *Hub) Connections(clientID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[clientID])
}
