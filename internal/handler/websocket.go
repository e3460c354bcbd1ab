package handler

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/CageChen/marktree/internal/metrics"
	"github.com/CageChen/marktree/internal/selector"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the UI may be served from another port during development
	},
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Message types pushed to clients.
const (
	MessageTreeChanged  = "treeChanged"
	MessageNotification = "notification"
)

// Hub fans out tree changes and notifications to every connected client.
// It implements selector.Notifier.
type Hub struct {
	clients map[*websocket.Conn]uuid.UUID
	mu      sync.RWMutex
	writeMu sync.Mutex
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewHub creates a hub. m may be nil.
func NewHub(m *metrics.Metrics, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*websocket.Conn]uuid.UUID),
		metrics: m,
		logger:  logger.Named("ws"),
	}
}

// HandleWS handles WebSocket upgrade and connection
func (h *Hub) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	id := h.addClient(conn)
	defer func() {
		h.removeClient(conn)
		_ = conn.Close()
	}()
	h.logger.Debug("client connected", zap.Stringer("client", id))

	// Clients only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.logger.Debug("client disconnected", zap.Stringer("client", id))
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TreeChanged tells clients to fetch the tree again.
func (h *Hub) TreeChanged() {
	h.broadcast(WSMessage{Type: MessageTreeChanged, Payload: struct{}{}})
}

// Notify pushes a user-facing message.
func (h *Hub) Notify(message string, severity selector.Severity) {
	h.logger.Info("notification", zap.String("message", message), zap.Stringer("severity", severity))
	h.broadcast(WSMessage{
		Type: MessageNotification,
		Payload: map[string]string{
			"message":  message,
			"severity": severity.String(),
		},
	})
}

func (h *Hub) addClient(conn *websocket.Conn) uuid.UUID {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := uuid.New()
	h.clients[conn] = id
	if h.metrics != nil {
		h.metrics.WSConnected(1)
	}
	return id
}

func (h *Hub) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; !ok {
		return
	}
	delete(h.clients, conn)
	if h.metrics != nil {
		h.metrics.WSConnected(-1)
	}
}

func (h *Hub) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	if h.metrics != nil {
		h.metrics.WSMessage(msg.Type)
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	for _, client := range clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			h.removeClient(client)
		}
	}
}
