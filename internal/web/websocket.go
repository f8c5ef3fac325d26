package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"teraBridgeBot/internal/logger"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketManager manages WebSocket connections keyed by chat ID. A new
// connection for a chat replaces the old one.
type WebSocketManager struct {
	mu      sync.RWMutex
	clients map[int64]*websocket.Conn
	logger  *logger.Logger
}

// NewWebSocketManager creates a new WebSocket manager.
func NewWebSocketManager(log *logger.Logger) *WebSocketManager {
	return &WebSocketManager{
		clients: make(map[int64]*websocket.Conn),
		logger:  log,
	}
}

// AddClient adds a WebSocket connection for a chat ID.
func (wm *WebSocketManager) AddClient(chatID int64, conn *websocket.Conn) {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	if old, ok := wm.clients[chatID]; ok {
		old.Close()
	}
	wm.clients[chatID] = conn
}

// RemoveClient removes a WebSocket connection for a chat ID.
func (wm *WebSocketManager) RemoveClient(chatID int64) {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	delete(wm.clients, chatID)
}

// PublishMessage sends a message to the WebSocket client for a chat ID,
// dropping the connection on write failure.
func (wm *WebSocketManager) PublishMessage(chatID int64, message map[string]string) {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	client, ok := wm.clients[chatID]
	if !ok {
		return
	}
	messageJSON, err := json.Marshal(message)
	if err != nil {
		wm.logger.Errorf("Error marshalling WebSocket message: %v", err)
		return
	}
	if err := client.WriteMessage(websocket.TextMessage, messageJSON); err != nil {
		wm.logger.Warningf("Error sending WebSocket message to %d: %v", chatID, err)
		delete(wm.clients, chatID)
		client.Close()
	}
}

// handleWebSocket upgrades the connection and keeps it registered until
// the client disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	chatID, err := parseChatID(mux.Vars(r))
	if err != nil {
		http.Error(w, "Invalid chat ID", http.StatusBadRequest)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warningf("WebSocket upgrade error: %v", err)
		return
	}
	defer ws.Close()

	s.wsManager.AddClient(chatID, ws)
	s.logger.Infof("WebSocket client connected for chat ID: %d", chatID)

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			s.wsManager.RemoveClient(chatID)
			break
		}
	}
	s.logger.Infof("WebSocket client disconnected for chat ID: %d", chatID)
}

// parseChatID parses chat ID from request variables.
func parseChatID(vars map[string]string) (int64, error) {
	return strconv.ParseInt(vars["chatID"], 10, 64)
}
