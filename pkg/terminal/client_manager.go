package terminal

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/antibyte/pixelbasic/pkg/logger"
	"github.com/antibyte/pixelbasic/pkg/shared"
)

// ClientManager verwaltet Client-Verbindungen mit Session-IDs
type ClientManager struct {
	clients map[string]*Client // sessionID -> Client
	mu      sync.RWMutex
}

// NewClientManager erstellt einen neuen ClientManager
func NewClientManager() *ClientManager {
	return &ClientManager{clients: make(map[string]*Client)}
}

// AddClient fügt einen neuen Client hinzu
func (cm *ClientManager) AddClient(sessionID string, client *Client) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.clients[sessionID] = client
	logger.Debug(logger.AreaWebSocket, "client added for session %s", sessionID)
}

// RemoveClient entfernt einen Client, wenn er noch der registrierte ist
func (cm *ClientManager) RemoveClient(sessionID string, client *Client) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if current, exists := cm.clients[sessionID]; exists && current == client {
		delete(cm.clients, sessionID)
		logger.Debug(logger.AreaWebSocket, "client removed for session %s", sessionID)
	}
}

// SendToClient sendet eine Nachricht an einen spezifischen Client
func (cm *ClientManager) SendToClient(sessionID string, message shared.Message) error {
	cm.mu.RLock()
	client, exists := cm.clients[sessionID]
	cm.mu.RUnlock()
	if !exists {
		return fmt.Errorf("client not found for session %s", sessionID)
	}
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if !client.enqueue(data) {
		return fmt.Errorf("send buffer full for session %s", sessionID)
	}
	return nil
}

// GetClientCount gibt die Anzahl der verbundenen Clients zurück
func (cm *ClientManager) GetClientCount() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.clients)
}

// HasClient prüft, ob ein Client für die Session existiert
func (cm *ClientManager) HasClient(sessionID string) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	_, exists := cm.clients[sessionID]
	return exists
}

// CloseAll beendet alle Verbindungen, z.B. beim Herunterfahren
func (cm *ClientManager) CloseAll() {
	cm.mu.RLock()
	clients := make([]*Client, 0, len(cm.clients))
	for _, c := range cm.clients {
		clients = append(clients, c)
	}
	cm.mu.RUnlock()
	for _, c := range clients {
		c.Close()
	}
}
