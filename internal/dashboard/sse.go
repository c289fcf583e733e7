package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"CustodiaLegalSaas/internal/logger"
)

type SSEClient struct {
	userID   string
	writer   http.ResponseWriter
	flusher  http.Flusher
	done     chan bool
	lastPing time.Time
}

// SSEServer fans audit events out to every connected dashboard. One
// connection per user; a reconnect displaces the previous one.
type SSEServer struct {
	mu         sync.RWMutex
	clients    map[string]*SSEClient
	pingTicker *time.Ticker
	stopCh     chan struct{}
}

var globalSSEServer *SSEServer

func NewSSEServer() *SSEServer {
	s := &SSEServer{
		clients: make(map[string]*SSEClient),
		stopCh:  make(chan struct{}),
	}
	globalSSEServer = s

	s.pingTicker = time.NewTicker(30 * time.Second)
	go s.pingClients()

	return s
}

func GetSSEServer() *SSEServer {
	return globalSSEServer
}

// HandleSSE upgrades the request into a long-lived event stream.
func (s *SSEServer) HandleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Cache-Control")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id parameter required", http.StatusBadRequest)
		return
	}

	client := &SSEClient{
		userID:   userID,
		writer:   w,
		flusher:  flusher,
		done:     make(chan bool),
		lastPing: time.Now(),
	}

	s.mu.Lock()
	if existingClient, exists := s.clients[userID]; exists {
		close(existingClient.done)
	}
	s.clients[userID] = client
	s.mu.Unlock()

	fmt.Printf("[SSE] Connected user %s from %s\n", userID, r.RemoteAddr)

	s.sendToClient(client, map[string]interface{}{
		"type":    "connected",
		"message": "audit stream established",
		"time":    time.Now().Format(time.RFC3339),
	})

	defer func() {
		s.mu.Lock()
		if s.clients[userID] == client {
			delete(s.clients, userID)
		}
		s.mu.Unlock()
		fmt.Printf("[SSE] Disconnected user %s\n", userID)
	}()

	select {
	case <-client.done:
		return
	case <-r.Context().Done():
		return
	case <-s.stopCh:
		return
	}
}

func (s *SSEServer) sendToClient(client *SSEClient, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(client.writer, "data: %s\n\n", jsonData)
	if err != nil {
		return err
	}

	client.flusher.Flush()
	return nil
}

func (s *SSEServer) pingClients() {
	defer s.pingTicker.Stop()

	for {
		select {
		case <-s.pingTicker.C:
			s.mu.RLock()
			for userID, client := range s.clients {
				err := s.sendToClient(client, map[string]interface{}{
					"type": "ping",
					"time": time.Now().Format(time.RFC3339),
				})
				if err != nil {
					fmt.Printf("[SSE] Ping failed for user %s: %v\n", userID, err)
					go func(uid string, c *SSEClient) {
						s.mu.Lock()
						if s.clients[uid] == c {
							delete(s.clients, uid)
							close(c.done)
						}
						s.mu.Unlock()
					}(userID, client)
				} else {
					client.lastPing = time.Now()
				}
			}
			s.mu.RUnlock()
		case <-s.stopCh:
			return
		}
	}
}

func (s *SSEServer) Stop() {
	close(s.stopCh)
	s.mu.Lock()
	for _, client := range s.clients {
		close(client.done)
	}
	s.clients = make(map[string]*SSEClient)
	s.mu.Unlock()
}

// BroadcastAuditEvent pushes an audit-trail event to every connected
// dashboard. Events for disconnected users are silently dropped; the
// audit_trail table remains the durable record.
func BroadcastAuditEvent(entityType, entityID, actionType, details, requestedBy string) {
	if globalSSEServer == nil {
		return
	}

	event := map[string]interface{}{
		"type":         "audit",
		"entity_type":  entityType,
		"entity_id":    entityID,
		"actiontype":   actionType,
		"details":      details,
		"requested_by": requestedBy,
		"time":         time.Now().Format(time.RFC3339),
	}

	globalSSEServer.mu.RLock()
	clients := make([]*SSEClient, 0, len(globalSSEServer.clients))
	for _, client := range globalSSEServer.clients {
		clients = append(clients, client)
	}
	globalSSEServer.mu.RUnlock()

	for _, client := range clients {
		if err := globalSSEServer.sendToClient(client, event); err != nil {
			fmt.Printf("[SSE] Broadcast failed for user %s: %v\n", client.userID, err)
		}
	}
}

// SendToUser sends a message to a specific user via SSE
func SendToUser(userID string, message []byte) {
	if globalSSEServer == nil {
		return
	}

	var data interface{}
	if err := json.Unmarshal(message, &data); err != nil {
		data = map[string]interface{}{
			"type":    "message",
			"content": string(message),
			"time":    time.Now().Format(time.RFC3339),
		}
	}

	globalSSEServer.mu.RLock()
	client, exists := globalSSEServer.clients[userID]
	globalSSEServer.mu.RUnlock()

	if !exists {
		return
	}

	err := globalSSEServer.sendToClient(client, data)
	if err != nil {
		fmt.Printf("[SSE] Failed to send message to user %s: %v\n", userID, err)
		globalSSEServer.mu.Lock()
		if globalSSEServer.clients[userID] == client {
			delete(globalSSEServer.clients, userID)
			close(client.done)
		}
		globalSSEServer.mu.Unlock()
	}
}

// SendSessionExpired notifies a user that their session was evicted and
// closes their stream.
func SendSessionExpired(userID, reason string) {
	if globalSSEServer == nil {
		return
	}

	message := map[string]interface{}{
		"type":   "session_expired",
		"reason": reason,
		"time":   time.Now().Format(time.RFC3339),
	}

	globalSSEServer.mu.RLock()
	client, exists := globalSSEServer.clients[userID]
	globalSSEServer.mu.RUnlock()

	if !exists {
		return
	}

	if err := globalSSEServer.sendToClient(client, message); err != nil {
		fmt.Printf("[SSE] Failed to send session_expired to user %s: %v\n", userID, err)
	} else if logger.GlobalLogger != nil {
		logger.GlobalLogger.LogAudit(fmt.Sprintf("Session expired notification sent to user %s (reason=%s)", userID, reason))
	}

	globalSSEServer.mu.Lock()
	if globalSSEServer.clients[userID] == client {
		delete(globalSSEServer.clients, userID)
		close(client.done)
	}
	globalSSEServer.mu.Unlock()
}

// GetClientCount returns the number of connected clients
func GetClientCount() int {
	if globalSSEServer == nil {
		return 0
	}

	globalSSEServer.mu.RLock()
	defer globalSSEServer.mu.RUnlock()

	return len(globalSSEServer.clients)
}
