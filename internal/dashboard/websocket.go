package dashboard

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketServer mirrors the SSE hub for clients that prefer a socket.
type WebSocketServer struct {
	mu        sync.Mutex
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
}

var globalWSServer *WebSocketServer

func NewWebSocketServer() *WebSocketServer {
	s := &WebSocketServer{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 64),
	}
	globalWSServer = s
	return s
}

func (s *WebSocketServer) HandleConnections(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	// Inbound frames are ignored; the socket exists for the event feed.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
			break
		}
	}
}

func (s *WebSocketServer) HandleMessages() {
	for message := range s.broadcast {
		s.mu.Lock()
		for client := range s.clients {
			err := client.WriteMessage(websocket.TextMessage, message)
			if err != nil {
				client.Close()
				delete(s.clients, client)
			}
		}
		s.mu.Unlock()
	}
}

// BroadcastWS queues a payload for every websocket client. Drops the
// payload when the queue is full rather than blocking a request path.
func BroadcastWS(message []byte) {
	if globalWSServer == nil {
		return
	}
	select {
	case globalWSServer.broadcast <- message:
	default:
	}
}
