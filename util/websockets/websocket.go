package websockets

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/bwise1/gunaso/util/logger"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512
	// a single page rarely follows more than a handful of complaints
	maxSubscriptions = 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketManager fans complaint status events out to the connections
// subscribed to each tracking ID. All writes happen on the Run goroutine.
type WebSocketManager struct {
	clients    map[*websocket.Conn]*Client
	register   chan *Client
	unregister chan *websocket.Conn
	subscribe  chan subscription
	publish    chan Event
	done       chan struct{}
	ValidateID func(string) bool
}

// NewWebSocketManager initializes a WebSocketManager
func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[*websocket.Conn]*Client),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn),
		subscribe:  make(chan subscription),
		publish:    make(chan Event, 64),
		done:       make(chan struct{}),
		ValidateID: func(s string) bool { return s != "" },
	}
}

// Run serves the hub until ctx is cancelled, then closes every connection.
func (manager *WebSocketManager) Run(ctx context.Context) {
	defer close(manager.done)
	for {
		select {
		case <-ctx.Done():
			for conn := range manager.clients {
				conn.Close()
				delete(manager.clients, conn)
			}
			return

		case client := <-manager.register:
			manager.clients[client.Conn] = client

		case conn := <-manager.unregister:
			if _, exists := manager.clients[conn]; exists {
				delete(manager.clients, conn)
				conn.Close()
			}

		case sub := <-manager.subscribe:
			client, ok := manager.clients[sub.conn]
			if !ok {
				continue
			}
			if sub.remove {
				delete(client.TrackingIDs, sub.trackingID)
				continue
			}
			if len(client.TrackingIDs) >= maxSubscriptions {
				manager.write(client, Event{Type: MsgTypeError, TrackingID: sub.trackingID, Error: "too many subscriptions"})
				continue
			}
			client.TrackingIDs[sub.trackingID] = true
			manager.write(client, Event{Type: MsgTypeSubscribed, TrackingID: sub.trackingID})

		case event := <-manager.publish:
			for _, client := range manager.clients {
				if client.TrackingIDs[event.TrackingID] {
					manager.write(client, event)
				}
			}
		}
	}
}

func (manager *WebSocketManager) write(client *Client, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("failed to marshal websocket event", zap.Error(err))
		return
	}
	_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := client.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		client.Conn.Close()
		delete(manager.clients, client.Conn)
	}
}

// Publish queues an event for subscribers of trackingID. It never blocks the caller
// for long: if the hub is gone or saturated the event is dropped.
func (manager *WebSocketManager) Publish(trackingID string, data interface{}) {
	event := Event{Type: MsgTypeStatusUpdate, TrackingID: trackingID, Data: data}
	select {
	case manager.publish <- event:
	case <-manager.done:
	case <-time.After(time.Second):
		logger.Warn("dropping websocket event", zap.String("tracking_id", trackingID))
	}
}

// HandleConnections upgrades HTTP requests to WebSocket connections
func (manager *WebSocketManager) HandleConnections(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade error", zap.Error(err))
		return
	}
	conn.SetReadLimit(maxMessageSize)

	client := &Client{Conn: conn, TrackingIDs: make(map[string]bool)}
	select {
	case manager.register <- client:
	case <-manager.done:
		conn.Close()
		return
	}
	defer func() {
		select {
		case manager.unregister <- conn:
		case <-manager.done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var message Message
		if err := json.Unmarshal(msg, &message); err != nil {
			logger.Debug("invalid websocket message", zap.Error(err))
			continue
		}

		trackingID := strings.ToUpper(strings.TrimSpace(message.TrackingID))
		if !manager.ValidateID(trackingID) {
			continue
		}

		sub := subscription{conn: conn, trackingID: trackingID}
		switch message.Type {
		case MsgTypeSubscribe:
		case MsgTypeUnsubscribe:
			sub.remove = true
		default:
			continue
		}
		select {
		case manager.subscribe <- sub:
		case <-manager.done:
			return
		}
	}
}
