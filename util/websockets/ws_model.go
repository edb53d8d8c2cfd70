package websockets

import (
	"github.com/gorilla/websocket"
)

// Message types
const (
	MsgTypeSubscribe    = "subscribe"
	MsgTypeUnsubscribe  = "unsubscribe"
	MsgTypeSubscribed   = "subscribed"
	MsgTypeStatusUpdate = "status_update"
	MsgTypeError        = "error"
)

// Client represents a connected tracking page.
type Client struct {
	Conn        *websocket.Conn
	TrackingIDs map[string]bool
}

// Message is sent by clients.
type Message struct {
	Type       string `json:"type"`
	TrackingID string `json:"tracking_id"`
}

// Event is pushed to clients.
type Event struct {
	Type       string      `json:"type"`
	TrackingID string      `json:"tracking_id,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
}

type subscription struct {
	conn       *websocket.Conn
	trackingID string
	remove     bool
}
