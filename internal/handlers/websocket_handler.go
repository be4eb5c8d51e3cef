package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/photobooth/boothsync/internal/observability"
	"github.com/photobooth/boothsync/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Gallery pages are served from event wifi with arbitrary
		// hostnames, so origins are not restricted
		return true
	},
}

// WebSocketHandler handles gallery event stream connections
type WebSocketHandler struct {
	hub *services.EventHub
}

// NewWebSocketHandler creates a new WebSocketHandler
func NewWebSocketHandler(hub *services.EventHub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// HandleConnection upgrades HTTP to WebSocket and manages the connection
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		observability.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	client := h.hub.NewClient(uuid.New().String(), conn)
	h.hub.Register(client)

	// Every viewer gets gallery events without an explicit subscribe
	h.hub.Subscribe(client, services.TopicGallery)

	go client.WritePump()

	// Blocks until the connection closes
	client.ReadPump(h.handleMessage)
}

// handleMessage processes incoming client messages
func (h *WebSocketHandler) handleMessage(client *services.EventClient, messageType int, data []byte) {
	if messageType != websocket.TextMessage {
		return
	}

	var msg services.EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		observability.Debugf("Invalid websocket message: %v", err)
		return
	}

	switch msg.Type {
	case services.EventSubscribe:
		if topic, ok := topicFromPayload(msg.Payload); ok {
			h.hub.Subscribe(client, topic)
		}

	case services.EventUnsubscribe:
		if topic, ok := topicFromPayload(msg.Payload); ok {
			h.hub.Unsubscribe(client, topic)
		}

	case services.EventPing:
		response := services.EventMessage{Type: services.EventPong}
		if data, err := json.Marshal(response); err == nil {
			client.Send <- data
		}
	}
}

func topicFromPayload(payload interface{}) (string, bool) {
	if topic, ok := payload.(string); ok {
		return topic, true
	}
	if m, ok := payload.(map[string]interface{}); ok {
		if topic, ok := m["topic"].(string); ok {
			return topic, true
		}
	}
	return "", false
}

// GetHub returns the event hub for services that push notifications
func (h *WebSocketHandler) GetHub() *services.EventHub {
	return h.hub
}
