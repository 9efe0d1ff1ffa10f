package sse

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Event SSE事件
type Event struct {
	EventType string `json:"event"`
	Data      string `json:"data"`
}

// Client 一条SSE连接
type Client struct {
	ID     string
	UserID string
	Events chan Event
}

// Hub 管理所有SSE客户端连接
// 显式注入到需要推送的服务，不做全局单例
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *zap.Logger
}

// NewHub 创建Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Register 注册客户端
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	h.logger.Info("SSE client registered",
		zap.String("client_id", client.ID),
		zap.String("user_id", client.UserID),
		zap.Int("total", len(h.clients)),
	)
}

// Unregister 注销客户端
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Events)
		delete(h.clients, clientID)
		h.logger.Info("SSE client unregistered",
			zap.String("client_id", clientID),
			zap.Int("total", len(h.clients)),
		)
	}
}

// Broadcast 向所有客户端广播事件
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Events <- event:
		default:
			h.logger.Warn("SSE client buffer full, dropping event",
				zap.String("client_id", client.ID),
				zap.String("event", event.EventType),
			)
		}
	}
}

// SendToUser 向指定用户的所有连接发送事件
func (h *Hub) SendToUser(userID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.UserID != userID {
			continue
		}
		select {
		case client.Events <- event:
		default:
			h.logger.Warn("SSE client buffer full, dropping user event",
				zap.String("client_id", client.ID),
				zap.String("event", event.EventType),
			)
		}
	}
}

func marshal(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// PublishNewBloodRequest 新请求事件，推给指定捐献者（兼容血型+符合间隔）
func (h *Hub) PublishNewBloodRequest(donorIDs []string, message string, request interface{}) {
	event := Event{
		EventType: "new-blood-request",
		Data: marshal(map[string]interface{}{
			"message": message,
			"request": request,
		}),
	}
	for _, id := range donorIDs {
		h.SendToUser(id, event)
	}
}

// PublishDonorAccepted 捐献者接受事件，广播给所有在线客户端
func (h *Hub) PublishDonorAccepted(requestID, donorID, donorName, recipientID string) {
	h.Broadcast(Event{
		EventType: "donor-accepted",
		Data: marshal(map[string]string{
			"requestId":   requestID,
			"donorId":     donorID,
			"donorName":   donorName,
			"recipientId": recipientID,
		}),
	})
}

// PublishDeliveryUpdate 配送状态变化事件，推给受血者与配送员
func (h *Hub) PublishDeliveryUpdate(deliveryID, status string, userIDs ...string) {
	event := Event{
		EventType: "delivery-updated",
		Data: marshal(map[string]string{
			"deliveryId": deliveryID,
			"status":     status,
		}),
	}
	for _, id := range userIDs {
		h.SendToUser(id, event)
	}
}

// PublishRequestFulfilled 请求满足事件，推给受血者
func (h *Hub) PublishRequestFulfilled(recipientID, requestID string) {
	h.SendToUser(recipientID, Event{
		EventType: "request-fulfilled",
		Data: marshal(map[string]string{
			"requestId": requestID,
		}),
	})
}
