package entity

import (
	"encoding/json"
	"time"
)

// 通知类型（与SSE事件名保持一致）
const (
	NotifyNewBloodRequest = "new-blood-request"
	NotifyDonorAccepted   = "donor-accepted"
	NotifyDeliveryUpdated = "delivery-updated"
	NotifyRequestFulfilled = "request-fulfilled"
	NotifyDonationDone    = "donation-completed"
)

// Notification 用户通知，按用户存于Redis列表，前端拉取后确认消费
type Notification struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
	Read      bool            `json:"read"`
	CreatedAt time.Time       `json:"created_at"`
}
