package entity

import (
	"time"
)

// 配送状态
const (
	DeliveryStatusAssigned  = "assigned"
	DeliveryStatusPickedUp  = "picked-up"
	DeliveryStatusInTransit = "in-transit"
	DeliveryStatusDelivered = "delivered"
	DeliveryStatusCancelled = "cancelled"
)

// deliveryTransitions 配送状态机：当前状态 → 允许的下一状态
var deliveryTransitions = map[string][]string{
	DeliveryStatusAssigned:  {DeliveryStatusPickedUp, DeliveryStatusCancelled},
	DeliveryStatusPickedUp:  {DeliveryStatusInTransit, DeliveryStatusCancelled},
	DeliveryStatusInTransit: {DeliveryStatusDelivered, DeliveryStatusCancelled},
}

// CanTransitionDelivery 判断配送状态迁移是否合法
func CanTransitionDelivery(from, to string) bool {
	for _, next := range deliveryTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Delivery 血液配送实体
type Delivery struct {
	ID             string     `json:"id" gorm:"primaryKey;size:32"`
	RequestID      string     `json:"request_id" gorm:"size:32;not null;index"`
	CourierID      string     `json:"courier_id" gorm:"size:32;not null;index"`
	RecipientID    string     `json:"recipient_id" gorm:"size:32;not null;index"`
	PickupName     string     `json:"pickup_name" gorm:"size:128"`
	PickupAddress  string     `json:"pickup_address" gorm:"size:256"`
	DropoffName    string     `json:"dropoff_name" gorm:"size:128"`
	DropoffAddress string     `json:"dropoff_address" gorm:"size:256"`
	Status         string     `json:"status" gorm:"size:16;not null;default:assigned;index"`
	Lat            *float64   `json:"lat"`
	Lng            *float64   `json:"lng"`
	DeliveredAt    *time.Time `json:"delivered_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// 关联
	Courier *User         `json:"courier,omitempty" gorm:"foreignKey:CourierID"`
	Request *BloodRequest `json:"request,omitempty" gorm:"foreignKey:RequestID"`
}

func (Delivery) TableName() string {
	return "deliveries"
}
