package entity

import (
	"time"
)

// 用户角色
const (
	RoleDonor     = "donor"
	RoleRecipient = "recipient"
	RoleDelivery  = "delivery"
	RoleAdmin     = "admin"
)

// 用户状态
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// User 用户实体（捐献者/受血者/配送员/管理员共用一张表）
type User struct {
	ID               string     `json:"id" gorm:"primaryKey;size:32"`
	Name             string     `json:"name" gorm:"size:64;not null"`
	Email            string     `json:"email" gorm:"size:128;not null;uniqueIndex"`
	Password         string     `json:"-" gorm:"size:128;not null"`
	Phone            string     `json:"phone" gorm:"size:20"`
	Role             string     `json:"role" gorm:"size:16;not null;index"`
	BloodType        string     `json:"blood_type" gorm:"size:4;index"`
	CardNo           string     `json:"card_no" gorm:"size:32;uniqueIndex"`
	DonationCount    int        `json:"donation_count" gorm:"not null;default:0"`
	BadgeLevel       string     `json:"badge_level" gorm:"size:16;not null;default:bronze"`
	LastDonationDate *time.Time `json:"last_donation_date"`
	Lat              *float64   `json:"lat"`
	Lng              *float64   `json:"lng"`
	LocationAt       *time.Time `json:"location_at"`
	Status           string     `json:"status" gorm:"size:16;not null;default:active"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	// 查询时由Haversine表达式填充，非数据库列
	DistanceKm *float64 `json:"distance_km,omitempty" gorm:"->;-:migration"`
}

func (User) TableName() string {
	return "users"
}

// IsDonor 是否捐献者
func (u *User) IsDonor() bool {
	return u.Role == RoleDonor
}

// RecomputeBadge 按捐献次数重算勋章等级
func (u *User) RecomputeBadge() {
	u.BadgeLevel = BadgeForCount(u.DonationCount)
}
