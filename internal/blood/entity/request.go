package entity

import (
	"time"
)

// 血液请求状态
const (
	RequestStatusOpen      = "open"
	RequestStatusFulfilled = "fulfilled"
	RequestStatusCancelled = "cancelled"
)

// 匹配记录状态（每个捐献者对每个请求最多一条）
const (
	MatchStatusPending  = "pending"
	MatchStatusAccepted = "accepted"
	MatchStatusDeclined = "declined"
)

// BloodRequest 血液请求实体
type BloodRequest struct {
	ID              string    `json:"id" gorm:"primaryKey;size:32"`
	RecipientID     string    `json:"recipient_id" gorm:"size:32;not null;index"`
	BloodType       string    `json:"blood_type" gorm:"size:4;not null;index"`
	Units           int       `json:"units" gorm:"not null"`
	Urgency         string    `json:"urgency" gorm:"size:16;not null;default:normal"`
	Reason          string    `json:"reason" gorm:"type:text"`
	HospitalName    string    `json:"hospital_name" gorm:"size:128"`
	HospitalAddress string    `json:"hospital_address" gorm:"size:256"`
	Lat             *float64  `json:"lat"`
	Lng             *float64  `json:"lng"`
	Status          string    `json:"status" gorm:"size:16;not null;default:open;index"`
	FulfilledAt     *time.Time `json:"fulfilled_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// 关联
	Recipient     *User        `json:"recipient,omitempty" gorm:"foreignKey:RecipientID"`
	MatchedDonors []MatchEntry `json:"matched_donors,omitempty" gorm:"foreignKey:RequestID"`
}

func (BloodRequest) TableName() string {
	return "blood_requests"
}

// IsOpen 请求是否仍可响应
func (r *BloodRequest) IsOpen() bool {
	return r.Status == RequestStatusOpen
}

// AcceptedCount 已接受的匹配条数
func (r *BloodRequest) AcceptedCount() int {
	n := 0
	for _, m := range r.MatchedDonors {
		if m.Status == MatchStatusAccepted {
			n++
		}
	}
	return n
}

// MatchEntry 捐献者对某个请求的响应记录
// (request_id, donor_id) 唯一，防止重复匹配
type MatchEntry struct {
	ID          string     `json:"id" gorm:"primaryKey;size:32"`
	RequestID   string     `json:"request_id" gorm:"size:32;not null;uniqueIndex:idx_match_request_donor"`
	DonorID     string     `json:"donor_id" gorm:"size:32;not null;uniqueIndex:idx_match_request_donor"`
	Status      string     `json:"status" gorm:"size:16;not null;default:pending"`
	RespondedAt *time.Time `json:"responded_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// 关联
	Donor *User `json:"donor,omitempty" gorm:"foreignKey:DonorID"`
}

func (MatchEntry) TableName() string {
	return "match_entries"
}

// IsTerminal 匹配记录是否已到终态（接受/拒绝后不可再响应）
func (m *MatchEntry) IsTerminal() bool {
	return m.Status == MatchStatusAccepted || m.Status == MatchStatusDeclined
}
