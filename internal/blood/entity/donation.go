package entity

import (
	"time"
)

// 捐献记录状态
const (
	DonationStatusScheduled = "scheduled"
	DonationStatusCompleted = "completed"
	DonationStatusCancelled = "cancelled"
)

// 捐献类型
const (
	DonationTypeWholeBlood = "whole-blood"
	DonationTypePlatelets  = "platelets"
	DonationTypePlasma     = "plasma"
)

// Donation 捐献预约/记录实体
type Donation struct {
	ID               string     `json:"id" gorm:"primaryKey;size:32"`
	DonorID          string     `json:"donor_id" gorm:"size:32;not null;index"`
	RequestID        *string    `json:"request_id,omitempty" gorm:"size:32;index"`
	DriveID          *string    `json:"drive_id,omitempty" gorm:"size:32;index"`
	ScheduledDate    time.Time  `json:"scheduled_date" gorm:"not null"`
	BloodBankName    string     `json:"blood_bank_name" gorm:"size:128"`
	BloodBankAddress string     `json:"blood_bank_address" gorm:"size:256"`
	DonationType     string     `json:"donation_type" gorm:"size:16;not null;default:whole-blood"`
	Units            int        `json:"units" gorm:"not null;default:1"`
	Status           string     `json:"status" gorm:"size:16;not null;default:scheduled;index"`
	CompletedAt      *time.Time `json:"completed_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	// 关联
	Donor *User `json:"donor,omitempty" gorm:"foreignKey:DonorID"`
}

func (Donation) TableName() string {
	return "donations"
}
