package entity

import (
	"time"
)

// 线上捐献活动状态
const (
	DriveStatusActive    = "active"
	DriveStatusCompleted = "completed"
	DriveStatusCancelled = "cancelled"
)

// BloodDrive 线上捐献活动实体
type BloodDrive struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	Name        string    `json:"name" gorm:"size:128;not null"`
	Description string    `json:"description" gorm:"type:text"`
	HostID      string    `json:"host_id" gorm:"size:32;not null;index"`
	StartDate   time.Time `json:"start_date" gorm:"not null"`
	EndDate     time.Time `json:"end_date" gorm:"not null"`
	GoalDonors  int       `json:"goal_donors" gorm:"not null"`
	GoalUnits   int       `json:"goal_units" gorm:"not null"`
	Status      string    `json:"status" gorm:"size:16;not null;default:active;index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// 关联
	Host         *User              `json:"host,omitempty" gorm:"foreignKey:HostID"`
	Participants []DriveParticipant `json:"participants,omitempty" gorm:"foreignKey:DriveID"`
}

func (BloodDrive) TableName() string {
	return "blood_drives"
}

// DriveParticipant 活动参与记录
// (drive_id, user_id) 唯一
type DriveParticipant struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	DriveID      string    `json:"drive_id" gorm:"size:32;not null;uniqueIndex:idx_drive_user"`
	UserID       string    `json:"user_id" gorm:"size:32;not null;uniqueIndex:idx_drive_user"`
	PledgedUnits int       `json:"pledged_units" gorm:"not null;default:0"`
	DonatedUnits int       `json:"donated_units" gorm:"not null;default:0"`
	JoinedAt     time.Time `json:"joined_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// 关联
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (DriveParticipant) TableName() string {
	return "drive_participants"
}
