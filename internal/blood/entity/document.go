package entity

import (
	"time"
)

// MedicalDocument 医疗证明文件（处方、诊断报告等），文件本体存MinIO
type MedicalDocument struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	UserID      string    `json:"user_id" gorm:"size:32;not null;index"`
	RequestID   *string   `json:"request_id,omitempty" gorm:"size:32;index"`
	FileName    string    `json:"file_name" gorm:"size:256;not null"`
	ObjectKey   string    `json:"object_key" gorm:"size:512;not null"`
	ContentType string    `json:"content_type" gorm:"size:128"`
	Size        int64     `json:"size" gorm:"not null;default:0"`
	CreatedAt   time.Time `json:"created_at"`
}

func (MedicalDocument) TableName() string {
	return "medical_documents"
}
