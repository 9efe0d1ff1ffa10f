package repository

import (
	"errors"

	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 仓库集合
type Repositories struct {
	User     *UserRepository
	Request  *RequestRepository
	Donation *DonationRepository
	Delivery *DeliveryRepository
	Drive    *DriveRepository
	Document *DocumentRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:     NewUserRepository(db),
		Request:  NewRequestRepository(db),
		Donation: NewDonationRepository(db),
		Delivery: NewDeliveryRepository(db),
		Drive:    NewDriveRepository(db),
		Document: NewDocumentRepository(db),
	}
}
