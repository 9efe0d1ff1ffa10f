package entity

import (
	"errors"
	"time"
)

// 血型枚举（固定8种）
const (
	BloodONeg  = "O-"
	BloodOPos  = "O+"
	BloodANeg  = "A-"
	BloodAPos  = "A+"
	BloodBNeg  = "B-"
	BloodBPos  = "B+"
	BloodABNeg = "AB-"
	BloodABPos = "AB+"
)

// BloodTypes 全部合法血型
var BloodTypes = []string{
	BloodONeg, BloodOPos, BloodANeg, BloodAPos,
	BloodBNeg, BloodBPos, BloodABNeg, BloodABPos,
}

// ErrInvalidBloodType 血型不在8种枚举内
var ErrInvalidBloodType = errors.New("invalid blood type")

// compatibleRecipients 供血兼容表：捐献者血型 → 可接受的受血者血型
var compatibleRecipients = map[string][]string{
	BloodONeg:  {BloodONeg, BloodOPos, BloodANeg, BloodAPos, BloodBNeg, BloodBPos, BloodABNeg, BloodABPos},
	BloodOPos:  {BloodOPos, BloodAPos, BloodBPos, BloodABPos},
	BloodANeg:  {BloodANeg, BloodAPos, BloodABNeg, BloodABPos},
	BloodAPos:  {BloodAPos, BloodABPos},
	BloodBNeg:  {BloodBNeg, BloodBPos, BloodABNeg, BloodABPos},
	BloodBPos:  {BloodBPos, BloodABPos},
	BloodABNeg: {BloodABNeg, BloodABPos},
	BloodABPos: {BloodABPos},
}

// IsValidBloodType 校验血型是否合法
func IsValidBloodType(bt string) bool {
	_, ok := compatibleRecipients[bt]
	return ok
}

// IsCompatible 判断捐献者血型能否供给受血者血型
func IsCompatible(donorType, recipientType string) (bool, error) {
	recipients, ok := compatibleRecipients[donorType]
	if !ok {
		return false, ErrInvalidBloodType
	}
	if !IsValidBloodType(recipientType) {
		return false, ErrInvalidBloodType
	}
	for _, r := range recipients {
		if r == recipientType {
			return true, nil
		}
	}
	return false, nil
}

// CompatibleRecipients 返回捐献者血型可供给的受血者血型集合
func CompatibleRecipients(donorType string) ([]string, error) {
	recipients, ok := compatibleRecipients[donorType]
	if !ok {
		return nil, ErrInvalidBloodType
	}
	out := make([]string, len(recipients))
	copy(out, recipients)
	return out, nil
}

// CompatibleDonorTypes 返回可以供给该受血者血型的捐献者血型集合
func CompatibleDonorTypes(recipientType string) ([]string, error) {
	if !IsValidBloodType(recipientType) {
		return nil, ErrInvalidBloodType
	}
	var donors []string
	for _, d := range BloodTypes {
		for _, r := range compatibleRecipients[d] {
			if r == recipientType {
				donors = append(donors, d)
				break
			}
		}
	}
	return donors, nil
}

// DonationIntervalDays 两次全血捐献的最小间隔天数
const DonationIntervalDays = 56

// CanDonateAgain 捐献间隔检查
// 从未捐献返回true；否则整日差 >= 56 天返回true（含边界）
func CanDonateAgain(lastDonationDate *time.Time, now time.Time) bool {
	if lastDonationDate == nil {
		return true
	}
	days := int(now.Sub(*lastDonationDate).Hours() / 24)
	return days >= DonationIntervalDays
}

// 勋章等级
const (
	BadgeBronze   = "bronze"
	BadgeSilver   = "silver"
	BadgeGold     = "gold"
	BadgePlatinum = "platinum"
)

// badgeThresholds 勋章门槛表：达到minDonations即获得该等级
var badgeThresholds = []struct {
	Level        string
	MinDonations int
}{
	{BadgePlatinum, 20},
	{BadgeGold, 10},
	{BadgeSilver, 5},
	{BadgeBronze, 0},
}

// BadgeForCount 根据累计捐献次数计算勋章等级
// 勋章永远由捐献次数推导，不独立存储更新
func BadgeForCount(count int) string {
	for _, t := range badgeThresholds {
		if count >= t.MinDonations {
			return t.Level
		}
	}
	return BadgeBronze
}

// 紧急程度
const (
	UrgencyCritical = "critical"
	UrgencyUrgent   = "urgent"
	UrgencyNormal   = "normal"
)

// urgencyPriorities 紧急程度优先级：数字越小越紧急
var urgencyPriorities = map[string]int{
	UrgencyCritical: 1,
	UrgencyUrgent:   2,
	UrgencyNormal:   3,
}

// IsValidUrgency 校验紧急程度是否合法
func IsValidUrgency(u string) bool {
	_, ok := urgencyPriorities[u]
	return ok
}

// UrgencyPriority 返回紧急程度的优先级数字，未知返回最低优先级
func UrgencyPriority(u string) int {
	if p, ok := urgencyPriorities[u]; ok {
		return p
	}
	return len(urgencyPriorities) + 1
}
