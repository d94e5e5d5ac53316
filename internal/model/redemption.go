package model

import (
	"time"
)

// RedemptionRecord 每个订阅每天一行的兑换计数
type RedemptionRecord struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	SubscriptionID int64      `gorm:"not null;uniqueIndex:idx_redemption_sub_day" json:"subscription_id"`
	Day            string     `gorm:"size:10;not null;uniqueIndex:idx_redemption_sub_day" json:"day"` // YYYY-MM-DD
	Count          int        `gorm:"column:redeemed_count;not null;default:0" json:"count"`
	LastRedeemedAt *time.Time `json:"last_redeemed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (RedemptionRecord) TableName() string {
	return "redemption_records"
}

// RedemptionLog 兑换流水，只追加
type RedemptionLog struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	SubscriptionID int64     `gorm:"not null;index" json:"subscription_id"`
	StaffID        string    `gorm:"size:64;not null" json:"staff_id"`
	Quantity       int       `gorm:"not null" json:"quantity"`
	Day            string    `gorm:"size:10;not null;index" json:"day"`
	RedeemedAt     time.Time `gorm:"not null" json:"redeemed_at"`
}

func (RedemptionLog) TableName() string {
	return "redemption_logs"
}
