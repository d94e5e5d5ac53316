package model

import (
	"time"
)

// 通知状态
const (
	NotificationUnread = "Unread"
	NotificationRead   = "Read"
)

// 通知类型
const (
	NotificationTypePayment = "payment"
	NotificationTypeRedeem  = "redeem"
)

type Notification struct {
	ID         int64     `gorm:"primaryKey" json:"notification_id"`
	CustomerID string    `gorm:"size:64;not null;index" json:"customer_id"`
	Title      string    `gorm:"size:200;not null" json:"title"`
	Body       string    `gorm:"type:text" json:"body"`
	Type       string    `gorm:"size:20" json:"type"`
	Status     string    `gorm:"size:20;not null;default:Unread" json:"status"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
