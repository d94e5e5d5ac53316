package model

import (
	"time"
)

// 订阅状态
const (
	SubscriptionPendingPayment = "PendingPayment"
	SubscriptionActive         = "Active"
	SubscriptionCancelled      = "Cancelled"
	// SubscriptionExpired 只用于对外展示：已激活但超过结束日期
	SubscriptionExpired = "Expired"
)

type Subscription struct {
	ID          int64      `gorm:"primaryKey" json:"id"`
	CustomerID  string     `gorm:"size:64;not null;index" json:"customer_id"`
	PlanID      int64      `gorm:"not null;index" json:"plan_id"`
	OrderID     int64      `gorm:"not null;uniqueIndex" json:"order_id"`
	Status      string     `gorm:"size:20;not null;default:PendingPayment;index" json:"status"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `gorm:"index" json:"end_date,omitempty"`
	DailyQuota  int        `gorm:"not null" json:"daily_quota"`
	MaxPerVisit int        `gorm:"not null" json:"max_per_visit"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Plan *Plan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// UsableAt 已激活且未过结束日期
func (s *Subscription) UsableAt(now time.Time) bool {
	if s.Status != SubscriptionActive {
		return false
	}
	return s.EndDate == nil || !now.After(*s.EndDate)
}

// DisplayStatus 对外展示的状态，已过期的激活订阅显示为 Expired
func (s *Subscription) DisplayStatus(now time.Time) string {
	if s.Status == SubscriptionActive && s.EndDate != nil && now.After(*s.EndDate) {
		return SubscriptionExpired
	}
	return s.Status
}

// RemainingDays 距离结束日期的剩余天数（向上取整），未激活返回 nil
func (s *Subscription) RemainingDays(now time.Time) *int {
	if s.EndDate == nil {
		return nil
	}
	d := s.EndDate.Sub(now)
	days := 0
	if d > 0 {
		days = int((d + 24*time.Hour - 1) / (24 * time.Hour))
	}
	return &days
}
