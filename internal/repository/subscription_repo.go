package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/cafe_sub_server/internal/model"
	"github.com/qs3c/cafe_sub_server/internal/pkg/apperr"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// WithTx 返回绑定到事务的副本
func (r *SubscriptionRepository) WithTx(tx *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: tx}
}

func (r *SubscriptionRepository) GetByID(id int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Preload("Plan").Where("id = ?", id).First(&sub).Error
	if err != nil {
		return nil, notFound(err, apperr.ErrSubscriptionNotFound)
	}
	return &sub, nil
}

func (r *SubscriptionRepository) GetByOrderID(orderID int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Preload("Plan").Where("order_id = ?", orderID).First(&sub).Error
	if err != nil {
		return nil, notFound(err, apperr.ErrSubscriptionNotFound)
	}
	return &sub, nil
}

// Activate 把订单绑定的订阅从待付款改为激活，起止日期只在首次激活时写入。
// 重复调用返回当前记录，activated 为 false
func (r *SubscriptionRepository) Activate(orderID int64, now time.Time) (sub *model.Subscription, activated bool, err error) {
	sub, err = r.GetByOrderID(orderID)
	if err != nil {
		return nil, false, err
	}

	switch sub.Status {
	case model.SubscriptionActive:
		return sub, false, nil
	case model.SubscriptionCancelled:
		return sub, false, apperr.ErrSubscriptionNotActive
	}

	durationDays := 0
	if sub.Plan != nil {
		durationDays = sub.Plan.DurationDays
	}
	start := now
	end := now.AddDate(0, 0, durationDays)

	res := r.db.Model(&model.Subscription{}).
		Where("id = ? AND status = ?", sub.ID, model.SubscriptionPendingPayment).
		Updates(map[string]interface{}{
			"status":     model.SubscriptionActive,
			"start_date": start,
			"end_date":   end,
			"updated_at": now,
		})
	if res.Error != nil {
		return nil, false, res.Error
	}

	// 并发激活时以先写入的一方为准
	fresh, err := r.GetByID(sub.ID)
	if err != nil {
		return nil, false, err
	}
	if fresh.Status == model.SubscriptionCancelled {
		return fresh, false, apperr.ErrSubscriptionNotActive
	}
	return fresh, res.RowsAffected > 0, nil
}

// ListByCustomer 客户全部订阅，最新的在前
func (r *SubscriptionRepository) ListByCustomer(customerID string) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	err := r.db.Preload("Plan").
		Where("customer_id = ?", customerID).
		Order("created_at DESC, id DESC").
		Find(&subs).Error
	return subs, err
}

// ListActiveByCustomer 已激活且未过结束日期的订阅，先到期的在前
func (r *SubscriptionRepository) ListActiveByCustomer(customerID string, now time.Time) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	err := r.db.Preload("Plan").
		Where("customer_id = ? AND status = ?", customerID, model.SubscriptionActive).
		Where("end_date IS NULL OR end_date >= ?", now).
		Order("end_date ASC, id ASC").
		Find(&subs).Error
	return subs, err
}

// CountActive 客户某套餐处于激活状态的订阅数，planID 为 0 时不区分套餐
func (r *SubscriptionRepository) CountActive(customerID string, planID int64) (int64, error) {
	var count int64
	q := r.db.Model(&model.Subscription{}).
		Where("customer_id = ? AND status = ?", customerID, model.SubscriptionActive)
	if planID > 0 {
		q = q.Where("plan_id = ?", planID)
	}
	err := q.Count(&count).Error
	return count, err
}

// CancelPendingByOrders 取消过期订单绑定的待付款订阅
func (r *SubscriptionRepository) CancelPendingByOrders(orderIDs []int64, now time.Time) (int64, error) {
	if len(orderIDs) == 0 {
		return 0, nil
	}
	res := r.db.Model(&model.Subscription{}).
		Where("order_id IN ? AND status = ?", orderIDs, model.SubscriptionPendingPayment).
		Updates(map[string]interface{}{
			"status":     model.SubscriptionCancelled,
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}
