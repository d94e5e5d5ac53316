package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/cafe_sub_server/internal/model"
	"github.com/qs3c/cafe_sub_server/internal/pkg/apperr"
)

var openOrderStates = []string{model.OrderCreated, model.OrderAwaitingSettlement}

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// WithTx 返回绑定到事务的副本
func (r *OrderRepository) WithTx(tx *gorm.DB) *OrderRepository {
	return &OrderRepository{db: tx}
}

// Transaction 在一个数据库事务中执行 fn
func (r *OrderRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// CreateWithSubscription 同一事务创建订单和绑定的待付款订阅
func (r *OrderRepository) CreateWithSubscription(order *model.Order, sub *model.Subscription) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		sub.OrderID = order.ID
		sub.CustomerID = order.CustomerID
		sub.PlanID = order.PlanID
		if err := tx.Create(sub).Error; err != nil {
			return err
		}
		order.Subscription = sub
		return nil
	})
}

func (r *OrderRepository) GetByID(id int64) (*model.Order, error) {
	var order model.Order
	err := r.db.Preload("Subscription").Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, notFound(err, apperr.ErrOrderNotFound)
	}
	return &order, nil
}

func (r *OrderRepository) GetByReference(reference string) (*model.Order, error) {
	var order model.Order
	err := r.db.Preload("Subscription").Where("transfer_reference = ?", reference).First(&order).Error
	if err != nil {
		return nil, notFound(err, apperr.ErrOrderNotFound)
	}
	return &order, nil
}

// MarkSettled 只有未完成的订单才会被更新，返回是否由本次调用完成
func (r *OrderRepository) MarkSettled(id int64, now time.Time) (bool, error) {
	res := r.db.Model(&model.Order{}).
		Where("id = ? AND state IN ?", id, openOrderStates).
		Updates(map[string]interface{}{
			"state":      model.OrderSettled,
			"settled_at": now,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListStale 过期仍未到账的订单 ID
func (r *OrderRepository) ListStale(now time.Time, limit int) ([]int64, error) {
	var ids []int64
	err := r.db.Model(&model.Order{}).
		Where("state IN ? AND expires_at < ?", openOrderStates, now).
		Order("expires_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// MarkExpired 把仍未完成的订单标记为过期，已到账的订单不受影响
func (r *OrderRepository) MarkExpired(ids []int64, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.Model(&model.Order{}).
		Where("id IN ? AND state IN ?", ids, openOrderStates).
		Updates(map[string]interface{}{
			"state":      model.OrderExpired,
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}
