package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/cafe_sub_server/internal/model"
	"github.com/qs3c/cafe_sub_server/internal/pkg/apperr"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(n *model.Notification) error {
	return r.db.Create(n).Error
}

func (r *NotificationRepository) GetByID(id int64) (*model.Notification, error) {
	var n model.Notification
	err := r.db.Where("id = ?", id).First(&n).Error
	if err != nil {
		return nil, notFound(err, apperr.ErrNotificationNotFound)
	}
	return &n, nil
}

// ListByCustomer 客户通知，最新的在前
func (r *NotificationRepository) ListByCustomer(customerID string, limit int) ([]*model.Notification, error) {
	var list []*model.Notification
	err := r.db.Where("customer_id = ?", customerID).
		Order("id DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *NotificationRepository) CountUnread(customerID string) (int64, error) {
	var count int64
	err := r.db.Model(&model.Notification{}).
		Where("customer_id = ? AND status = ?", customerID, model.NotificationUnread).
		Count(&count).Error
	return count, err
}

// MarkRead 只能标记自己的通知
func (r *NotificationRepository) MarkRead(id int64, customerID string) error {
	res := r.db.Model(&model.Notification{}).
		Where("id = ? AND customer_id = ?", id, customerID).
		Update("status", model.NotificationRead)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotificationNotFound
	}
	return nil
}
