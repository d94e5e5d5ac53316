package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/cafe_sub_server/internal/model"
	"github.com/qs3c/cafe_sub_server/internal/pkg/apperr"
)

type CallbackRepository struct {
	db *gorm.DB
}

func NewCallbackRepository(db *gorm.DB) *CallbackRepository {
	return &CallbackRepository{db: db}
}

// WithTx 返回绑定到事务的副本
func (r *CallbackRepository) WithTx(tx *gorm.DB) *CallbackRepository {
	return &CallbackRepository{db: tx}
}

// Save 按 external_id 去重保存回调。重复回调返回已存储的记录，created 为 false
func (r *CallbackRepository) Save(cb *model.PaymentCallback) (stored *model.PaymentCallback, created bool, err error) {
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoNothing: true,
	}).Create(cb)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return cb, true, nil
	}

	existing, err := r.GetByExternalID(cb.ExternalID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *CallbackRepository) GetByID(id int64) (*model.PaymentCallback, error) {
	var cb model.PaymentCallback
	err := r.db.Where("id = ?", id).First(&cb).Error
	if err != nil {
		return nil, notFound(err, apperr.New(apperr.ErrNotFound, "回调记录不存在"))
	}
	return &cb, nil
}

func (r *CallbackRepository) GetByExternalID(externalID string) (*model.PaymentCallback, error) {
	var cb model.PaymentCallback
	err := r.db.Where("external_id = ?", externalID).First(&cb).Error
	if err != nil {
		return nil, notFound(err, apperr.New(apperr.ErrNotFound, "回调记录不存在"))
	}
	return &cb, nil
}

// MarkProcessed 记录处理结果
func (r *CallbackRepository) MarkProcessed(id int64, orderID *int64, result string) error {
	return r.db.Model(&model.PaymentCallback{}).Where("id = ?", id).Updates(map[string]interface{}{
		"processed": true,
		"order_id":  orderID,
		"result":    result,
	}).Error
}

// ListUnprocessed 尚未处理的回调，用于重放
func (r *CallbackRepository) ListUnprocessed(limit int) ([]*model.PaymentCallback, error) {
	var list []*model.PaymentCallback
	err := r.db.Where("processed = ?", false).
		Order("id ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}
