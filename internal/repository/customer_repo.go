package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/cafe_sub_server/internal/model"
	"github.com/qs3c/cafe_sub_server/internal/pkg/apperr"
)

type CustomerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// Upsert 写入客户投影，空字段不覆盖已有值
func (r *CustomerRepository) Upsert(customer *model.Customer) error {
	columns := []string{"updated_at"}
	if customer.Name != "" {
		columns = append(columns, "name")
	}
	if customer.Phone != "" {
		columns = append(columns, "phone")
	}

	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(customer).Error
}

func (r *CustomerRepository) GetByID(id string) (*model.Customer, error) {
	var customer model.Customer
	err := r.db.Where("id = ?", id).First(&customer).Error
	if err != nil {
		return nil, notFound(err, apperr.ErrCustomerNotFound)
	}
	return &customer, nil
}

// GetByPhone 按规范化后的手机号查找，同号多条时取最近更新的
func (r *CustomerRepository) GetByPhone(phone string) (*model.Customer, error) {
	var customer model.Customer
	err := r.db.Where("phone = ?", phone).Order("updated_at DESC").First(&customer).Error
	if err != nil {
		return nil, notFound(err, apperr.ErrCustomerNotFound)
	}
	return &customer, nil
}
