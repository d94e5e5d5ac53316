package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/cafe_sub_server/internal/model"
	"github.com/qs3c/cafe_sub_server/internal/pkg/apperr"
)

type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) GetByID(id int64) (*model.Plan, error) {
	var plan model.Plan
	err := r.db.Where("id = ?", id).First(&plan).Error
	if err != nil {
		return nil, notFound(err, apperr.ErrPlanUnavailable)
	}
	return &plan, nil
}

// ListActive 在售套餐，按价格升序
func (r *PlanRepository) ListActive() ([]*model.Plan, error) {
	var plans []*model.Plan
	err := r.db.Where("active = ?", true).
		Order("price ASC, id ASC").
		Find(&plans).Error
	return plans, err
}

// Upsert 按 ID 写入套餐，已存在时覆盖全部字段
func (r *PlanRepository) Upsert(plan *model.Plan) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "description", "product_name", "image_url", "price",
			"duration_days", "daily_quota", "max_per_visit", "active", "updated_at",
		}),
	}).Create(plan).Error
}
