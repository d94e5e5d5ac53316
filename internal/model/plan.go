package model

import (
	"time"
)

type Plan struct {
	ID           int64     `gorm:"primaryKey;autoIncrement:false" json:"plan_id"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Description  string    `gorm:"type:text" json:"description"`
	ProductName  string    `gorm:"size:100" json:"product_name"`
	ImageURL     string    `gorm:"size:500" json:"image_url"`
	Price        int64     `gorm:"not null" json:"price"` // VND，整数
	DurationDays int       `gorm:"not null" json:"duration_days"`
	DailyQuota   int       `gorm:"not null" json:"daily_quota"`
	MaxPerVisit  int       `gorm:"not null" json:"max_per_visit"`
	Active       bool      `gorm:"not null;index" json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Plan) TableName() string {
	return "plans"
}
