package model

import (
	"time"
)

// Customer 身份声明在本地的投影，用于按手机号查找客户
type Customer struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"size:100" json:"name"`
	Phone     string    `gorm:"size:20;index" json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Customer) TableName() string {
	return "customers"
}
