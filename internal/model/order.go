package model

import (
	"time"
)

// 订单状态
const (
	OrderCreated            = "Created"
	OrderAwaitingSettlement = "AwaitingSettlement"
	OrderSettled            = "Settled"
	OrderExpired            = "Expired"
)

type Order struct {
	ID                int64      `gorm:"primaryKey" json:"id"`
	PlanID            int64      `gorm:"not null;index" json:"plan_id"`
	CustomerID        string     `gorm:"size:64;not null;index" json:"customer_id"`
	Amount            int64      `gorm:"not null" json:"amount"`
	TransferReference string     `gorm:"size:64;not null;uniqueIndex" json:"transfer_reference"`
	BankName          string     `gorm:"size:100" json:"bank_name"`
	BankAccount       string     `gorm:"size:50" json:"bank_account"`
	AccountHolder     string     `gorm:"size:100" json:"account_holder"`
	State             string     `gorm:"size:20;not null;default:Created;index" json:"state"`
	ExpiresAt         time.Time  `gorm:"not null;index" json:"expires_at"`
	SettledAt         *time.Time `json:"settled_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	Subscription *Subscription `gorm:"foreignKey:OrderID" json:"subscription,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// Open 还在等待付款的订单
func (o *Order) Open() bool {
	return o.State == OrderCreated || o.State == OrderAwaitingSettlement
}
