package model

import (
	"time"

	"gorm.io/datatypes"
)

// PaymentCallback 银行到账回调原文
type PaymentCallback struct {
	ID              int64          `gorm:"primaryKey" json:"id"`
	ExternalID      string         `gorm:"size:64;not null;uniqueIndex" json:"external_id"`
	Gateway         string         `gorm:"size:50" json:"gateway"`
	TransactionDate string         `gorm:"size:32" json:"transaction_date"`
	AccountNumber   string         `gorm:"size:50" json:"account_number"`
	Code            string         `gorm:"size:64" json:"code"`
	Content         string         `gorm:"type:text" json:"content"`
	TransferType    string         `gorm:"size:10" json:"transfer_type"` // in, out
	TransferAmount  int64          `json:"transfer_amount"`
	ReferenceCode   string         `gorm:"size:64" json:"reference_code"`
	Payload         datatypes.JSON `json:"payload"`
	Processed       bool           `gorm:"not null;default:false;index" json:"processed"`
	OrderID         *int64         `json:"order_id,omitempty"`
	Result          string         `gorm:"size:200" json:"result"`
	CreatedAt       time.Time      `json:"created_at"`
}

func (PaymentCallback) TableName() string {
	return "payment_callbacks"
}

// AllModels 需要迁移的模型
func AllModels() []interface{} {
	return []interface{}{
		&Plan{},
		&Customer{},
		&Order{},
		&Subscription{},
		&RedemptionRecord{},
		&RedemptionLog{},
		&Notification{},
		&PaymentCallback{},
	}
}
