package dto

// PaymentCallbackRequest 银行到账回调，字段名沿用网关格式
type PaymentCallbackRequest struct {
	ID              int64  `json:"id"`
	Gateway         string `json:"gateway"`
	TransactionDate string `json:"transactionDate"`
	AccountNumber   string `json:"accountNumber"`
	Code            string `json:"code"`
	Content         string `json:"content"`
	TransferType    string `json:"transferType"`
	TransferAmount  int64  `json:"transferAmount"`
	Accumulated     int64  `json:"accumulated"`
	SubAccount      string `json:"subAccount"`
	ReferenceCode   string `json:"referenceCode"`
	Description     string `json:"description"`
}

// SettleResult 回调处理结果
type SettleResult struct {
	CallbackID     int64  `json:"callback_id"`
	OrderID        int64  `json:"order_id,omitempty"`
	SubscriptionID int64  `json:"subscription_id,omitempty"`
	Activated      bool   `json:"activated"`
	Queued         bool   `json:"queued"`
	Message        string `json:"message"`
}
