package dto

// CreateOrderRequest 创建订阅订单请求
type CreateOrderRequest struct {
	PlanID int64 `json:"plan_id" binding:"required,min=1"`
}

// OrderResult 创建订单响应，包含转账信息和轮询基线
type OrderResult struct {
	OrderID             int64  `json:"order_id"`
	SubscriptionID      int64  `json:"subscription_id"`
	PlanID              int64  `json:"plan_id"`
	Amount              int64  `json:"amount"`
	TransferReference   string `json:"transfer_reference"`
	BankName            string `json:"bank_name"`
	BankAccount         string `json:"bank_account"`
	AccountHolder       string `json:"account_holder"`
	QRURL               string `json:"qr_url"`
	ExpiresAt           string `json:"expires_at"`
	BaselineActiveCount int64  `json:"baseline_active_count"`
}

// SettlementQuery 到账轮询参数
type SettlementQuery struct {
	PlanID   int64 `form:"plan_id" binding:"required,min=1"`
	Baseline int64 `form:"baseline" binding:"min=0"`
}

// SettlementStatus 到账轮询结果
type SettlementStatus struct {
	PlanID      int64 `json:"plan_id"`
	Baseline    int64 `json:"baseline"`
	ActiveCount int64 `json:"active_count"`
	Settled     bool  `json:"settled"`
}

// OrderInfo 订单详情
type OrderInfo struct {
	OrderID            int64  `json:"order_id"`
	PlanID             int64  `json:"plan_id"`
	Amount             int64  `json:"amount"`
	TransferReference  string `json:"transfer_reference"`
	State              string `json:"state"`
	ExpiresAt          string `json:"expires_at"`
	SettledAt          string `json:"settled_at,omitempty"`
	SubscriptionID     int64  `json:"subscription_id,omitempty"`
	SubscriptionStatus string `json:"subscription_status,omitempty"`
}

// SubscriptionInfo 订阅信息（返回给前端）
type SubscriptionInfo struct {
	SubscriptionID int64  `json:"subscription_id"`
	PlanID         int64  `json:"plan_id"`
	PlanName       string `json:"plan_name"`
	ProductName    string `json:"product_name"`
	Status         string `json:"status"`
	StartDate      string `json:"start_date,omitempty"`
	EndDate        string `json:"end_date,omitempty"`
	RemainingDays  *int   `json:"remaining_days"`
	DailyQuota     int    `json:"daily_quota"`
	MaxPerVisit    int    `json:"max_per_visit"`
	UsedToday      int    `json:"used_today"`
	RemainingToday int    `json:"remaining_today"`
}

// PlanInfo 套餐信息
type PlanInfo struct {
	PlanID       int64  `json:"plan_id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ProductName  string `json:"product_name"`
	ImageURL     string `json:"image_url"`
	Price        int64  `json:"price"`
	DurationDays int    `json:"duration_days"`
	DailyQuota   int    `json:"daily_quota"`
	MaxPerVisit  int    `json:"max_per_visit"`
	Owned        bool   `json:"owned"` // 当前客户已有该套餐的有效订阅
}
