package dto

// ScanRequest 扫码请求，payload 为二维码原文
type ScanRequest struct {
	Payload string `json:"payload" binding:"required"`
}

// SubscriptionSummary 扫码后展示给店员的订阅摘要
type SubscriptionSummary struct {
	SubscriptionID int64  `json:"subscription_id"`
	PlanName       string `json:"plan_name"`
	ProductName    string `json:"product_name"`
	Status         string `json:"status"`
	EndDate        string `json:"end_date,omitempty"`
	RemainingDays  *int   `json:"remaining_days"`
	DailyQuota     int    `json:"daily_quota"`
	MaxPerVisit    int    `json:"max_per_visit"`
	UsedToday      int    `json:"used_today"`
	RemainingToday int    `json:"remaining_today"`
}

// LookupResult 扫码结果，多个候选时需要店员选择
type LookupResult struct {
	CustomerName string                 `json:"customer_name,omitempty"`
	Candidates   []*SubscriptionSummary `json:"candidates"`
	Selected     *SubscriptionSummary   `json:"selected,omitempty"`
	NeedsChoice  bool                   `json:"needs_choice"`
}

// RedeemRequest 兑换请求
type RedeemRequest struct {
	SubscriptionID int64 `json:"subscription_id" binding:"required,min=1"`
	Quantity       int   `json:"quantity"`
}

// RedemptionResult 兑换结果
type RedemptionResult struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	RedeemedAt     string `json:"redeemed_at"`
	SubscriptionID int64  `json:"subscription_id"`
	PlanName       string `json:"plan_name"`
	ProductName    string `json:"product_name"`
	Quantity       int    `json:"quantity"`
	UsedToday      int    `json:"used_today"`
	DailyQuota     int    `json:"daily_quota"`
	RemainingToday int    `json:"remaining_today"`
}

// RedemptionLogInfo 一条兑换流水
type RedemptionLogInfo struct {
	ID         int64  `json:"id"`
	StaffID    string `json:"staff_id"`
	Quantity   int    `json:"quantity"`
	Day        string `json:"day"`
	RedeemedAt string `json:"redeemed_at"`
}

// RedemptionHistory 订阅的兑换记录
type RedemptionHistory struct {
	SubscriptionID int64                `json:"subscription_id"`
	PlanName       string               `json:"plan_name"`
	ProductName    string               `json:"product_name"`
	Items          []*RedemptionLogInfo `json:"items"`
}
