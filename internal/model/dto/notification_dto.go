package dto

// NotificationInfo 通知
type NotificationInfo struct {
	NotificationID int64  `json:"notification_id"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	Type           string `json:"type"`
	Status         string `json:"status"`
	CreatedAt      string `json:"created_at"`
}

// NotificationList 通知列表
type NotificationList struct {
	Items  []*NotificationInfo `json:"items"`
	Unread int64               `json:"unread"`
}
