package qrpayload

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/qs3c/cafe_sub_server/internal/pkg/apperr"
)

// Payload 员工扫码得到的内容：手机号，以及可选的订阅 ID
type Payload struct {
	Phone          string `json:"phone"`
	SubscriptionID *int64 `json:"subscriptionId,omitempty"`
}

type rawPayload struct {
	Phone          string          `json:"phone"`
	SubscriptionID json.RawMessage `json:"subscriptionId"`
}

// Parse 解析二维码内容，支持纯手机号字符串和 JSON 对象两种格式
func Parse(raw string) (Payload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Payload{}, fmt.Errorf("%w: empty payload", apperr.ErrInvalidPayload)
	}

	if strings.HasPrefix(raw, "{") {
		return parseJSON(raw)
	}

	phone := NormalizePhone(raw)
	if !isPhone(phone) {
		return Payload{}, fmt.Errorf("%w: %q is not a phone number", apperr.ErrInvalidPayload, raw)
	}
	return Payload{Phone: phone}, nil
}

func parseJSON(raw string) (Payload, error) {
	var rp rawPayload
	if err := json.Unmarshal([]byte(raw), &rp); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", apperr.ErrInvalidPayload, err)
	}

	phone := NormalizePhone(rp.Phone)
	if !isPhone(phone) {
		return Payload{}, fmt.Errorf("%w: missing phone", apperr.ErrInvalidPayload)
	}

	p := Payload{Phone: phone}
	if len(rp.SubscriptionID) > 0 && string(rp.SubscriptionID) != "null" {
		id, err := parseID(rp.SubscriptionID)
		if err != nil {
			return Payload{}, fmt.Errorf("%w: subscriptionId: %v", apperr.ErrInvalidPayload, err)
		}
		p.SubscriptionID = &id
	}
	return p, nil
}

// parseID 兼容数字和数字字符串
func parseID(raw json.RawMessage) (int64, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return id, nil
}

// NormalizePhone 去掉空格、横线、点和括号，+84 前缀改写为 0
func NormalizePhone(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "").Replace(s)
	if strings.HasPrefix(s, "+84") {
		s = "0" + strings.TrimPrefix(s, "+84")
	}
	return s
}

func isPhone(s string) bool {
	if len(s) < 8 || len(s) > 15 {
		return false
	}
	for i, r := range s {
		if r == '+' && i == 0 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
