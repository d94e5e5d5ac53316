package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/qs3c/cafe_sub_server/internal/model/dto"
)

// Scan 提交扫到的二维码原文
func (c *Client) Scan(ctx context.Context, payload string) (*dto.LookupResult, error) {
	var result dto.LookupResult
	if err := c.do(ctx, http.MethodPost, "/redeems/scan", nil, dto.ScanRequest{Payload: payload}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Redeem 兑换指定订阅
func (c *Client) Redeem(ctx context.Context, subscriptionID int64, quantity int) (*dto.RedemptionResult, error) {
	req := dto.RedeemRequest{SubscriptionID: subscriptionID, Quantity: quantity}

	var result dto.RedemptionResult
	if err := c.do(ctx, http.MethodPost, "/redeems", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// History 订阅的兑换流水
func (c *Client) History(ctx context.Context, subscriptionID int64, limit int) (*dto.RedemptionHistory, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var history dto.RedemptionHistory
	path := "/redeems/" + strconv.FormatInt(subscriptionID, 10) + "/history"
	if err := c.do(ctx, http.MethodGet, path, q, nil, &history); err != nil {
		return nil, err
	}
	return &history, nil
}

// Chooser 多个候选订阅时由调用方挑选，返回 nil 表示放弃
type Chooser func(candidates []*dto.SubscriptionSummary) *dto.SubscriptionSummary

// ScanAndRedeem 扫码后兑换：唯一候选直接兑换，多个候选交给 choose
func (c *Client) ScanAndRedeem(ctx context.Context, payload string, quantity int, choose Chooser) (*dto.RedemptionResult, error) {
	lookup, err := c.Scan(ctx, payload)
	if err != nil {
		return nil, err
	}

	selected := lookup.Selected
	if lookup.NeedsChoice {
		if choose == nil {
			return nil, ErrChoiceRequired
		}
		if selected = choose(lookup.Candidates); selected == nil {
			return nil, ErrChoiceRequired
		}
	}
	if selected == nil {
		return nil, ErrChoiceRequired
	}

	return c.Redeem(ctx, selected.SubscriptionID, quantity)
}
