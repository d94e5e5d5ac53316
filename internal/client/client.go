package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/qs3c/cafe_sub_server/config"
	"github.com/qs3c/cafe_sub_server/internal/model/dto"
	"github.com/qs3c/cafe_sub_server/internal/pkg/apperr"
	"github.com/qs3c/cafe_sub_server/internal/pkg/response"
	"github.com/qs3c/cafe_sub_server/internal/pkg/retry"
)

// Client 订阅服务 API 客户端
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	policy     retry.Policy
}

// Option 客户端选项
type Option func(*Client)

// WithToken 设置 bearer 凭证
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient 替换底层 http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRetryPolicy 替换重试策略
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

func New(cfg config.ClientConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	policy := retry.Default()
	if cfg.MaxRetries > 0 {
		policy.MaxAttempts = cfg.MaxRetries
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		policy:     policy,
	}
	for _, opt := range opts {
		opt(c)
	}
	// 只有临时错误值得重试
	c.policy.Retryable = apperr.IsTransient
	return c
}

// APIError 服务端返回的业务错误，errors.Is 可匹配对应的 apperr 分类
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case response.CodeQuotaExceeded:
		return apperr.ErrQuotaExceeded
	case response.CodeNoActivePlan:
		return apperr.ErrNoActiveSubscription
	case response.CodeParamError:
		return apperr.ErrValidation
	case response.CodeAuthFailed:
		return apperr.ErrUnauthorized
	case response.CodePermissionDenied:
		return apperr.ErrForbidden
	case response.CodeResourceNotFound:
		return apperr.ErrNotFound
	case response.CodeConflict, response.CodeDuplicateAction:
		return apperr.ErrConflict
	case response.CodeDecodeError:
		return apperr.ErrDecode
	case response.CodeServerError, response.CodeServiceUnavailable:
		return apperr.ErrTransient
	}
	return nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	return c.policy.Do(ctx, func(ctx context.Context) error {
		return c.once(ctx, method, path, query, payload, out)
	})
}

func (c *Client) once(ctx context.Context, method, path string, query url.Values, payload []byte, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperr.Wrap(apperr.ErrTransient, err, method+" "+path)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return apperr.Wrap(apperr.ErrTransient, errors.New(resp.Status), method+" "+path)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return apperr.Wrap(apperr.ErrDecode, err, "failed to decode response")
	}
	if env.Code != response.CodeSuccess {
		return &APIError{Code: env.Code, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apperr.Wrap(apperr.ErrDecode, err, "failed to decode response data")
	}
	return nil
}

// Plans 在售套餐
func (c *Client) Plans(ctx context.Context) ([]*dto.PlanInfo, error) {
	var plans []*dto.PlanInfo
	if err := c.do(ctx, http.MethodGet, "/plans", nil, nil, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// CreateOrder 下单，返回转账信息和轮询基线
func (c *Client) CreateOrder(ctx context.Context, planID int64) (*dto.OrderResult, error) {
	var result dto.OrderResult
	if err := c.do(ctx, http.MethodPost, "/subscriptions", nil, dto.CreateOrderRequest{PlanID: planID}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Settlement 查询到账状态
func (c *Client) Settlement(ctx context.Context, planID, baseline int64) (*dto.SettlementStatus, error) {
	q := url.Values{}
	q.Set("plan_id", strconv.FormatInt(planID, 10))
	q.Set("baseline", strconv.FormatInt(baseline, 10))

	var status dto.SettlementStatus
	if err := c.do(ctx, http.MethodGet, "/subscriptions/settlement", q, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// MySubscriptions 我的订阅
func (c *Client) MySubscriptions(ctx context.Context) ([]*dto.SubscriptionInfo, error) {
	var list []*dto.SubscriptionInfo
	if err := c.do(ctx, http.MethodGet, "/subscriptions/my-subscriptions", nil, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Notifications 我的通知
func (c *Client) Notifications(ctx context.Context, limit int) (*dto.NotificationList, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var list dto.NotificationList
	if err := c.do(ctx, http.MethodGet, "/notifications", q, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// MarkRead 标记通知已读
func (c *Client) MarkRead(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPut, "/notifications/"+strconv.FormatInt(id, 10)+"/read", nil, nil, nil)
}
