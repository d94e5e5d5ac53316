package client

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/qs3c/cafe_sub_server/internal/model/dto"
	"github.com/qs3c/cafe_sub_server/internal/pkg/apperr"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultMaxWait      = 15 * time.Minute
)

var (
	ErrSettlementTimeout = apperr.New(apperr.ErrConflict, "等待到账超时")
	ErrChoiceRequired    = apperr.New(apperr.ErrValidation, "存在多个可兑换订阅，需要选择")
)

// SettlementPoller 下单后轮询到账状态，直到有效订阅数超过下单时的基线
type SettlementPoller struct {
	client    *Client
	planID    int64
	baseline  int64
	interval  time.Duration
	maxWait   time.Duration
	onSettled func(*dto.SettlementStatus)
	fired     sync.Once
}

// PollerOption 轮询选项
type PollerOption func(*SettlementPoller)

// WithInterval 轮询间隔
func WithInterval(d time.Duration) PollerOption {
	return func(p *SettlementPoller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithMaxWait 最长等待时间，缺省为订单剩余有效期
func WithMaxWait(d time.Duration) PollerOption {
	return func(p *SettlementPoller) {
		if d > 0 {
			p.maxWait = d
		}
	}
}

// OnSettled 到账回调，只触发一次
func OnSettled(fn func(*dto.SettlementStatus)) PollerOption {
	return func(p *SettlementPoller) {
		p.onSettled = fn
	}
}

// NewSettlementPoller 以下单响应中的基线创建轮询器
func NewSettlementPoller(c *Client, order *dto.OrderResult, opts ...PollerOption) *SettlementPoller {
	p := &SettlementPoller{
		client:   c,
		planID:   order.PlanID,
		baseline: order.BaselineActiveCount,
		interval: defaultPollInterval,
		maxWait:  untilExpiry(order.ExpiresAt),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func untilExpiry(expiresAt string) time.Duration {
	t, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		return defaultMaxWait
	}
	if d := time.Until(t); d > 0 {
		return d
	}
	return defaultMaxWait
}

// Baseline 下单时的有效订阅数
func (p *SettlementPoller) Baseline() int64 {
	return p.baseline
}

// Run 阻塞直到到账、ctx 取消或超过最长等待时间
func (p *SettlementPoller) Run(ctx context.Context) (*dto.SettlementStatus, error) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	deadline := time.NewTimer(p.maxWait)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, ErrSettlementTimeout
		case <-ticker.C:
			status, err := p.client.Settlement(ctx, p.planID, p.baseline)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				if apperr.IsTransient(err) {
					log.Printf("Settlement poll for plan %d failed, retrying: %v", p.planID, err)
					continue
				}
				return nil, err
			}
			if status.Settled {
				p.fired.Do(func() {
					if p.onSettled != nil {
						p.onSettled(status)
					}
				})
				return status, nil
			}
		}
	}
}
