package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/cafe_sub_server/internal/model"
	"github.com/qs3c/cafe_sub_server/internal/pkg/idgen"
)

var seq int64

func nextSeq() int64 {
	return atomic.AddInt64(&seq, 1)
}

// TestPlan 创建测试套餐
func TestPlan(t *testing.T, db *gorm.DB, opts ...func(*model.Plan)) *model.Plan {
	t.Helper()

	n := nextSeq()
	plan := &model.Plan{
		ID:           n,
		Name:         fmt.Sprintf("Test Plan %d", n),
		Description:  "30 ngày cà phê",
		ProductName:  "Cà phê sữa",
		Price:        299000,
		DurationDays: 30,
		DailyQuota:   2,
		MaxPerVisit:  2,
		Active:       true,
	}

	for _, opt := range opts {
		opt(plan)
	}

	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("Failed to create test plan: %v", err)
	}

	return plan
}

// WithQuota 设置每日额度和单次上限
func WithQuota(daily, perVisit int) func(*model.Plan) {
	return func(p *model.Plan) {
		p.DailyQuota = daily
		p.MaxPerVisit = perVisit
	}
}

// WithPrice 设置价格
func WithPrice(price int64) func(*model.Plan) {
	return func(p *model.Plan) {
		p.Price = price
	}
}

// WithInactive 下架套餐
func WithInactive() func(*model.Plan) {
	return func(p *model.Plan) {
		p.Active = false
	}
}

// TestCustomer 创建测试客户
func TestCustomer(t *testing.T, db *gorm.DB, phone string) *model.Customer {
	t.Helper()

	n := nextSeq()
	customer := &model.Customer{
		ID:    fmt.Sprintf("cust-%d", n),
		Name:  fmt.Sprintf("Customer %d", n),
		Phone: phone,
	}

	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("Failed to create test customer: %v", err)
	}

	return customer
}

// TestOrder 创建测试订单（待到账）
func TestOrder(t *testing.T, db *gorm.DB, customerID string, plan *model.Plan, opts ...func(*model.Order)) *model.Order {
	t.Helper()

	ref, err := idgen.TransferReference(plan.ID, customerID)
	if err != nil {
		t.Fatalf("Failed to generate transfer reference: %v", err)
	}

	order := &model.Order{
		PlanID:            plan.ID,
		CustomerID:        customerID,
		Amount:            plan.Price,
		TransferReference: ref,
		BankName:          "MB",
		BankAccount:       "0123456789",
		AccountHolder:     "CAFE",
		State:             model.OrderAwaitingSettlement,
		ExpiresAt:         time.Now().Add(15 * time.Minute),
	}

	for _, opt := range opts {
		opt(order)
	}

	if err := db.Create(order).Error; err != nil {
		t.Fatalf("Failed to create test order: %v", err)
	}

	return order
}

// WithOrderState 设置订单状态
func WithOrderState(state string) func(*model.Order) {
	return func(o *model.Order) {
		o.State = state
	}
}

// WithExpiresAt 设置订单过期时间
func WithExpiresAt(at time.Time) func(*model.Order) {
	return func(o *model.Order) {
		o.ExpiresAt = at
	}
}

// TestSubscription 创建测试订阅，默认已激活且 30 天后结束
func TestSubscription(t *testing.T, db *gorm.DB, customerID string, plan *model.Plan, opts ...func(*model.Subscription)) *model.Subscription {
	t.Helper()

	order := TestOrder(t, db, customerID, plan, WithOrderState(model.OrderSettled))

	start := time.Now().Add(-time.Hour)
	end := start.AddDate(0, 0, plan.DurationDays)
	sub := &model.Subscription{
		CustomerID:  customerID,
		PlanID:      plan.ID,
		OrderID:     order.ID,
		Status:      model.SubscriptionActive,
		StartDate:   &start,
		EndDate:     &end,
		DailyQuota:  plan.DailyQuota,
		MaxPerVisit: plan.MaxPerVisit,
	}

	for _, opt := range opts {
		opt(sub)
	}

	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}

	return sub
}

// WithPending 未付款的订阅
func WithPending() func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.Status = model.SubscriptionPendingPayment
		s.StartDate = nil
		s.EndDate = nil
	}
}

// WithEndDate 设置结束日期
func WithEndDate(end time.Time) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.EndDate = &end
	}
}

// WithSubStatus 设置订阅状态
func WithSubStatus(status string) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.Status = status
	}
}
