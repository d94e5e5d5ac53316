package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/cafe_sub_server/config"
	"github.com/qs3c/cafe_sub_server/internal/model"
	"github.com/qs3c/cafe_sub_server/internal/model/dto"
	"github.com/qs3c/cafe_sub_server/internal/pkg/apperr"
	"github.com/qs3c/cafe_sub_server/internal/pkg/clock"
	"github.com/qs3c/cafe_sub_server/internal/pkg/credential"
	"github.com/qs3c/cafe_sub_server/internal/pkg/idgen"
	"github.com/qs3c/cafe_sub_server/internal/pkg/pubsub"
	"github.com/qs3c/cafe_sub_server/internal/repository"
)

const expireBatchSize = 200

// 回调处理结果
const (
	callbackResultSettled      = "settled"
	callbackResultAlreadyDone  = "already settled"
	callbackResultIgnored      = "ignored: outgoing transfer"
	callbackResultNoReference  = "missing reference"
	callbackResultNoOrder      = "order not found"
	callbackResultUnderpaid    = "amount mismatch"
	callbackResultOrderExpired = "order expired"
	callbackResultNotActivated = "subscription cancelled"
)

type OrderService struct {
	orderRepo    *repository.OrderRepository
	subRepo      *repository.SubscriptionRepository
	planRepo     *repository.PlanRepository
	customerRepo *repository.CustomerRepository
	callbackRepo *repository.CallbackRepository
	notifier     *NotificationService
	publisher    EventPublisher
	clock        clock.Clock
	cfg          *config.Config
}

func NewOrderService(
	orderRepo *repository.OrderRepository,
	subRepo *repository.SubscriptionRepository,
	planRepo *repository.PlanRepository,
	customerRepo *repository.CustomerRepository,
	callbackRepo *repository.CallbackRepository,
	notifier *NotificationService,
	publisher EventPublisher,
	cfg *config.Config,
) *OrderService {
	return &OrderService{
		orderRepo:    orderRepo,
		subRepo:      subRepo,
		planRepo:     planRepo,
		customerRepo: customerRepo,
		callbackRepo: callbackRepo,
		notifier:     notifier,
		publisher:    publisher,
		clock:        clock.NewSystem(),
		cfg:          cfg,
	}
}

// SetClock 替换时钟，测试用
func (s *OrderService) SetClock(c clock.Clock) {
	s.clock = c
}

// CreateOrder 创建订单和待付款订阅，返回转账信息以及当前激活数作为轮询基线
func (s *OrderService) CreateOrder(ctx context.Context, session credential.Session, planID int64) (*dto.OrderResult, error) {
	customerID, ok := session.CustomerID()
	if !ok {
		return nil, apperr.ErrCustomerUnauthenticated
	}

	plan, err := s.planRepo.GetByID(planID)
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		return nil, apperr.ErrPlanUnavailable
	}

	syncCustomer(s.customerRepo, session.Identity)

	baseline, err := s.subRepo.CountActive(customerID, plan.ID)
	if err != nil {
		return nil, err
	}

	reference, err := idgen.TransferReference(plan.ID, customerID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	payment := s.cfg.Payment
	order := &model.Order{
		PlanID:            plan.ID,
		CustomerID:        customerID,
		Amount:            plan.Price,
		TransferReference: reference,
		State:             model.OrderCreated,
		ExpiresAt:         now.Add(payment.OrderTTL),
	}
	if payment.BankAccount != "" {
		order.BankName = payment.BankName
		order.BankAccount = payment.BankAccount
		order.AccountHolder = payment.AccountHolder
		order.State = model.OrderAwaitingSettlement
	}

	sub := &model.Subscription{
		Status:      model.SubscriptionPendingPayment,
		DailyQuota:  plan.DailyQuota,
		MaxPerVisit: plan.MaxPerVisit,
	}
	if err := s.orderRepo.CreateWithSubscription(order, sub); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	log.Printf("Order %d created for customer %s, plan %d, reference %s", order.ID, customerID, plan.ID, reference)

	return &dto.OrderResult{
		OrderID:             order.ID,
		SubscriptionID:      sub.ID,
		PlanID:              plan.ID,
		Amount:              order.Amount,
		TransferReference:   reference,
		BankName:            order.BankName,
		BankAccount:         order.BankAccount,
		AccountHolder:       order.AccountHolder,
		QRURL:               buildQRURL(payment.QRURLTemplate, order),
		ExpiresAt:           formatTime(order.ExpiresAt),
		BaselineActiveCount: baseline,
	}, nil
}

// PollSettlement 只读查询：激活数超过基线即视为到账。
// 同一套餐并发购买时任一笔到账都会让两边的轮询成立
func (s *OrderService) PollSettlement(session credential.Session, planID, baseline int64) (*dto.SettlementStatus, error) {
	customerID, ok := session.CustomerID()
	if !ok {
		return nil, apperr.ErrCustomerUnauthenticated
	}

	count, err := s.subRepo.CountActive(customerID, planID)
	if err != nil {
		return nil, err
	}

	return &dto.SettlementStatus{
		PlanID:      planID,
		Baseline:    baseline,
		ActiveCount: count,
		Settled:     count > baseline,
	}, nil
}

// GetOrder 只能查看自己的订单
func (s *OrderService) GetOrder(session credential.Session, orderID int64) (*dto.OrderInfo, error) {
	customerID, ok := session.CustomerID()
	if !ok {
		return nil, apperr.ErrCustomerUnauthenticated
	}

	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, apperr.ErrOrderNotFound
	}

	info := &dto.OrderInfo{
		OrderID:           order.ID,
		PlanID:            order.PlanID,
		Amount:            order.Amount,
		TransferReference: order.TransferReference,
		State:             order.State,
		ExpiresAt:         formatTime(order.ExpiresAt),
		SettledAt:         formatTimePtr(order.SettledAt),
	}
	if order.Subscription != nil {
		info.SubscriptionID = order.Subscription.ID
		info.SubscriptionStatus = order.Subscription.DisplayStatus(s.clock.Now())
	}
	return info, nil
}

// RecordCallback 保存回调原文，按网关交易 ID 去重
func (s *OrderService) RecordCallback(req *dto.PaymentCallbackRequest, payload []byte) (*model.PaymentCallback, bool, error) {
	externalID := ""
	if req.ID != 0 {
		externalID = strconv.FormatInt(req.ID, 10)
	} else if req.ReferenceCode != "" {
		externalID = req.Gateway + ":" + req.ReferenceCode
	} else {
		externalID = idgen.NewUUID()
	}

	content := req.Content
	if req.Description != "" && !strings.Contains(content, req.Description) {
		content = strings.TrimSpace(content + " " + req.Description)
	}

	cb := &model.PaymentCallback{
		ExternalID:      externalID,
		Gateway:         req.Gateway,
		TransactionDate: req.TransactionDate,
		AccountNumber:   req.AccountNumber,
		Code:            req.Code,
		Content:         content,
		TransferType:    req.TransferType,
		TransferAmount:  req.TransferAmount,
		ReferenceCode:   req.ReferenceCode,
		Payload:         payload,
	}
	return s.callbackRepo.Save(cb)
}

// SettlePayment 保存并立即处理回调，未启用队列时使用
func (s *OrderService) SettlePayment(ctx context.Context, req *dto.PaymentCallbackRequest, payload []byte) (*dto.SettleResult, error) {
	cb, _, err := s.RecordCallback(req, payload)
	if err != nil {
		return nil, err
	}
	return s.SettleCallback(ctx, cb)
}

// ProcessCallback 按 ID 处理已保存的回调，供 worker 使用
func (s *OrderService) ProcessCallback(ctx context.Context, callbackID int64) (*dto.SettleResult, error) {
	cb, err := s.callbackRepo.GetByID(callbackID)
	if err != nil {
		return nil, err
	}
	return s.SettleCallback(ctx, cb)
}

// SettleCallback 按转账备注中的订单号对账。到账后在一个事务中完成订单并激活订阅，
// 重复回调不会再次激活。业务性失败会把回调标记为已处理，数据库错误保留以便重试
func (s *OrderService) SettleCallback(ctx context.Context, cb *model.PaymentCallback) (*dto.SettleResult, error) {
	result := &dto.SettleResult{CallbackID: cb.ID}

	if cb.Processed {
		if cb.OrderID != nil {
			result.OrderID = *cb.OrderID
		}
		result.Message = cb.Result
		return result, nil
	}

	if cb.TransferType != "" && !strings.EqualFold(cb.TransferType, "in") {
		return s.finishCallback(cb, nil, result, callbackResultIgnored, nil)
	}

	reference := idgen.FindTransferReference(cb.Content)
	if reference == "" {
		reference = idgen.FindTransferReference(cb.Code)
	}
	if reference == "" {
		return s.finishCallback(cb, nil, result, callbackResultNoReference, apperr.ErrMissingReference)
	}

	order, err := s.orderRepo.GetByReference(reference)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return s.finishCallback(cb, nil, result, callbackResultNoOrder, apperr.ErrOrderNotFound)
		}
		return nil, err
	}
	result.OrderID = order.ID

	if order.State == model.OrderSettled {
		if order.Subscription != nil {
			result.SubscriptionID = order.Subscription.ID
		}
		return s.finishCallback(cb, &order.ID, result, callbackResultAlreadyDone, nil)
	}
	if cb.TransferAmount < order.Amount {
		return s.finishCallback(cb, &order.ID, result, callbackResultUnderpaid, apperr.ErrAmountMismatch)
	}

	now := s.clock.Now()
	if order.State == model.OrderExpired || now.After(order.ExpiresAt) {
		return s.finishCallback(cb, &order.ID, result, callbackResultOrderExpired, apperr.ErrOrderExpired)
	}

	var (
		sub       *model.Subscription
		activated bool
	)
	err = s.orderRepo.Transaction(func(tx *gorm.DB) error {
		settled, err := s.orderRepo.WithTx(tx).MarkSettled(order.ID, now)
		if err != nil {
			return err
		}
		if !settled {
			current, err := s.orderRepo.WithTx(tx).GetByID(order.ID)
			if err != nil {
				return err
			}
			if current.State != model.OrderSettled {
				return apperr.ErrOrderExpired
			}
		}

		sub, activated, err = s.subRepo.WithTx(tx).Activate(order.ID, now)
		if err != nil {
			return err
		}

		return s.callbackRepo.WithTx(tx).MarkProcessed(cb.ID, &order.ID, callbackResultSettled)
	})
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrOrderExpired):
			return s.finishCallback(cb, &order.ID, result, callbackResultOrderExpired, err)
		case errors.Is(err, apperr.ErrSubscriptionNotActive):
			return s.finishCallback(cb, &order.ID, result, callbackResultNotActivated, err)
		}
		return nil, err
	}

	result.SubscriptionID = sub.ID
	result.Activated = activated
	result.Message = callbackResultSettled
	if !activated {
		result.Message = callbackResultAlreadyDone
		return result, nil
	}

	log.Printf("Order %d settled by callback %s, subscription %d activated", order.ID, cb.ExternalID, sub.ID)
	s.announceActivation(ctx, order, sub)
	return result, nil
}

// finishCallback 记录处理结果，业务错误原样返回
func (s *OrderService) finishCallback(cb *model.PaymentCallback, orderID *int64, result *dto.SettleResult, outcome string, cause error) (*dto.SettleResult, error) {
	if err := s.callbackRepo.MarkProcessed(cb.ID, orderID, outcome); err != nil {
		return nil, err
	}
	result.Message = outcome
	if cause != nil {
		log.Printf("Callback %s rejected: %s", cb.ExternalID, outcome)
		return result, cause
	}
	return result, nil
}

func (s *OrderService) announceActivation(ctx context.Context, order *model.Order, sub *model.Subscription) {
	planName := ""
	if sub.Plan != nil {
		planName = sub.Plan.Name
	}

	publish(ctx, s.publisher, &pubsub.Event{
		Type:           pubsub.EventSubscriptionActivated,
		CustomerID:     order.CustomerID,
		SubscriptionID: sub.ID,
		OrderID:        order.ID,
		PlanID:         order.PlanID,
		Title:          planName,
	})

	if s.notifier == nil {
		return
	}
	body := fmt.Sprintf("您的套餐「%s」已激活", planName)
	if sub.EndDate != nil {
		body += "，有效期至 " + sub.EndDate.In(s.cfg.Redeem.Location()).Format("2006-01-02")
	}
	if _, err := s.notifier.Notify(ctx, order.CustomerID, "支付成功", body, model.NotificationTypePayment); err != nil {
		log.Printf("Failed to notify customer %s: %v", order.CustomerID, err)
	}
}

// ExpireStaleOrders 把超时未到账的订单标记为过期并取消绑定的订阅，已到账的订单不受影响
func (s *OrderService) ExpireStaleOrders(now time.Time) (int, error) {
	total := 0
	for {
		ids, err := s.orderRepo.ListStale(now, expireBatchSize)
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			return total, nil
		}

		var expired int64
		err = s.orderRepo.Transaction(func(tx *gorm.DB) error {
			n, err := s.orderRepo.WithTx(tx).MarkExpired(ids, now)
			if err != nil {
				return err
			}
			if _, err := s.subRepo.WithTx(tx).CancelPendingByOrders(ids, now); err != nil {
				return err
			}
			expired = n
			return nil
		})
		if err != nil {
			return total, err
		}
		total += int(expired)

		if len(ids) < expireBatchSize {
			return total, nil
		}
	}
}

// CountStaleOrders 统计可过期的订单，用于 dry-run
func (s *OrderService) CountStaleOrders(now time.Time) (int, error) {
	ids, err := s.orderRepo.ListStale(now, 10000)
	return len(ids), err
}

// buildQRURL 按模板生成外部二维码地址
func buildQRURL(template string, order *model.Order) string {
	if template == "" {
		return ""
	}
	return strings.NewReplacer(
		"{bank}", url.QueryEscape(order.BankName),
		"{account}", url.QueryEscape(order.BankAccount),
		"{amount}", strconv.FormatInt(order.Amount, 10),
		"{reference}", url.QueryEscape(order.TransferReference),
	).Replace(template)
}

// RetryPendingCallbacks 重新处理之前因数据库错误未完成的回调
func (s *OrderService) RetryPendingCallbacks(ctx context.Context, limit int) (int, error) {
	pending, err := s.callbackRepo.ListUnprocessed(limit)
	if err != nil {
		return 0, err
	}

	done := 0
	for _, cb := range pending {
		if _, err := s.SettleCallback(ctx, cb); apperr.IsRetryable(err) {
			log.Printf("Callback %s still pending: %v", cb.ExternalID, err)
			continue
		}
		done++
	}
	return done, nil
}
