package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/qs3c/cafe_sub_server/config"
	"github.com/qs3c/cafe_sub_server/internal/model"
	"github.com/qs3c/cafe_sub_server/internal/model/dto"
	"github.com/qs3c/cafe_sub_server/internal/pkg/apperr"
	"github.com/qs3c/cafe_sub_server/internal/pkg/clock"
	"github.com/qs3c/cafe_sub_server/internal/pkg/credential"
	"github.com/qs3c/cafe_sub_server/internal/pkg/pubsub"
	"github.com/qs3c/cafe_sub_server/internal/pkg/qrpayload"
	"github.com/qs3c/cafe_sub_server/internal/repository"
)

const defaultHistoryLimit = 20

type RedeemService struct {
	subRepo        *repository.SubscriptionRepository
	redemptionRepo *repository.RedemptionRepository
	customerRepo   *repository.CustomerRepository
	notifier       *NotificationService
	publisher      EventPublisher
	clock          clock.Clock
	loc            *time.Location
}

func NewRedeemService(
	subRepo *repository.SubscriptionRepository,
	redemptionRepo *repository.RedemptionRepository,
	customerRepo *repository.CustomerRepository,
	notifier *NotificationService,
	publisher EventPublisher,
	cfg *config.Config,
) *RedeemService {
	return &RedeemService{
		subRepo:        subRepo,
		redemptionRepo: redemptionRepo,
		customerRepo:   customerRepo,
		notifier:       notifier,
		publisher:      publisher,
		clock:          clock.NewSystem(),
		loc:            cfg.Redeem.Location(),
	}
}

// SetClock 替换时钟，测试用
func (s *RedeemService) SetClock(c clock.Clock) {
	s.clock = c
}

func requireStaff(session credential.Session) error {
	if session.Identity.IsAnonymous() {
		return apperr.ErrUnauthenticated
	}
	if !session.Identity.IsStaff() {
		return apperr.ErrStaffOnly
	}
	return nil
}

// Lookup 解析扫码内容，找出客户可用的订阅。
// 二维码带订阅 ID 时只返回该订阅；只有一个候选时自动选中
func (s *RedeemService) Lookup(session credential.Session, raw string) (*dto.LookupResult, error) {
	if err := requireStaff(session); err != nil {
		return nil, err
	}

	payload, err := qrpayload.Parse(raw)
	if err != nil {
		return nil, err
	}

	customer, err := s.customerRepo.GetByPhone(payload.Phone)
	if err != nil {
		if errors.Is(err, apperr.ErrCustomerNotFound) {
			return nil, apperr.ErrNoActiveSubscription
		}
		return nil, err
	}

	now := s.clock.Now()
	subs, err := s.subRepo.ListActiveByCustomer(customer.ID, now)
	if err != nil {
		return nil, err
	}

	if payload.SubscriptionID != nil {
		filtered := subs[:0]
		for _, sub := range subs {
			if sub.ID == *payload.SubscriptionID {
				filtered = append(filtered, sub)
			}
		}
		subs = filtered
	}
	if len(subs) == 0 {
		return nil, apperr.ErrNoActiveSubscription
	}

	day := clock.Day(now, s.loc)
	result := &dto.LookupResult{
		CustomerName: customer.Name,
		Candidates:   make([]*dto.SubscriptionSummary, 0, len(subs)),
	}
	for _, sub := range subs {
		used, err := s.redemptionRepo.UsageOn(sub.ID, day)
		if err != nil {
			return nil, err
		}
		result.Candidates = append(result.Candidates, summarize(sub, now, used))
	}

	if len(result.Candidates) == 1 {
		result.Selected = result.Candidates[0]
	} else {
		result.NeedsChoice = true
	}
	return result, nil
}

// Redeem 为订阅兑换 quantity 杯，数量和额度校验都在写入之前完成
func (s *RedeemService) Redeem(ctx context.Context, session credential.Session, subscriptionID int64, quantity int) (*dto.RedemptionResult, error) {
	if err := requireStaff(session); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, apperr.ErrInvalidQuantity
	}

	sub, err := s.subRepo.GetByID(subscriptionID)
	if err != nil {
		return nil, err
	}
	if quantity > sub.MaxPerVisit {
		return nil, apperr.ErrQuantityOverLimit
	}

	now := s.clock.Now()
	if !sub.UsableAt(now) {
		return nil, apperr.ErrSubscriptionNotActive
	}

	day := clock.Day(now, s.loc)
	count, err := s.redemptionRepo.IncrementRedemption(sub.ID, day, quantity, now, &model.RedemptionLog{
		StaffID: session.Identity.SubjectID,
	})
	if err != nil {
		return nil, err
	}

	result := &dto.RedemptionResult{
		Success:        true,
		Message:        "兑换成功",
		RedeemedAt:     formatTime(now),
		SubscriptionID: sub.ID,
		Quantity:       quantity,
		UsedToday:      count.Count,
		DailyQuota:     count.Quota,
		RemainingToday: remaining(count.Quota, count.Count),
	}
	if sub.Plan != nil {
		result.PlanName = sub.Plan.Name
		result.ProductName = sub.Plan.ProductName
	}

	log.Printf("Subscription %d redeemed %d by %s, used %d/%d on %s",
		sub.ID, quantity, session.Identity.SubjectID, count.Count, count.Quota, day)

	publish(ctx, s.publisher, &pubsub.Event{
		Type:           pubsub.EventRedeemed,
		CustomerID:     sub.CustomerID,
		SubscriptionID: sub.ID,
		PlanID:         sub.PlanID,
		Quantity:       quantity,
		UsedToday:      count.Count,
	})
	if s.notifier != nil {
		body := fmt.Sprintf("已兑换 %d 杯%s，今日剩余 %d 杯", quantity, result.ProductName, result.RemainingToday)
		if _, err := s.notifier.Notify(ctx, sub.CustomerID, "兑换成功", body, model.NotificationTypeRedeem); err != nil {
			log.Printf("Failed to notify customer %s: %v", sub.CustomerID, err)
		}
	}

	return result, nil
}

// History 订阅最近的兑换流水，最新的在前
func (s *RedeemService) History(session credential.Session, subscriptionID int64, limit int) (*dto.RedemptionHistory, error) {
	if err := requireStaff(session); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = defaultHistoryLimit
	}

	sub, err := s.subRepo.GetByID(subscriptionID)
	if err != nil {
		return nil, err
	}
	logs, err := s.redemptionRepo.ListLogs(sub.ID, limit)
	if err != nil {
		return nil, err
	}

	history := &dto.RedemptionHistory{
		SubscriptionID: sub.ID,
		Items:          make([]*dto.RedemptionLogInfo, 0, len(logs)),
	}
	if sub.Plan != nil {
		history.PlanName = sub.Plan.Name
		history.ProductName = sub.Plan.ProductName
	}
	for _, l := range logs {
		history.Items = append(history.Items, &dto.RedemptionLogInfo{
			ID:         l.ID,
			StaffID:    l.StaffID,
			Quantity:   l.Quantity,
			Day:        l.Day,
			RedeemedAt: formatTime(l.RedeemedAt),
		})
	}
	return history, nil
}

func summarize(sub *model.Subscription, now time.Time, used int) *dto.SubscriptionSummary {
	summary := &dto.SubscriptionSummary{
		SubscriptionID: sub.ID,
		Status:         sub.DisplayStatus(now),
		EndDate:        formatTimePtr(sub.EndDate),
		RemainingDays:  sub.RemainingDays(now),
		DailyQuota:     sub.DailyQuota,
		MaxPerVisit:    sub.MaxPerVisit,
		UsedToday:      used,
		RemainingToday: remaining(sub.DailyQuota, used),
	}
	if sub.Plan != nil {
		summary.PlanName = sub.Plan.Name
		summary.ProductName = sub.Plan.ProductName
	}
	return summary
}
