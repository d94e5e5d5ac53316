package service

import (
	"log"
	"time"

	"github.com/qs3c/cafe_sub_server/config"
	"github.com/qs3c/cafe_sub_server/internal/model"
	"github.com/qs3c/cafe_sub_server/internal/model/dto"
	"github.com/qs3c/cafe_sub_server/internal/pkg/apperr"
	"github.com/qs3c/cafe_sub_server/internal/pkg/clock"
	"github.com/qs3c/cafe_sub_server/internal/pkg/credential"
	"github.com/qs3c/cafe_sub_server/internal/repository"
)

type SubscriptionService struct {
	subRepo        *repository.SubscriptionRepository
	planRepo       *repository.PlanRepository
	redemptionRepo *repository.RedemptionRepository
	customerRepo   *repository.CustomerRepository
	clock          clock.Clock
	loc            *time.Location
}

func NewSubscriptionService(
	subRepo *repository.SubscriptionRepository,
	planRepo *repository.PlanRepository,
	redemptionRepo *repository.RedemptionRepository,
	customerRepo *repository.CustomerRepository,
	cfg *config.Config,
) *SubscriptionService {
	return &SubscriptionService{
		subRepo:        subRepo,
		planRepo:       planRepo,
		redemptionRepo: redemptionRepo,
		customerRepo:   customerRepo,
		clock:          clock.NewSystem(),
		loc:            cfg.Redeem.Location(),
	}
}

// SetClock 替换时钟，测试用
func (s *SubscriptionService) SetClock(c clock.Clock) {
	s.clock = c
}

// ListPlans 在售套餐，客户会话下标记已拥有有效订阅的套餐
func (s *SubscriptionService) ListPlans(session credential.Session) ([]*dto.PlanInfo, error) {
	plans, err := s.planRepo.ListActive()
	if err != nil {
		return nil, err
	}

	owned := s.ownedPlans(session)
	list := make([]*dto.PlanInfo, 0, len(plans))
	for _, p := range plans {
		info := planInfo(p)
		info.Owned = owned[p.ID]
		list = append(list, info)
	}
	return list, nil
}

// ownedPlans 查询失败时按未拥有处理，不影响套餐列表
func (s *SubscriptionService) ownedPlans(session credential.Session) map[int64]bool {
	customerID, ok := session.CustomerID()
	if !ok {
		return nil
	}
	subs, err := s.subRepo.ListActiveByCustomer(customerID, s.clock.Now())
	if err != nil {
		log.Printf("Failed to load active subscriptions for customer %s: %v", customerID, err)
		return nil
	}
	owned := make(map[int64]bool, len(subs))
	for _, sub := range subs {
		owned[sub.PlanID] = true
	}
	return owned
}

// GetPlan 套餐详情，下架的套餐视为不存在
func (s *SubscriptionService) GetPlan(id int64) (*dto.PlanInfo, error) {
	plan, err := s.planRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		return nil, apperr.ErrPlanUnavailable
	}
	return planInfo(plan), nil
}

// ListMine 当前客户的全部订阅，附带今日用量
func (s *SubscriptionService) ListMine(session credential.Session) ([]*dto.SubscriptionInfo, error) {
	customerID, ok := session.CustomerID()
	if !ok {
		return nil, apperr.ErrCustomerUnauthenticated
	}

	syncCustomer(s.customerRepo, session.Identity)

	subs, err := s.subRepo.ListByCustomer(customerID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	day := clock.Day(now, s.loc)
	list := make([]*dto.SubscriptionInfo, 0, len(subs))
	for _, sub := range subs {
		used := 0
		if sub.Status == model.SubscriptionActive {
			if used, err = s.redemptionRepo.UsageOn(sub.ID, day); err != nil {
				log.Printf("Failed to load usage for subscription %d: %v", sub.ID, err)
			}
		}
		list = append(list, subscriptionInfo(sub, now, used))
	}
	return list, nil
}

func planInfo(p *model.Plan) *dto.PlanInfo {
	return &dto.PlanInfo{
		PlanID:       p.ID,
		Name:         p.Name,
		Description:  p.Description,
		ProductName:  p.ProductName,
		ImageURL:     p.ImageURL,
		Price:        p.Price,
		DurationDays: p.DurationDays,
		DailyQuota:   p.DailyQuota,
		MaxPerVisit:  p.MaxPerVisit,
	}
}

func subscriptionInfo(sub *model.Subscription, now time.Time, used int) *dto.SubscriptionInfo {
	info := &dto.SubscriptionInfo{
		SubscriptionID: sub.ID,
		PlanID:         sub.PlanID,
		Status:         sub.DisplayStatus(now),
		StartDate:      formatTimePtr(sub.StartDate),
		EndDate:        formatTimePtr(sub.EndDate),
		RemainingDays:  sub.RemainingDays(now),
		DailyQuota:     sub.DailyQuota,
		MaxPerVisit:    sub.MaxPerVisit,
		UsedToday:      used,
		RemainingToday: remaining(sub.DailyQuota, used),
	}
	if sub.Plan != nil {
		info.PlanName = sub.Plan.Name
		info.ProductName = sub.Plan.ProductName
	}
	if !sub.UsableAt(now) {
		info.RemainingToday = 0
	}
	return info
}

func remaining(quota, used int) int {
	if used >= quota {
		return 0
	}
	return quota - used
}
