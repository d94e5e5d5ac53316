package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/cafe_sub_server/config"
	"github.com/qs3c/cafe_sub_server/internal/pkg/clock"
	"github.com/qs3c/cafe_sub_server/internal/pkg/credential"
	"github.com/qs3c/cafe_sub_server/internal/pkg/pubsub"
	"github.com/qs3c/cafe_sub_server/internal/repository"
	"github.com/qs3c/cafe_sub_server/internal/testutil"
)

// recordingPublisher 记录发布过的事件
type recordingPublisher struct {
	mu     sync.Mutex
	events []*pubsub.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt *pubsub.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) ofType(typ string) []*pubsub.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*pubsub.Event
	for _, e := range p.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func testConfig() *config.Config {
	return &config.Config{
		Payment: config.PaymentConfig{
			BankName:      "MB",
			BankAccount:   "0123456789",
			AccountHolder: "CAFE SUB",
			QRURLTemplate: "https://img.vietqr.io/image/{bank}-{account}-compact.png?amount={amount}&addInfo={reference}",
			OrderTTL:      15 * time.Minute,
		},
		Redeem: config.RedeemConfig{Timezone: "UTC"},
	}
}

func customerSession(id, phone string) credential.Session {
	return credential.Session{Identity: credential.Identity{
		SubjectID:   id,
		Role:        credential.RoleCustomer,
		DisplayName: "Khách " + id,
		Phone:       phone,
	}}
}

func staffSession(id string) credential.Session {
	return credential.Session{Identity: credential.Identity{
		SubjectID: id,
		Role:      credential.RoleBarista,
	}}
}

type serviceFixture struct {
	db        *gorm.DB
	clock     *clock.Manual
	publisher *recordingPublisher
	orders    *OrderService
	subs      *SubscriptionService
	redeem    *RedeemService
	notifier  *NotificationService
}

func setupServices(t *testing.T) (*serviceFixture, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := testConfig()

	orderRepo := repository.NewOrderRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	planRepo := repository.NewPlanRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	callbackRepo := repository.NewCallbackRepository(db)
	redemptionRepo := repository.NewRedemptionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	f := &serviceFixture{
		db:        db,
		clock:     clock.NewManual(time.Now()),
		publisher: &recordingPublisher{},
	}
	f.notifier = NewNotificationService(notificationRepo, f.publisher)
	f.orders = NewOrderService(orderRepo, subRepo, planRepo, customerRepo, callbackRepo, f.notifier, f.publisher, cfg)
	f.orders.SetClock(f.clock)
	f.subs = NewSubscriptionService(subRepo, planRepo, redemptionRepo, customerRepo, cfg)
	f.subs.SetClock(f.clock)
	f.redeem = NewRedeemService(subRepo, redemptionRepo, customerRepo, f.notifier, f.publisher, cfg)
	f.redeem.SetClock(f.clock)

	return f, func() { testutil.CleanupTestDB(t, db) }
}
