package service

import (
	"context"
	"log"
	"time"

	"github.com/qs3c/cafe_sub_server/internal/model"
	"github.com/qs3c/cafe_sub_server/internal/pkg/credential"
	"github.com/qs3c/cafe_sub_server/internal/pkg/pubsub"
	"github.com/qs3c/cafe_sub_server/internal/pkg/qrpayload"
	"github.com/qs3c/cafe_sub_server/internal/repository"
)

// EventPublisher 生命周期事件的发布方，Redis 或进程内转发
type EventPublisher interface {
	Publish(ctx context.Context, evt *pubsub.Event) error
}

// publish 事件发布失败只记日志，不影响已提交的业务结果
func publish(ctx context.Context, p EventPublisher, evt *pubsub.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, evt); err != nil {
		log.Printf("Failed to publish %s event for customer %s: %v", evt.Type, evt.CustomerID, err)
	}
}

// syncCustomer 用令牌声明更新本地客户投影，失败只记日志
func syncCustomer(repo *repository.CustomerRepository, id credential.Identity) {
	if repo == nil || id.IsAnonymous() {
		return
	}
	customer := &model.Customer{
		ID:    id.SubjectID,
		Name:  id.DisplayName,
		Phone: qrpayload.NormalizePhone(id.Phone),
	}
	if err := repo.Upsert(customer); err != nil {
		log.Printf("Failed to sync customer %s: %v", id.SubjectID, err)
	}
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
