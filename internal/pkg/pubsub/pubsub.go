package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelSubscriptionEvents = "subscription_events"
)

// 事件类型
const (
	EventSubscriptionActivated = "subscription_activated"
	EventNotificationCreated   = "notification_created"
	EventRedeemed              = "redeemed"
)

// Event 订阅生命周期事件，按客户转发给在线连接
type Event struct {
	Type           string    `json:"type"`
	CustomerID     string    `json:"customer_id"`
	SubscriptionID int64     `json:"subscription_id,omitempty"`
	OrderID        int64     `json:"order_id,omitempty"`
	PlanID         int64     `json:"plan_id,omitempty"`
	NotificationID int64     `json:"notification_id,omitempty"`
	Title          string    `json:"title,omitempty"`
	Message        string    `json:"message,omitempty"`
	Quantity       int       `json:"quantity,omitempty"`
	UsedToday      int       `json:"used_today,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Publisher Redis 发布者，client 为空时丢弃事件
type Publisher struct {
	client *redis.Client
}

// NewPublisher 创建发布者
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish 发布事件
func (p *Publisher) Publish(ctx context.Context, evt *Event) error {
	if p == nil || p.client == nil {
		return nil
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now()
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return p.client.Publish(ctx, ChannelSubscriptionEvents, data).Err()
}

// HandlerFunc 进程内直接投递，未启用 Redis 时由服务端使用
type HandlerFunc func(evt *Event)

// Publish 同步调用处理函数
func (f HandlerFunc) Publish(_ context.Context, evt *Event) error {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now()
	}
	f(evt)
	return nil
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 订阅事件，阻塞直到 ctx 取消。ready 在订阅建立后关闭，可为 nil
func (s *Subscriber) Subscribe(ctx context.Context, ready chan<- struct{}, handler func(*Event)) error {
	ps := s.client.Subscribe(ctx, ChannelSubscriptionEvents)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	if ready != nil {
		close(ready)
	}

	ch := ps.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				continue // 忽略解析错误
			}

			handler(&evt)
		}
	}
}
