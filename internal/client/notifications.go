package client

import (
	"context"
	"log"
	"time"

	"github.com/qs3c/cafe_sub_server/internal/model/dto"
	"github.com/qs3c/cafe_sub_server/internal/pkg/notify"
)

const watchLimit = 20

// NotificationWatcher 定时拉取通知，游标发现新通知时回调 onNew
type NotificationWatcher struct {
	client   *Client
	cursor   *notify.Cursor
	interval time.Duration
	onNew    func(notify.Event)
}

func NewNotificationWatcher(c *Client, interval time.Duration, onNew func(notify.Event), opts ...notify.Option) *NotificationWatcher {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &NotificationWatcher{
		client:   c,
		cursor:   notify.NewCursor(opts...),
		interval: interval,
		onNew:    onNew,
	}
}

// Cursor 当前游标
func (w *NotificationWatcher) Cursor() *notify.Cursor {
	return w.cursor
}

// Poll 拉取一次，有新通知时返回 true
func (w *NotificationWatcher) Poll(ctx context.Context) (bool, error) {
	list, err := w.client.Notifications(ctx, watchLimit)
	if err != nil {
		return false, err
	}

	events := toEvents(list.Items)
	if !w.cursor.CheckNew(events) {
		return false, nil
	}
	if w.onNew != nil {
		newest, _ := notify.Newest(events)
		w.onNew(newest)
	}
	return true, nil
}

// Run 按间隔轮询直到 ctx 取消，单次失败只记录日志
func (w *NotificationWatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("Notification poll failed: %v", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func toEvents(items []*dto.NotificationInfo) []notify.Event {
	events := make([]notify.Event, 0, len(items))
	for _, item := range items {
		createdAt, _ := time.Parse(time.RFC3339, item.CreatedAt)
		events = append(events, notify.Event{
			ID:        item.NotificationID,
			Title:     item.Title,
			Body:      item.Body,
			Type:      item.Type,
			CreatedAt: createdAt,
		})
	}
	return events
}
