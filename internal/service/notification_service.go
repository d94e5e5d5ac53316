package service

import (
	"context"

	"github.com/qs3c/cafe_sub_server/internal/model"
	"github.com/qs3c/cafe_sub_server/internal/model/dto"
	"github.com/qs3c/cafe_sub_server/internal/pkg/apperr"
	"github.com/qs3c/cafe_sub_server/internal/pkg/credential"
	"github.com/qs3c/cafe_sub_server/internal/pkg/pubsub"
	"github.com/qs3c/cafe_sub_server/internal/repository"
)

const defaultNotificationLimit = 50

type NotificationService struct {
	repo      *repository.NotificationRepository
	publisher EventPublisher
}

func NewNotificationService(repo *repository.NotificationRepository, publisher EventPublisher) *NotificationService {
	return &NotificationService{
		repo:      repo,
		publisher: publisher,
	}
}

// Notify 保存通知并发布 notification_created 事件
func (s *NotificationService) Notify(ctx context.Context, customerID, title, body, typ string) (*model.Notification, error) {
	n := &model.Notification{
		CustomerID: customerID,
		Title:      title,
		Body:       body,
		Type:       typ,
		Status:     model.NotificationUnread,
	}
	if err := s.repo.Create(n); err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, &pubsub.Event{
		Type:           pubsub.EventNotificationCreated,
		CustomerID:     customerID,
		NotificationID: n.ID,
		Title:          title,
		Message:        body,
	})
	return n, nil
}

// List 当前客户的通知，最新的在前
func (s *NotificationService) List(session credential.Session, limit int) (*dto.NotificationList, error) {
	customerID, ok := session.CustomerID()
	if !ok {
		return nil, apperr.ErrCustomerUnauthenticated
	}
	if limit <= 0 || limit > 100 {
		limit = defaultNotificationLimit
	}

	list, err := s.repo.ListByCustomer(customerID, limit)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.CountUnread(customerID)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.NotificationInfo, 0, len(list))
	for _, n := range list {
		items = append(items, &dto.NotificationInfo{
			NotificationID: n.ID,
			Title:          n.Title,
			Body:           n.Body,
			Type:           n.Type,
			Status:         n.Status,
			CreatedAt:      formatTime(n.CreatedAt),
		})
	}

	return &dto.NotificationList{Items: items, Unread: unread}, nil
}

// MarkRead 标记已读
func (s *NotificationService) MarkRead(session credential.Session, id int64) error {
	customerID, ok := session.CustomerID()
	if !ok {
		return apperr.ErrCustomerUnauthenticated
	}
	return s.repo.MarkRead(id, customerID)
}
