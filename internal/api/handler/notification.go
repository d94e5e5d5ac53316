package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/cafe_sub_server/internal/api/middleware"
	"github.com/qs3c/cafe_sub_server/internal/pkg/response"
	"github.com/qs3c/cafe_sub_server/internal/service"
)

type NotificationHandler struct {
	notificationService *service.NotificationService
}

func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// List 我的通知
// GET /api/v1/notifications?limit=
func (h *NotificationHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	list, err := h.notificationService.List(middleware.GetSession(c), limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, list)
}

// MarkRead 标记已读
// PUT /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的通知ID")
		return
	}

	if err := h.notificationService.MarkRead(middleware.GetSession(c), id); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已读", nil)
}
