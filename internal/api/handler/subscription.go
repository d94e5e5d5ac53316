package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/cafe_sub_server/internal/api/middleware"
	"github.com/qs3c/cafe_sub_server/internal/model/dto"
	"github.com/qs3c/cafe_sub_server/internal/pkg/response"
	"github.com/qs3c/cafe_sub_server/internal/service"
)

type SubscriptionHandler struct {
	orderService *service.OrderService
	subService   *service.SubscriptionService
}

func NewSubscriptionHandler(orderService *service.OrderService, subService *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		orderService: orderService,
		subService:   subService,
	}
}

// Create 下单购买套餐
// POST /api/v1/subscriptions
func (h *SubscriptionHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	result, err := h.orderService.CreateOrder(c.Request.Context(), middleware.GetSession(c), req.PlanID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "订单已创建，请在有效期内完成转账", result)
}

// ListMine 我的订阅
// GET /api/v1/subscriptions/my-subscriptions
func (h *SubscriptionHandler) ListMine(c *gin.Context) {
	list, err := h.subService.ListMine(middleware.GetSession(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, list)
}

// Settlement 到账轮询
// GET /api/v1/subscriptions/settlement?plan_id=&baseline=
func (h *SubscriptionHandler) Settlement(c *gin.Context) {
	var q dto.SettlementQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	status, err := h.orderService.PollSettlement(middleware.GetSession(c), q.PlanID, q.Baseline)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, status)
}

// GetOrder 订单详情
// GET /api/v1/orders/:id
func (h *SubscriptionHandler) GetOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的订单ID")
		return
	}

	order, err := h.orderService.GetOrder(middleware.GetSession(c), orderID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, order)
}
