package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/cafe_sub_server/internal/api/middleware"
	"github.com/qs3c/cafe_sub_server/internal/model/dto"
	"github.com/qs3c/cafe_sub_server/internal/pkg/response"
	"github.com/qs3c/cafe_sub_server/internal/service"
)

type RedeemHandler struct {
	redeemService *service.RedeemService
}

func NewRedeemHandler(redeemService *service.RedeemService) *RedeemHandler {
	return &RedeemHandler{
		redeemService: redeemService,
	}
}

// Scan 解析客户二维码，列出可兑换的订阅
// POST /api/v1/redeems/scan
func (h *RedeemHandler) Scan(c *gin.Context) {
	var req dto.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	result, err := h.redeemService.Lookup(middleware.GetSession(c), req.Payload)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, result)
}

// Redeem 兑换，数量缺省为 1
// POST /api/v1/redeems
func (h *RedeemHandler) Redeem(c *gin.Context) {
	var req dto.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	result, err := h.redeemService.Redeem(c.Request.Context(), middleware.GetSession(c), req.SubscriptionID, req.Quantity)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, result.Message, result)
}

// History 订阅的兑换流水
// GET /api/v1/redeems/:subscription_id/history?limit=
func (h *RedeemHandler) History(c *gin.Context) {
	subscriptionID, err := strconv.ParseInt(c.Param("subscription_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的订阅ID")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	history, err := h.redeemService.History(middleware.GetSession(c), subscriptionID, limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, history)
}
