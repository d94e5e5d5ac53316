package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/cafe_sub_server/internal/api/middleware"
	"github.com/qs3c/cafe_sub_server/internal/pkg/response"
	"github.com/qs3c/cafe_sub_server/internal/service"
)

type PlanHandler struct {
	subService *service.SubscriptionService
}

func NewPlanHandler(subService *service.SubscriptionService) *PlanHandler {
	return &PlanHandler{
		subService: subService,
	}
}

// List 在售套餐，带令牌时标记已拥有的套餐
// GET /api/v1/plans
func (h *PlanHandler) List(c *gin.Context) {
	plans, err := h.subService.ListPlans(middleware.GetSession(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, plans)
}

// Get 套餐详情
// GET /api/v1/plans/:id
func (h *PlanHandler) Get(c *gin.Context) {
	planID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的套餐ID")
		return
	}

	plan, err := h.subService.GetPlan(planID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, plan)
}

// Me 当前调用方的身份
// GET /api/v1/me
func Me(c *gin.Context) {
	response.Success(c, middleware.GetSession(c).Identity)
}
