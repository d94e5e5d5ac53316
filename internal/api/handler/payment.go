package handler

import (
	"encoding/json"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/cafe_sub_server/internal/model/dto"
	"github.com/qs3c/cafe_sub_server/internal/pkg/queue"
	"github.com/qs3c/cafe_sub_server/internal/pkg/response"
	"github.com/qs3c/cafe_sub_server/internal/service"
)

type PaymentHandler struct {
	orderService *service.OrderService
	queue        *queue.Queue
}

// NewPaymentHandler q 为空时回调同步对账
func NewPaymentHandler(orderService *service.OrderService, q *queue.Queue) *PaymentHandler {
	return &PaymentHandler{
		orderService: orderService,
		queue:        q,
	}
}

// Callback 银行到账回调
// POST /api/v1/subscriptions/payment-callback
func (h *PaymentHandler) Callback(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		response.ParamError(c, "读取请求失败")
		return
	}

	var req dto.PaymentCallbackRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		response.ParamError(c, "回调格式错误")
		return
	}

	if h.queue == nil {
		result, err := h.orderService.SettlePayment(c.Request.Context(), &req, payload)
		if err != nil {
			response.FromError(c, err)
			return
		}
		response.Success(c, result)
		return
	}

	cb, created, err := h.orderService.RecordCallback(&req, payload)
	if err != nil {
		response.FromError(c, err)
		return
	}

	result := &dto.SettleResult{CallbackID: cb.ID, Message: "duplicate"}
	if cb.OrderID != nil {
		result.OrderID = *cb.OrderID
	}
	if created {
		msg := &queue.CallbackMessage{CallbackID: cb.ID, ExternalID: cb.ExternalID}
		if err := h.queue.Push(c.Request.Context(), msg); err != nil {
			// 队列不可用时退回同步对账，回调已落库
			log.Printf("Failed to queue callback %s, settling inline: %v", cb.ExternalID, err)
			settled, err := h.orderService.SettleCallback(c.Request.Context(), cb)
			if err != nil {
				response.FromError(c, err)
				return
			}
			response.Success(c, settled)
			return
		}
		result.Queued = true
		result.Message = "queued"
	}
	response.Success(c, result)
}
