package handler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/cafe_sub_server/internal/model"
	"github.com/qs3c/cafe_sub_server/internal/model/dto"
	"github.com/qs3c/cafe_sub_server/internal/pkg/queue"
	"github.com/qs3c/cafe_sub_server/internal/pkg/response"
	"github.com/qs3c/cafe_sub_server/internal/testutil"
)

func TestPaymentHandler_Queued(t *testing.T) {
	ctx, cleanup := setupServices(t)
	defer cleanup()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	q := queue.NewQueue(client, "payment_callbacks")

	router := gin.New()
	router.POST("/payment-callback", NewPaymentHandler(ctx.Orders, q).Callback)

	body := `{"id":555,"gateway":"MBBank","transferType":"in","transferAmount":1000,"content":"SUB1CXT1"}`
	var first dto.SettleResult
	decodeData(t, doJSON(router, "POST", "/payment-callback", body), &first)
	assert.True(t, first.Queued)
	assert.NotZero(t, first.CallbackID)

	// 重复推送只落库一次，不重复入队
	var dup dto.SettleResult
	decodeData(t, doJSON(router, "POST", "/payment-callback", body), &dup)
	assert.False(t, dup.Queued)
	assert.Equal(t, first.CallbackID, dup.CallbackID)

	n, err := q.Length(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	msg, err := q.Pop(context.Background(), time.Second)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, first.CallbackID, msg.CallbackID)
	assert.Equal(t, "555", msg.ExternalID)

	var stored model.PaymentCallback
	require.NoError(t, ctx.DB.First(&stored, first.CallbackID).Error)
	assert.False(t, stored.Processed)
	assert.JSONEq(t, body, string(stored.Payload))
}

func TestPaymentHandler_Inline(t *testing.T) {
	ctx, cleanup := setupServices(t)
	defer cleanup()

	plan := testutil.TestPlan(t, ctx.DB)
	router := gin.New()
	router.POST("/payment-callback", NewPaymentHandler(ctx.Orders, nil).Callback)

	w := doJSON(router, "POST", "/payment-callback", "{not json")
	assert.Equal(t, response.CodeParamError, parseResponse(t, w).Code)

	order := testutil.TestOrder(t, ctx.DB, "cust-pay", plan)
	underpaid := fmt.Sprintf(`{"id":556,"transferType":"in","transferAmount":%d,"content":"%s"}`, plan.Price-1, order.TransferReference)
	w = doJSON(router, "POST", "/payment-callback", underpaid)
	assert.Equal(t, response.CodeParamError, parseResponse(t, w).Code)

	noReference := `{"id":557,"transferType":"in","transferAmount":1000,"content":"hello"}`
	w = doJSON(router, "POST", "/payment-callback", noReference)
	assert.Equal(t, response.CodeParamError, parseResponse(t, w).Code)
}
