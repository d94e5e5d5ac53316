package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/cafe_sub_server/config"
	"github.com/qs3c/cafe_sub_server/internal/api/middleware"
	"github.com/qs3c/cafe_sub_server/internal/pkg/credential"
	"github.com/qs3c/cafe_sub_server/internal/pkg/response"
	"github.com/qs3c/cafe_sub_server/internal/repository"
	"github.com/qs3c/cafe_sub_server/internal/service"
	"github.com/qs3c/cafe_sub_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testContext struct {
	DB            *gorm.DB
	Orders        *service.OrderService
	Subscriptions *service.SubscriptionService
	Redeems       *service.RedeemService
	Notifications *service.NotificationService
}

func setupServices(t *testing.T) (*testContext, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := &config.Config{
		Payment: config.PaymentConfig{
			BankName:    "MB",
			BankAccount: "0123456789",
			OrderTTL:    15 * time.Minute,
		},
		Redeem: config.RedeemConfig{Timezone: "UTC"},
	}

	orderRepo := repository.NewOrderRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	planRepo := repository.NewPlanRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	redemptionRepo := repository.NewRedemptionRepository(db)

	notifications := service.NewNotificationService(repository.NewNotificationRepository(db), nil)
	ctx := &testContext{
		DB:            db,
		Orders:        service.NewOrderService(orderRepo, subRepo, planRepo, customerRepo, repository.NewCallbackRepository(db), notifications, nil, cfg),
		Subscriptions: service.NewSubscriptionService(subRepo, planRepo, redemptionRepo, customerRepo, cfg),
		Redeems:       service.NewRedeemService(subRepo, redemptionRepo, customerRepo, notifications, nil, cfg),
		Notifications: notifications,
	}

	return ctx, func() { testutil.CleanupTestDB(t, db) }
}

// mockSession 跳过令牌解析，直接注入会话
func mockSession(id credential.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.SessionKey, credential.Session{Identity: id})
		c.Next()
	}
}

func customer(id, phone string) credential.Identity {
	return credential.Identity{SubjectID: id, Role: credential.RoleCustomer, Phone: phone}
}

func barista(id string) credential.Identity {
	return credential.Identity{SubjectID: id, Role: credential.RoleBarista}
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

// decodeData 断言成功并把 data 解到 out
func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var body struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, response.CodeSuccess, body.Code, body.Message)
	if out != nil {
		require.NoError(t, json.Unmarshal(body.Data, out))
	}
}
