package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/cafe_sub_server/config"
	"github.com/qs3c/cafe_sub_server/internal/model/dto"
	"github.com/qs3c/cafe_sub_server/internal/pkg/apperr"
	"github.com/qs3c/cafe_sub_server/internal/pkg/response"
	"github.com/qs3c/cafe_sub_server/internal/pkg/retry"
)

func writeEnvelope(w http.ResponseWriter, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response.Response{Code: code, Message: message, Data: data})
}

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]Option{
		WithToken("test-token"),
		WithRetryPolicy(retry.Policy{MaxAttempts: 1}),
	}, opts...)
	return New(config.ClientConfig{BaseURL: srv.URL + "/"}, opts...)
}

func TestClient_Plans(t *testing.T) {
	var auth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.Equal(t, "/plans", r.URL.Path)
		writeEnvelope(w, response.CodeSuccess, "success", []*dto.PlanInfo{
			{PlanID: 1, Name: "Daily Latte", Price: 300000, DurationDays: 30, DailyQuota: 1},
		})
	}))

	plans, err := c.Plans(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "Daily Latte", plans[0].Name)
	assert.Equal(t, "Bearer test-token", auth)
}

func TestClient_BusinessErrors(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		category error
	}{
		{"quota exceeded", response.CodeQuotaExceeded, apperr.ErrQuotaExceeded},
		{"no active plan", response.CodeNoActivePlan, apperr.ErrNoActiveSubscription},
		{"validation", response.CodeParamError, apperr.ErrValidation},
		{"unauthorized", response.CodeAuthFailed, apperr.ErrUnauthorized},
		{"forbidden", response.CodePermissionDenied, apperr.ErrForbidden},
		{"decode", response.CodeDecodeError, apperr.ErrDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, tt.code, "nope", nil)
			}))

			_, err := c.Redeem(context.Background(), 1, 1)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.category)
			assert.False(t, apperr.IsTransient(err))

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, "nope", apiErr.Message)
		})
	}
}

func TestClient_RetriesTransient(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeEnvelope(w, response.CodeSuccess, "success", []*dto.PlanInfo{})
	}), WithRetryPolicy(retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}))

	_, err := c.Plans(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_DoesNotRetryBusinessErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeEnvelope(w, response.CodeQuotaExceeded, "今日额度已用完", nil)
	}), WithRetryPolicy(retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}))

	_, err := c.Redeem(context.Background(), 1, 1)
	assert.ErrorIs(t, err, apperr.ErrQuotaExceeded)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_ServerErrorIsTransient(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := c.Plans(context.Background())
	assert.True(t, apperr.IsTransient(err))
}

func TestClient_NetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(config.ClientConfig{BaseURL: url, Timeout: time.Second}, WithRetryPolicy(retry.Policy{MaxAttempts: 1}))
	_, err := c.Plans(context.Background())
	assert.True(t, apperr.IsTransient(err))
}

func TestClient_InvalidBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))

	_, err := c.Plans(context.Background())
	assert.ErrorIs(t, err, apperr.ErrDecode)
}

func TestClient_CreateOrderAndMarkRead(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/subscriptions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req dto.CreateOrderRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		writeEnvelope(w, response.CodeSuccess, "订单已创建", dto.OrderResult{OrderID: 9, PlanID: req.PlanID, BaselineActiveCount: 2})
	})
	mux.HandleFunc("/notifications/5/read", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		writeEnvelope(w, response.CodeSuccess, "已读", nil)
	})
	c := newTestClient(t, mux)

	order, err := c.CreateOrder(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), order.PlanID)
	assert.Equal(t, int64(2), order.BaselineActiveCount)

	require.NoError(t, c.MarkRead(context.Background(), 5))
}
