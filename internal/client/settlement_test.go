package client

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/cafe_sub_server/internal/model/dto"
	"github.com/qs3c/cafe_sub_server/internal/pkg/apperr"
	"github.com/qs3c/cafe_sub_server/internal/pkg/response"
)

// settlementServer 第 settleAt 次轮询时有效订阅数加一
func settlementServer(t *testing.T, settleAt int32, failAt int32) (http.Handler, *int32) {
	var calls int32
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == failAt {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		baseline, err := strconv.ParseInt(r.URL.Query().Get("baseline"), 10, 64)
		assert.NoError(t, err)
		active := baseline
		if settleAt > 0 && n >= settleAt {
			active++
		}
		writeEnvelope(w, response.CodeSuccess, "success", dto.SettlementStatus{
			PlanID:      7,
			Baseline:    baseline,
			ActiveCount: active,
			Settled:     active > baseline,
		})
	}), &calls
}

func TestSettlementPoller_SettlesAfterBaselineGrows(t *testing.T) {
	handler, calls := settlementServer(t, 3, 2)
	c := newTestClient(t, handler)

	var fired int32
	order := &dto.OrderResult{PlanID: 7, BaselineActiveCount: 1}
	poller := NewSettlementPoller(c, order,
		WithInterval(5*time.Millisecond),
		WithMaxWait(2*time.Second),
		OnSettled(func(s *dto.SettlementStatus) { atomic.AddInt32(&fired, 1) }),
	)
	assert.Equal(t, int64(1), poller.Baseline())

	status, err := poller.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Settled)
	assert.Equal(t, int64(1), status.Baseline, "transient failure must not move the baseline")
	assert.Equal(t, int64(2), status.ActiveCount)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestSettlementPoller_Timeout(t *testing.T) {
	handler, _ := settlementServer(t, 0, 0)
	c := newTestClient(t, handler)

	var fired int32
	poller := NewSettlementPoller(c, &dto.OrderResult{PlanID: 7},
		WithInterval(5*time.Millisecond),
		WithMaxWait(40*time.Millisecond),
		OnSettled(func(s *dto.SettlementStatus) { atomic.AddInt32(&fired, 1) }),
	)

	_, err := poller.Run(context.Background())
	assert.ErrorIs(t, err, ErrSettlementTimeout)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
}

func TestSettlementPoller_Cancelled(t *testing.T) {
	handler, _ := settlementServer(t, 0, 0)
	c := newTestClient(t, handler)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	poller := NewSettlementPoller(c, &dto.OrderResult{PlanID: 7}, WithInterval(5*time.Millisecond))
	_, err := poller.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSettlementPoller_StopsOnBusinessError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, response.CodeAuthFailed, "请先登录客户账号", nil)
	}))

	poller := NewSettlementPoller(c, &dto.OrderResult{PlanID: 7},
		WithInterval(5*time.Millisecond), WithMaxWait(time.Second))
	_, err := poller.Run(context.Background())
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestSettlementPoller_DefaultMaxWaitFromExpiry(t *testing.T) {
	expires := time.Now().Add(3 * time.Minute).Format(time.RFC3339)
	p := NewSettlementPoller(nil, &dto.OrderResult{ExpiresAt: expires})
	assert.InDelta(t, float64(3*time.Minute), float64(p.maxWait), float64(2*time.Second))
	assert.Equal(t, defaultPollInterval, p.interval)

	p = NewSettlementPoller(nil, &dto.OrderResult{ExpiresAt: "garbage"})
	assert.Equal(t, defaultMaxWait, p.maxWait)
}
