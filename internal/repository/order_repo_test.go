package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/cafe_sub_server/internal/model"
	"github.com/qs3c/cafe_sub_server/internal/pkg/apperr"
	"github.com/qs3c/cafe_sub_server/internal/testutil"
)

func TestOrderRepository_CreateWithSubscription(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewOrderRepository(db)
	plan := testutil.TestPlan(t, db)

	order, sub := createPendingOrder(t, repo, "cust-1", plan, time.Now().Add(15*time.Minute))
	assert.NotZero(t, order.ID)
	assert.NotZero(t, sub.ID)
	assert.Equal(t, order.ID, sub.OrderID)
	assert.Equal(t, "cust-1", sub.CustomerID)
	assert.Equal(t, plan.ID, sub.PlanID)

	found, err := repo.GetByReference(order.TransferReference)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)
	require.NotNil(t, found.Subscription)
	assert.Equal(t, sub.ID, found.Subscription.ID)
	assert.Equal(t, model.SubscriptionPendingPayment, found.Subscription.Status)
}

func TestOrderRepository_CreateWithSubscription_RollsBack(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewOrderRepository(db)
	plan := testutil.TestPlan(t, db)
	first, _ := createPendingOrder(t, repo, "cust-1", plan, time.Now().Add(time.Hour))

	// 订阅的 order_id 唯一，人为制造冲突让订阅插入失败
	order := &model.Order{
		PlanID:            plan.ID,
		CustomerID:        "cust-1",
		Amount:            plan.Price,
		TransferReference: "SUB1CDUPT1",
		State:             model.OrderAwaitingSettlement,
		ExpiresAt:         time.Now().Add(time.Hour),
	}
	sub := &model.Subscription{ID: first.Subscription.ID, Status: model.SubscriptionPendingPayment}
	err := repo.CreateWithSubscription(order, sub)
	require.Error(t, err)

	_, err = repo.GetByReference("SUB1CDUPT1")
	assert.ErrorIs(t, err, apperr.ErrOrderNotFound)
}

func TestOrderRepository_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewOrderRepository(db)

	_, err := repo.GetByID(99999)
	assert.ErrorIs(t, err, apperr.ErrOrderNotFound)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestOrderRepository_MarkSettled_Once(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewOrderRepository(db)
	plan := testutil.TestPlan(t, db)
	order, _ := createPendingOrder(t, repo, "cust-1", plan, time.Now().Add(time.Hour))

	ok, err := repo.MarkSettled(order.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkSettled(order.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := repo.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderSettled, found.State)
	assert.NotNil(t, found.SettledAt)
}

func TestOrderRepository_ExpireStale(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewOrderRepository(db)
	plan := testutil.TestPlan(t, db)
	now := time.Now()

	stale, _ := createPendingOrder(t, repo, "cust-1", plan, now.Add(-time.Minute))
	fresh, _ := createPendingOrder(t, repo, "cust-1", plan, now.Add(time.Minute))
	settled, _ := createPendingOrder(t, repo, "cust-1", plan, now.Add(-time.Minute))
	_, err := repo.MarkSettled(settled.ID, now)
	require.NoError(t, err)

	ids, err := repo.ListStale(now, 100)
	require.NoError(t, err)
	assert.Equal(t, []int64{stale.ID}, ids)

	n, err := repo.MarkExpired(append(ids, settled.ID), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.GetByID(settled.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderSettled, got.State, "settled orders never regress")

	got, err = repo.GetByID(fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderAwaitingSettlement, got.State)
}

func TestOrderRepository_ListStale_States(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewOrderRepository(db)
	plan := testutil.TestPlan(t, db)
	now := time.Now()
	past := testutil.WithExpiresAt(now.Add(-time.Hour))

	created := testutil.TestOrder(t, db, "cust-1", plan, past, testutil.WithOrderState(model.OrderCreated))
	awaiting := testutil.TestOrder(t, db, "cust-1", plan, past)
	testutil.TestOrder(t, db, "cust-1", plan, past, testutil.WithOrderState(model.OrderExpired))
	testutil.TestOrder(t, db, "cust-1", plan, past, testutil.WithOrderState(model.OrderSettled))

	ids, err := repo.ListStale(now, 100)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{created.ID, awaiting.ID}, ids)

	got, err := repo.GetByReference(awaiting.TransferReference)
	require.NoError(t, err)
	assert.Equal(t, awaiting.ID, got.ID)

	_, err = repo.GetByReference("SUB0CNOPE")
	assert.ErrorIs(t, err, apperr.ErrOrderNotFound)
}
