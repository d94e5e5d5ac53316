package repository

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/cafe_sub_server/internal/model"
	"github.com/qs3c/cafe_sub_server/internal/pkg/apperr"
	"github.com/qs3c/cafe_sub_server/internal/testutil"
)

func TestRedemptionRepository_IncrementRedemption(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewRedemptionRepository(db)
	plan := testutil.TestPlan(t, db, testutil.WithQuota(2, 2))
	sub := testutil.TestSubscription(t, db, "cust-1", plan)
	now := time.Now()

	got, err := repo.IncrementRedemption(sub.ID, "2025-05-10", 1, now, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Count)
	assert.Equal(t, 2, got.Quota)

	got, err = repo.IncrementRedemption(sub.ID, "2025-05-10", 1, now, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Count)

	_, err = repo.IncrementRedemption(sub.ID, "2025-05-10", 1, now, nil)
	assert.ErrorIs(t, err, apperr.ErrQuotaExceeded)

	used, err := repo.UsageOn(sub.ID, "2025-05-10")
	require.NoError(t, err)
	assert.Equal(t, 2, used)

	// 新的一天重新计数
	got, err = repo.IncrementRedemption(sub.ID, "2025-05-11", 2, now, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Count)
}

func TestRedemptionRepository_IncrementRedemption_OverQuotaLeavesCount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewRedemptionRepository(db)
	plan := testutil.TestPlan(t, db, testutil.WithQuota(3, 3))
	sub := testutil.TestSubscription(t, db, "cust-1", plan)

	_, err := repo.IncrementRedemption(sub.ID, "2025-05-10", 2, time.Now(), nil)
	require.NoError(t, err)

	_, err = repo.IncrementRedemption(sub.ID, "2025-05-10", 2, time.Now(), nil)
	assert.ErrorIs(t, err, apperr.ErrQuotaExceeded)

	used, err := repo.UsageOn(sub.ID, "2025-05-10")
	require.NoError(t, err)
	assert.Equal(t, 2, used)
}

func TestRedemptionRepository_IncrementRedemption_Concurrent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewRedemptionRepository(db)
	assertConcurrentIncrement(t, db, repo, repo)
}

// 两个仓库实例各自持有进程内锁，模拟多实例共享同一个 MySQL
func TestRedemptionRepository_IncrementRedemption_ConcurrentMySQL(t *testing.T) {
	db := testutil.SetupTestDBWithMySQL(t)
	defer testutil.CleanupTestDB(t, db)
	testutil.TruncateTables(t, db)

	assertConcurrentIncrement(t, db, NewRedemptionRepository(db), NewRedemptionRepository(db))
}

func assertConcurrentIncrement(t *testing.T, db *gorm.DB, repos ...*RedemptionRepository) {
	t.Helper()

	plan := testutil.TestPlan(t, db, testutil.WithQuota(5, 1))
	sub := testutil.TestSubscription(t, db, "cust-1", plan)

	const callers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		exceeded  int
		other     []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(repo *RedemptionRepository) {
			defer wg.Done()
			_, err := repo.IncrementRedemption(sub.ID, "2025-05-10", 1, time.Now(), nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, apperr.ErrQuotaExceeded):
				exceeded++
			default:
				other = append(other, err)
			}
		}(repos[i%len(repos)])
	}
	wg.Wait()

	assert.Empty(t, other)
	assert.Equal(t, 5, succeeded)
	assert.Equal(t, callers-5, exceeded)

	used, err := repos[0].UsageOn(sub.ID, "2025-05-10")
	require.NoError(t, err)
	assert.Equal(t, 5, used)
}

func TestRedemptionRepository_IncrementRedemption_WritesLog(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewRedemptionRepository(db)
	plan := testutil.TestPlan(t, db, testutil.WithQuota(1, 1))
	sub := testutil.TestSubscription(t, db, "cust-1", plan)

	_, err := repo.IncrementRedemption(sub.ID, "2025-05-10", 1, time.Now(), &model.RedemptionLog{StaffID: "staff-1"})
	require.NoError(t, err)

	// 超额时流水不能写入
	_, err = repo.IncrementRedemption(sub.ID, "2025-05-10", 1, time.Now(), &model.RedemptionLog{StaffID: "staff-1"})
	require.ErrorIs(t, err, apperr.ErrQuotaExceeded)

	logs, err := repo.ListLogs(sub.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "staff-1", logs[0].StaffID)
	assert.Equal(t, 1, logs[0].Quantity)
	assert.Equal(t, "2025-05-10", logs[0].Day)
}

func TestRedemptionRepository_IncrementRedemption_Errors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewRedemptionRepository(db)

	_, err := repo.IncrementRedemption(99999, "2025-05-10", 1, time.Now(), nil)
	assert.ErrorIs(t, err, apperr.ErrSubscriptionNotFound)

	_, err = repo.IncrementRedemption(1, "2025-05-10", 0, time.Now(), nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidQuantity)
}

func TestRedemptionRepository_UsageOn_NoRecord(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewRedemptionRepository(db)

	used, err := repo.UsageOn(1, "2025-05-10")
	require.NoError(t, err)
	assert.Equal(t, 0, used)
}

func TestKeyLocks_Release(t *testing.T) {
	locks := newKeyLocks()

	unlock := locks.lock("a")
	assert.Len(t, locks.locks, 1)
	unlock()
	assert.Empty(t, locks.locks)
}
