package repository

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/cafe_sub_server/internal/model"
	"github.com/qs3c/cafe_sub_server/internal/pkg/apperr"
)

// RedemptionCount 兑换后的当日计数
type RedemptionCount struct {
	Count int
	Quota int
}

type RedemptionRepository struct {
	db    *gorm.DB
	locks *keyLocks
}

func NewRedemptionRepository(db *gorm.DB) *RedemptionRepository {
	return &RedemptionRepository{db: db, locks: newKeyLocks()}
}

// IncrementRedemption 给 (订阅, 日期) 的计数加 by，结果超过每日额度时返回 ErrQuotaExceeded 且不做任何修改。
// entry 不为空时在同一事务写入兑换流水
func (r *RedemptionRepository) IncrementRedemption(subscriptionID int64, day string, by int, now time.Time, entry *model.RedemptionLog) (*RedemptionCount, error) {
	if by < 1 {
		return nil, apperr.ErrInvalidQuantity
	}

	unlock := r.locks.lock(fmt.Sprintf("%d:%s", subscriptionID, day))
	defer unlock()

	var result RedemptionCount
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var sub model.Subscription
		if err := tx.Select("id", "daily_quota").Where("id = ?", subscriptionID).First(&sub).Error; err != nil {
			return notFound(err, apperr.ErrSubscriptionNotFound)
		}

		record := &model.RedemptionRecord{SubscriptionID: subscriptionID, Day: day}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(record).Error; err != nil {
			return err
		}

		res := tx.Model(&model.RedemptionRecord{}).
			Where("subscription_id = ? AND day = ? AND redeemed_count + ? <= ?", subscriptionID, day, by, sub.DailyQuota).
			Updates(map[string]interface{}{
				"redeemed_count":   gorm.Expr("redeemed_count + ?", by),
				"last_redeemed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrQuotaExceeded
		}

		var current model.RedemptionRecord
		if err := tx.Where("subscription_id = ? AND day = ?", subscriptionID, day).First(&current).Error; err != nil {
			return err
		}

		if entry != nil {
			entry.SubscriptionID = subscriptionID
			entry.Quantity = by
			entry.Day = day
			entry.RedeemedAt = now
			if err := tx.Create(entry).Error; err != nil {
				return err
			}
		}

		result = RedemptionCount{Count: current.Count, Quota: sub.DailyQuota}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UsageOn 某天已兑换的数量，没有记录时为 0
func (r *RedemptionRepository) UsageOn(subscriptionID int64, day string) (int, error) {
	var record model.RedemptionRecord
	err := r.db.Where("subscription_id = ? AND day = ?", subscriptionID, day).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return record.Count, nil
}

// ListLogs 订阅的兑换流水，最新的在前
func (r *RedemptionRepository) ListLogs(subscriptionID int64, limit int) ([]*model.RedemptionLog, error) {
	var logs []*model.RedemptionLog
	err := r.db.Where("subscription_id = ?", subscriptionID).
		Order("redeemed_at DESC, id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// keyLocks 按键加锁，空闲的锁会被回收
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*keyLock)}
}

func (k *keyLocks) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
