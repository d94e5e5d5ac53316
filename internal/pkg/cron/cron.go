package cron

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/qs3c/cafe_sub_server/internal/pkg/clock"
)

const replayBatchSize = 100

// OrderExpirer 过期超时未到账的订单
type OrderExpirer interface {
	ExpireStaleOrders(now time.Time) (int, error)
}

// CallbackReplayer 重放未处理完的到账回调
type CallbackReplayer interface {
	RetryPendingCallbacks(ctx context.Context, limit int) (int, error)
}

type Service struct {
	expirer  OrderExpirer
	replayer CallbackReplayer
	interval time.Duration
	clock    clock.Clock
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewService replayer 可为空
func NewService(expirer OrderExpirer, replayer CallbackReplayer, interval time.Duration) *Service {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Service{
		expirer:  expirer,
		replayer: replayer,
		interval: interval,
		clock:    clock.NewSystem(),
		stopChan: make(chan struct{}),
	}
}

// SetClock 替换时钟，测试用
func (s *Service) SetClock(c clock.Clock) {
	s.clock = c
}

// Start 启动定时任务
func (s *Service) Start() {
	s.wg.Add(1)
	go s.runSweep()
	log.Printf("Cron service started (order sweep every %s)", s.interval)
}

// Stop 停止定时任务并等待当前一轮结束，可重复调用
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
	log.Println("Cron service stopped")
}

func (s *Service) runSweep() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.RunNow()
		}
	}
}

// RunNow 立即执行一轮：过期订单、重放回调
func (s *Service) RunNow() (expired, replayed int) {
	var err error
	if s.expirer != nil {
		expired, err = s.expirer.ExpireStaleOrders(s.clock.Now())
		if err != nil {
			log.Printf("Order sweep failed: %v", err)
		}
	}

	if s.replayer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.interval)
		replayed, err = s.replayer.RetryPendingCallbacks(ctx, replayBatchSize)
		cancel()
		if err != nil {
			log.Printf("Callback replay failed: %v", err)
		}
	}

	if expired > 0 || replayed > 0 {
		log.Printf("Sweep summary: expired=%d, replayed=%d", expired, replayed)
	}
	return expired, replayed
}
