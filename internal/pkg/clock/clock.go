package clock

import (
	"sync"
	"time"
)

// Clock 时间来源，服务和仓储通过它取当前时间
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem 使用系统时间
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Manual 可手动拨动的时钟，测试用
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual 停在 t，直到被拨动
func NewManual(t time.Time) *Manual {
	return &Manual{now: t}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Advance 向前拨动 d
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Day 返回 t 在 loc 时区的日期 (YYYY-MM-DD)，作为兑换计数的键
func Day(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("2006-01-02")
}
