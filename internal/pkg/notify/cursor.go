package notify

import (
	"sync"
	"time"
)

// Event 轮询得到的一条事件
type Event struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// Cursor 记录一个会话最后看到的事件 ID，用于判断轮询结果中是否有新事件
type Cursor struct {
	mu           sync.Mutex
	lastSeenID   int64
	primed       bool
	primeOnFirst bool
}

// Option 游标选项
type Option func(*Cursor)

// PrimeOnFirst 首次观察只记录游标不触发，避免启动时对历史通知报警
func PrimeOnFirst() Option {
	return func(c *Cursor) {
		c.primeOnFirst = true
	}
}

// StartAt 从已知的游标位置恢复
func StartAt(lastSeenID int64) Option {
	return func(c *Cursor) {
		c.lastSeenID = lastSeenID
		c.primed = true
	}
}

// NewCursor 创建游标
func NewCursor(opts ...Option) *Cursor {
	c := &Cursor{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckNew 当最新事件 ID 与上次不同时返回 true，并在返回前推进游标。
// 同一个最新 ID 在重复轮询中只会触发一次。
func (c *Cursor) CheckNew(events []Event) bool {
	newest, ok := newestID(events)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !ok {
		// 空收件箱也算完成首次观察，之后的第一条通知照常触发
		c.primed = true
		return false
	}

	if !c.primed {
		c.primed = true
		c.lastSeenID = newest
		return !c.primeOnFirst
	}

	if newest == c.lastSeenID {
		return false
	}
	c.lastSeenID = newest
	return true
}

// LastSeenID 当前游标位置
func (c *Cursor) LastSeenID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeenID
}

// Newest 返回最新的事件
func Newest(events []Event) (Event, bool) {
	if len(events) == 0 {
		return Event{}, false
	}
	best := events[0]
	for _, e := range events[1:] {
		if e.ID > best.ID {
			best = e
		}
	}
	return best, true
}

func newestID(events []Event) (int64, bool) {
	e, ok := Newest(events)
	return e.ID, ok
}
