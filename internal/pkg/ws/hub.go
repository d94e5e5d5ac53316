package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const defaultWriteTimeout = 5 * time.Second

// Hub 按客户分组的在线连接，推送订阅激活、新通知等事件
type Hub struct {
	mu           sync.RWMutex
	conns        map[string]map[*Client]struct{}
	writeTimeout time.Duration
}

// Client 客户的一个连接，多设备登录时一个客户有多个
type Client struct {
	CustomerID string
	Conn       *websocket.Conn
	mu         sync.Mutex
}

// Message 推送给客户端的消息
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Option Hub 选项
type Option func(*Hub)

// WithWriteTimeout 单次写入的超时，超时的连接会被移除
func WithWriteTimeout(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		conns:        make(map[string]map[*Client]struct{}),
		writeTimeout: defaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Attach 登记连接并返回对应的 Client
func (h *Hub) Attach(customerID string, conn *websocket.Conn) *Client {
	c := &Client{CustomerID: customerID, Conn: conn}
	h.Register(c)
	return c
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set := h.conns[c.CustomerID]
	if set == nil {
		set = make(map[*Client]struct{})
		h.conns[c.CustomerID] = set
	}
	set[c] = struct{}{}
	n := len(set)
	h.mu.Unlock()

	log.Printf("Customer %s connected, customer_conns: %d", c.CustomerID, n)
}

// Unregister 移除连接，重复调用无副作用
func (h *Hub) Unregister(c *Client) {
	if h.remove(c) {
		log.Printf("Customer %s disconnected", c.CustomerID)
	}
}

func (h *Hub) remove(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.conns[c.CustomerID]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.conns, c.CustomerID)
	}
	return true
}

func (h *Hub) snapshot(customerID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.conns[customerID]
	out := make([]*Client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// SendToCustomer 推送到客户的全部连接，返回送达的连接数。
// 写失败的连接会被关闭并移除；客户离线时返回 0
func (h *Hub) SendToCustomer(customerID string, msg *Message) (int, error) {
	clients := h.snapshot(customerID)
	if len(clients) == 0 {
		return 0, nil
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, c := range clients {
		if err := c.write(data, h.writeTimeout); err != nil {
			log.Printf("Dropping connection of customer %s after write error: %v", customerID, err)
			h.remove(c)
			c.Conn.Close()
			continue
		}
		delivered++
	}
	return delivered, nil
}

func (c *Client) write(data []byte, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.Conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

// IsOnline 客户是否有在线连接
func (h *Hub) IsOnline(customerID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[customerID]) > 0
}

// ConnectionCount 在线连接总数
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, set := range h.conns {
		total += len(set)
	}
	return total
}
