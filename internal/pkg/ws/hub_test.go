package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// startServer 每个连接以查询参数 customer 注册到 hub
func startServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := hub.Attach(r.URL.Query().Get("customer"), conn)
		go func() {
			defer func() {
				hub.Unregister(client)
				conn.Close()
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, customerID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?customer=" + customerID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_Empty(t *testing.T) {
	hub := NewHub()

	assert.Equal(t, 0, hub.ConnectionCount())
	assert.False(t, hub.IsOnline("cust-1"))
	n, err := hub.SendToCustomer("cust-1", &Message{Type: "test"})
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestHub_SendToCustomer_AllConnections(t *testing.T) {
	hub := NewHub()
	srv := startServer(t, hub)

	a := dial(t, srv, "cust-1")
	b := dial(t, srv, "cust-1")
	other := dial(t, srv, "cust-2")

	require.Eventually(t, func() bool { return hub.ConnectionCount() == 3 }, time.Second, 10*time.Millisecond)
	assert.True(t, hub.IsOnline("cust-1"))

	n, err := hub.SendToCustomer("cust-1", &Message{Type: "subscription_activated", Data: map[string]int{"subscription_id": 7}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "subscription_activated", msg.Type)
	}

	// 其他客户收不到
	require.NoError(t, other.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err = other.ReadMessage()
	assert.Error(t, err)
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub()
	srv := startServer(t, hub)

	conn := dial(t, srv, "cust-1")
	require.Eventually(t, func() bool { return hub.IsOnline("cust-1") }, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return !hub.IsOnline("cust-1") }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, hub.ConnectionCount())
}

func TestHub_DropsBrokenConnection(t *testing.T) {
	hub := NewHub(WithWriteTimeout(100 * time.Millisecond))
	srv := startServer(t, hub)

	dial(t, srv, "cust-1")
	require.Eventually(t, func() bool { return hub.IsOnline("cust-1") }, time.Second, 10*time.Millisecond)

	// 服务端连接被提前关闭后写入失败，连接应被移除
	for _, c := range hub.snapshot("cust-1") {
		c.Conn.Close()
	}

	n, err := hub.SendToCustomer("cust-1", &Message{Type: "redeemed"})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.False(t, hub.IsOnline("cust-1"))
}

func TestHub_UnregisterTwice(t *testing.T) {
	hub := NewHub()
	c := &Client{CustomerID: "cust-1"}
	hub.Register(c)

	hub.Unregister(c)
	hub.Unregister(c)
	assert.Equal(t, 0, hub.ConnectionCount())
}
