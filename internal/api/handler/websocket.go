package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/qs3c/cafe_sub_server/internal/api/middleware"
	"github.com/qs3c/cafe_sub_server/internal/pkg/pubsub"
	"github.com/qs3c/cafe_sub_server/internal/pkg/response"
	"github.com/qs3c/cafe_sub_server/internal/pkg/ws"
)

type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewWebSocketHandler allowedOrigins 为空或含 "*" 时不校验 Origin
func NewWebSocketHandler(hub *ws.Hub, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(allowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// Handle WebSocket 连接，令牌通过 token 查询参数传入
// GET /api/v1/ws?token=xxx
func (h *WebSocketHandler) Handle(c *gin.Context) {
	customerID, ok := middleware.GetSession(c).CustomerID()
	if !ok {
		response.PermissionError(c, "仅限客户使用")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	client := h.hub.Attach(customerID, conn)

	// 只读以检测断开
	go func() {
		defer h.hub.Unregister(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// Deliver 把生命周期事件推送给对应客户的在线连接
func (h *WebSocketHandler) Deliver(evt *pubsub.Event) {
	if evt == nil || evt.CustomerID == "" || !h.hub.IsOnline(evt.CustomerID) {
		return
	}
	if _, err := h.hub.SendToCustomer(evt.CustomerID, &ws.Message{Type: evt.Type, Data: evt}); err != nil {
		log.Printf("Failed to push %s to customer %s: %v", evt.Type, evt.CustomerID, err)
	}
}

// Health 存活检查，附带在线连接数
// GET /health
func (h *WebSocketHandler) Health(c *gin.Context) {
	response.Success(c, gin.H{
		"status":         "ok",
		"ws_connections": h.hub.ConnectionCount(),
	})
}
