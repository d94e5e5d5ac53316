package api

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/cafe_sub_server/config"
	"github.com/qs3c/cafe_sub_server/internal/api/handler"
	"github.com/qs3c/cafe_sub_server/internal/api/middleware"
)

type Router struct {
	planHandler         *handler.PlanHandler
	subscriptionHandler *handler.SubscriptionHandler
	paymentHandler      *handler.PaymentHandler
	redeemHandler       *handler.RedeemHandler
	notificationHandler *handler.NotificationHandler
	websocketHandler    *handler.WebSocketHandler
	cfg                 *config.Config
}

func NewRouter(
	planHandler *handler.PlanHandler,
	subscriptionHandler *handler.SubscriptionHandler,
	paymentHandler *handler.PaymentHandler,
	redeemHandler *handler.RedeemHandler,
	notificationHandler *handler.NotificationHandler,
	websocketHandler *handler.WebSocketHandler,
	cfg *config.Config,
) *Router {
	return &Router{
		planHandler:         planHandler,
		subscriptionHandler: subscriptionHandler,
		paymentHandler:      paymentHandler,
		redeemHandler:       redeemHandler,
		notificationHandler: notificationHandler,
		websocketHandler:    websocketHandler,
		cfg:                 cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger())
	engine.Use(middleware.CORS(r.cfg.CORS))

	jwtCfg := r.cfg.JWT

	engine.GET("/health", r.websocketHandler.Health)

	api := engine.Group("/api/v1")
	{
		// 公开接口 - 套餐
		api.GET("/plans", middleware.OptionalAuth(jwtCfg), r.planHandler.List)
		api.GET("/plans/:id", r.planHandler.Get)

		// 银行回调，API key 认证
		api.POST("/subscriptions/payment-callback",
			middleware.CallbackKey(r.cfg.Payment.CallbackKeyHash),
			r.paymentHandler.Callback)

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(jwtCfg))
		{
			authenticated.GET("/me", handler.Me)

			// 客户
			customer := authenticated.Group("")
			customer.Use(middleware.RequireCustomer())
			{
				customer.GET("/ws", r.websocketHandler.Handle)

				subscriptions := customer.Group("/subscriptions")
				{
					subscriptions.POST("", r.subscriptionHandler.Create)
					subscriptions.GET("/my-subscriptions", r.subscriptionHandler.ListMine)
					subscriptions.GET("/settlement", r.subscriptionHandler.Settlement)
				}

				customer.GET("/orders/:id", r.subscriptionHandler.GetOrder)

				notifications := customer.Group("/notifications")
				{
					notifications.GET("", r.notificationHandler.List)
					notifications.PUT("/:id/read", r.notificationHandler.MarkRead)
				}
			}

			// 门店员工
			redeems := authenticated.Group("/redeems")
			redeems.Use(middleware.RequireStaff())
			{
				redeems.POST("/scan", r.redeemHandler.Scan)
				redeems.POST("", r.redeemHandler.Redeem)
				redeems.GET("/:subscription_id/history", r.redeemHandler.History)
			}
		}
	}

	return engine
}
