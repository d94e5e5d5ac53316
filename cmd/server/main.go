package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qs3c/cafe_sub_server/config"
	"github.com/qs3c/cafe_sub_server/internal/api"
	"github.com/qs3c/cafe_sub_server/internal/api/handler"
	"github.com/qs3c/cafe_sub_server/internal/database"
	"github.com/qs3c/cafe_sub_server/internal/pkg/catalog"
	"github.com/qs3c/cafe_sub_server/internal/pkg/cron"
	"github.com/qs3c/cafe_sub_server/internal/pkg/idgen"
	"github.com/qs3c/cafe_sub_server/internal/pkg/pubsub"
	"github.com/qs3c/cafe_sub_server/internal/pkg/queue"
	"github.com/qs3c/cafe_sub_server/internal/pkg/ws"
	"github.com/qs3c/cafe_sub_server/internal/repository"
	"github.com/qs3c/cafe_sub_server/internal/service"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	idgen.SetNode(cfg.Server.NodeID)

	// 初始化数据库
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Printf("Database connected (%s)", cfg.Database.Driver)

	// 初始化 Redis（可选）
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	if rdb != nil {
		log.Println("Redis connected")
	} else {
		log.Println("Redis disabled, callbacks are settled inline")
	}

	// 初始化 Repository
	planRepo := repository.NewPlanRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	redemptionRepo := repository.NewRedemptionRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	callbackRepo := repository.NewCallbackRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// 套餐目录
	if cfg.Catalog.Path != "" {
		n, err := catalog.Seed(cfg.Catalog.Path, planRepo)
		if err != nil {
			log.Fatalf("Failed to seed catalog: %v", err)
		}
		log.Printf("Catalog seeded: %d plans", n)
	}

	// WebSocket Hub 与事件发布
	wsHub := ws.NewHub()
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.CORS.AllowedOrigins)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var publisher service.EventPublisher
	var callbackQueue *queue.Queue
	if rdb != nil {
		publisher = pubsub.NewPublisher(rdb)
		callbackQueue = queue.NewQueue(rdb, cfg.Queue.CallbackQueue)

		// worker 发布的事件也经由 Redis 转发到本实例的连接
		subscriber := pubsub.NewSubscriber(rdb)
		go func() {
			if err := subscriber.Subscribe(ctx, nil, websocketHandler.Deliver); err != nil && ctx.Err() == nil {
				log.Printf("Event subscriber stopped: %v", err)
			}
		}()
	} else {
		publisher = pubsub.HandlerFunc(websocketHandler.Deliver)
	}

	// 初始化 Service
	notificationService := service.NewNotificationService(notificationRepo, publisher)
	subService := service.NewSubscriptionService(subRepo, planRepo, redemptionRepo, customerRepo, cfg)
	orderService := service.NewOrderService(orderRepo, subRepo, planRepo, customerRepo, callbackRepo, notificationService, publisher, cfg)
	redeemService := service.NewRedeemService(subRepo, redemptionRepo, customerRepo, notificationService, publisher, cfg)

	// 未启用 Redis 时没有独立 worker，由本进程负责过期清理和回调重放
	if rdb == nil {
		sweeper := cron.NewService(orderService, orderService, cfg.Payment.SweepInterval)
		sweeper.Start()
		defer sweeper.Stop()
	}

	// 初始化 Handler
	planHandler := handler.NewPlanHandler(subService)
	subscriptionHandler := handler.NewSubscriptionHandler(orderService, subService)
	paymentHandler := handler.NewPaymentHandler(orderService, callbackQueue)
	redeemHandler := handler.NewRedeemHandler(redeemService)
	notificationHandler := handler.NewNotificationHandler(notificationService)

	// 初始化 Router
	router := api.NewRouter(
		planHandler,
		subscriptionHandler,
		paymentHandler,
		redeemHandler,
		notificationHandler,
		websocketHandler,
		cfg,
	)
	engine := router.Setup()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: engine}

	go func() {
		log.Printf("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("Received shutdown signal")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
