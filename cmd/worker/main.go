package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/qs3c/cafe_sub_server/config"
	"github.com/qs3c/cafe_sub_server/internal/database"
	"github.com/qs3c/cafe_sub_server/internal/pkg/cron"
	"github.com/qs3c/cafe_sub_server/internal/pkg/idgen"
	"github.com/qs3c/cafe_sub_server/internal/pkg/pubsub"
	"github.com/qs3c/cafe_sub_server/internal/pkg/queue"
	"github.com/qs3c/cafe_sub_server/internal/pkg/retry"
	"github.com/qs3c/cafe_sub_server/internal/repository"
	"github.com/qs3c/cafe_sub_server/internal/service"
	"github.com/qs3c/cafe_sub_server/internal/worker"
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
	idgen.SetNode(cfg.Server.NodeID + 1) // 与同配置的 server 错开节点号

	// 初始化数据库
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Println("Database connected")

	// 初始化 Redis，worker 依赖回调队列
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	if rdb == nil {
		log.Fatalf("Worker requires redis, set redis.host in %s", configPath)
	}
	log.Println("Redis connected")

	// 初始化 Queue 和 Pub/Sub
	callbackQueue := queue.NewQueue(rdb, cfg.Queue.CallbackQueue)
	publisher := pubsub.NewPublisher(rdb)

	// 初始化 Repository 和 Service
	orderRepo := repository.NewOrderRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	planRepo := repository.NewPlanRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	callbackRepo := repository.NewCallbackRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notificationService := service.NewNotificationService(notificationRepo, publisher)
	orderService := service.NewOrderService(orderRepo, subRepo, planRepo, customerRepo, callbackRepo, notificationService, publisher, cfg)

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	// 过期清理与回调重放
	sweeper := cron.NewService(orderService, orderService, cfg.Payment.SweepInterval)
	sweeper.Start()
	defer sweeper.Stop()

	log.Printf("Worker started, max workers: %d", cfg.Queue.MaxWorkers)

	// 阻塞直到 ctx 取消
	processor := worker.NewProcessor(callbackQueue, orderService, retry.Default())
	processor.Run(ctx, cfg.Queue.MaxWorkers)

	log.Println("Worker shutdown complete")
}
