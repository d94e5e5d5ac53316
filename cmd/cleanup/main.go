package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/qs3c/cafe_sub_server/config"
	"github.com/qs3c/cafe_sub_server/internal/database"
	"github.com/qs3c/cafe_sub_server/internal/repository"
	"github.com/qs3c/cafe_sub_server/internal/service"
)

var (
	dryRun          = flag.Bool("dry-run", true, "Dry run mode, only report what would change")
	expireOrders    = flag.Bool("expire-orders", true, "Expire unpaid orders past their deadline")
	replayCallbacks = flag.Bool("replay-callbacks", true, "Replay payment callbacks left unprocessed")
	replayLimit     = flag.Int("replay-limit", 500, "Max callbacks to replay in one run")
)

func main() {
	flag.Parse()

	log.Println("Starting cleanup task...")
	log.Printf("Mode: dry-run=%v", *dryRun)

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 连接数据库
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	callbackRepo := repository.NewCallbackRepository(db)
	// 一次性命令不连 Redis，重放激活的订阅只落库通知，不推送
	notificationService := service.NewNotificationService(repository.NewNotificationRepository(db), nil)
	orderService := service.NewOrderService(
		repository.NewOrderRepository(db),
		repository.NewSubscriptionRepository(db),
		repository.NewPlanRepository(db),
		repository.NewCustomerRepository(db),
		callbackRepo,
		notificationService,
		nil,
		cfg,
	)

	now := time.Now()
	expired, replayed := 0, 0

	// 1. 过期未到账的订单
	if *expireOrders {
		if *dryRun {
			expired, err = orderService.CountStaleOrders(now)
		} else {
			expired, err = orderService.ExpireStaleOrders(now)
		}
		if err != nil {
			log.Fatalf("Failed to expire orders: %v", err)
		}
	}

	// 2. 重放未处理完的回调
	if *replayCallbacks {
		if *dryRun {
			var pending int
			pending, err = countPending(callbackRepo, *replayLimit)
			replayed = pending
		} else {
			replayed, err = orderService.RetryPendingCallbacks(context.Background(), *replayLimit)
		}
		if err != nil {
			log.Fatalf("Failed to replay callbacks: %v", err)
		}
	}

	// 输出统计
	log.Println(strings.Repeat("=", 60))
	log.Println("Cleanup Summary")
	log.Println(strings.Repeat("=", 60))
	log.Printf("Stale orders: %d", expired)
	log.Printf("Pending callbacks: %d", replayed)
	if *dryRun {
		log.Println("DRY RUN MODE - nothing was changed")
		log.Println("   Run with -dry-run=false to apply")
	} else {
		log.Println("Cleanup completed!")
	}
	log.Println(strings.Repeat("=", 60))
}

func countPending(repo *repository.CallbackRepository, limit int) (int, error) {
	pending, err := repo.ListUnprocessed(limit)
	return len(pending), err
}
