package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/qs3c/cafe_sub_server/internal/model/dto"
	"github.com/qs3c/cafe_sub_server/internal/pkg/apperr"
	"github.com/qs3c/cafe_sub_server/internal/pkg/queue"
	"github.com/qs3c/cafe_sub_server/internal/pkg/retry"
)

const defaultPopTimeout = 5 * time.Second

// CallbackSettler 按 ID 对账已落库的回调
type CallbackSettler interface {
	ProcessCallback(ctx context.Context, callbackID int64) (*dto.SettleResult, error)
}

// Processor 消费回调队列
type Processor struct {
	queue      *queue.Queue
	settler    CallbackSettler
	policy     retry.Policy
	popTimeout time.Duration
}

// NewProcessor 创建回调处理器
func NewProcessor(q *queue.Queue, settler CallbackSettler, policy retry.Policy) *Processor {
	if policy.MaxAttempts < 1 {
		policy = retry.Default()
	}
	return &Processor{
		queue:      q,
		settler:    settler,
		policy:     policy,
		popTimeout: defaultPopTimeout,
	}
}

// Run 启动 workers 个消费协程，ctx 取消后等待全部退出
func (p *Processor) Run(ctx context.Context, workers int) {
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.loop(ctx, workerID)
		}(i)
	}
	wg.Wait()
}

func (p *Processor) loop(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", workerID)
			return
		default:
		}

		msg, err := p.queue.Pop(ctx, p.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Worker %d: failed to pop callback: %v", workerID, err)
			continue
		}
		if msg == nil {
			continue // 超时，继续等待
		}

		log.Printf("Worker %d: processing callback %d (attempt %d)", workerID, msg.CallbackID, msg.Attempt+1)
		if err := p.Process(ctx, msg); err != nil {
			log.Printf("Worker %d: callback %d failed: %v", workerID, msg.CallbackID, err)
		}
	}
}

// Process 处理一条回调。业务性失败已经记录在回调上，不再重试；
// 底层错误按退避间隔重新入队，超过次数后留给定时重放
func (p *Processor) Process(ctx context.Context, msg *queue.CallbackMessage) error {
	result, err := p.settler.ProcessCallback(ctx, msg.CallbackID)
	if err == nil {
		log.Printf("Callback %d done: %s", msg.CallbackID, result.Message)
		return nil
	}
	if !apperr.IsRetryable(err) {
		log.Printf("Callback %d rejected: %v", msg.CallbackID, err)
		return nil
	}

	attempt := msg.Attempt + 1
	if attempt >= p.policy.MaxAttempts {
		log.Printf("Callback %d giving up after %d attempts, left for replay", msg.CallbackID, attempt)
		return err
	}

	timer := time.NewTimer(p.policy.Delay(attempt))
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
	}

	next := *msg
	next.Attempt = attempt
	if pushErr := p.queue.Push(ctx, &next); pushErr != nil {
		log.Printf("Callback %d requeue failed: %v", msg.CallbackID, pushErr)
	}
	return err
}
