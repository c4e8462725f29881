package workerpool

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Task 定义任务函数类型
type Task func()

// Pool Worker Pool 实现
//
// 房间事件回调在房间锁内执行，外部 IO（Redis、NATS）统一投递到这里异步处理。
type Pool struct {
	name      string
	workers   int
	taskQueue chan Task
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *slog.Logger

	closeMu  sync.RWMutex
	closed   bool
	stopOnce sync.Once

	completed atomic.Int64
	dropped   atomic.Int64
}

// New 创建一个新的 Worker Pool
// workers: worker 数量
// queueSize: 任务队列大小
func New(name string, workers int, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool{
		name:      name,
		workers:   workers,
		taskQueue: make(chan Task, queueSize),
		ctx:       ctx,
		cancel:    cancel,
		logger:    slog.Default().With("component", "WorkerPool", "pool", name),
	}

	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker(i)
	}

	pool.logger.Info("Worker pool started",
		"workers", workers,
		"queue_size", queueSize)

	return pool
}

// worker 工作协程，关闭后仍会执行完队列中剩余的任务
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for task := range p.taskQueue {
		p.run(id, task)
	}
}

func (p *Pool) run(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Task panic recovered",
				"worker_id", id,
				"panic", r)
		}
		p.completed.Add(1)
	}()
	task()
}

// Submit 提交任务到 Worker Pool
// 如果队列满了，会阻塞直到有空位或 Pool 被关闭
func (p *Pool) Submit(task Task) bool {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()

	if p.closed {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.taskQueue <- task:
		return true
	}
}

// TrySubmit 尝试提交任务，如果队列满了立即返回 false
func (p *Pool) TrySubmit(task Task) bool {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()

	if p.closed {
		return false
	}
	select {
	case p.taskQueue <- task:
		return true
	default:
		p.dropped.Add(1)
		p.logger.Warn("Task queue full, task dropped")
		return false
	}
}

// Pending 队列中等待执行的任务数
func (p *Pool) Pending() int {
	return len(p.taskQueue)
}

// Stats 统计信息
func (p *Pool) Stats() map[string]any {
	return map[string]any{
		"name":      p.name,
		"workers":   p.workers,
		"pending":   p.Pending(),
		"completed": p.completed.Load(),
		"dropped":   p.dropped.Load(),
	}
}

// Shutdown 优雅关闭 Worker Pool
// 不再接收新任务，等待已入队的任务执行完成
func (p *Pool) Shutdown() {
	p.stopOnce.Do(func() {
		// 先唤醒阻塞在 Submit 上的调用方
		p.cancel()

		p.closeMu.Lock()
		p.closed = true
		close(p.taskQueue)
		p.closeMu.Unlock()

		p.wg.Wait()
		p.logger.Info("Worker pool shutdown completed",
			"completed", p.completed.Load(),
			"dropped", p.dropped.Load())
	})
}
