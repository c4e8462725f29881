package timer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jinhan04/bbungkabi-vercel/internal/workerpool"
)

// Scheduler 出牌计时调度器
//
// 时钟协程每个刻度推进时间轮，到期任务交给工作池执行。
type Scheduler struct {
	wheel     *TimeWheel
	pool      *workerpool.Pool
	workers   int
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	logger    *slog.Logger
	running   bool
	runningMu sync.RWMutex
}

// NewScheduler 创建任务调度器
func NewScheduler(tick time.Duration, workerCount int) *Scheduler {
	if workerCount <= 0 {
		workerCount = 4
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		wheel:   NewTimeWheel(tick),
		workers: workerCount,
		ctx:     ctx,
		cancel:  cancel,
		logger:  slog.Default().With("component", "TurnScheduler"),
	}
}

// Start 启动调度器
func (s *Scheduler) Start() error {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()

	if s.running {
		return fmt.Errorf("调度器已经在运行中")
	}
	s.running = true
	s.pool = workerpool.New("turn-timer", s.workers, s.workers*2)

	s.wg.Add(1)
	go s.tickLoop()

	s.logger.Info("Turn scheduler started", "workers", s.workers)
	return nil
}

// tickLoop 时钟循环协程
func (s *Scheduler) tickLoop() {
	defer s.wg.Done()

	ticker := s.wheel.GetTicker()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.onTick()
		}
	}
}

// onTick 时钟触发处理
func (s *Scheduler) onTick() {
	tasks := s.wheel.Tick()
	if len(tasks) == 0 {
		return
	}

	s.logger.Debug("Timer tick",
		"currentSlot", s.wheel.GetCurrentSlot(),
		"taskCount", len(tasks))

	for _, task := range tasks {
		s.pool.Submit(func() { task.Execute(s.ctx) })
	}
}

// Stop 停止调度器，未到期的任务被丢弃
func (s *Scheduler) Stop() {
	s.runningMu.Lock()
	if !s.running {
		s.runningMu.Unlock()
		return
	}
	s.running = false
	s.runningMu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.wheel.Stop()
	s.pool.Shutdown()

	s.logger.Info("Turn scheduler stopped")
}

// Schedule 添加任务，同一房间的旧任务被替换
func (s *Scheduler) Schedule(task *Task) error {
	s.runningMu.RLock()
	defer s.runningMu.RUnlock()

	if !s.running {
		return fmt.Errorf("调度器未运行")
	}
	if task == nil || task.RoomCode == "" {
		return fmt.Errorf("任务不能为空")
	}

	s.wheel.AddTask(task)
	return nil
}

// Cancel 取消房间的计时任务
func (s *Scheduler) Cancel(roomCode string) bool {
	return s.wheel.RemoveTask(TaskID(roomCode))
}

// IsRunning 检查调度器是否运行中
func (s *Scheduler) IsRunning() bool {
	s.runningMu.RLock()
	defer s.runningMu.RUnlock()

	return s.running
}

// Count 等待到期的任务数
func (s *Scheduler) Count() int {
	return s.wheel.GetTotalTaskCount()
}
