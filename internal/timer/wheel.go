package timer

import (
	"sync"
	"time"
)

const (
	// SlotCount 时间轮槽位数量
	SlotCount = 60
)

// TimeWheel 单层时间轮
//
// 每个刻度推进一个槽位，延迟上限为 SlotCount 个刻度。
// 同一 ID 的任务重复添加时替换旧任务。
type TimeWheel struct {
	slots       [SlotCount]slot
	currentSlot int
	index       map[string]int // taskID -> 所在槽位
	mu          sync.Mutex
	ticker      *time.Ticker
}

// NewTimeWheel 创建时间轮，tick 为每个槽位代表的时长
func NewTimeWheel(tick time.Duration) *TimeWheel {
	if tick <= 0 {
		tick = time.Second
	}
	tw := &TimeWheel{
		index:  make(map[string]int),
		ticker: time.NewTicker(tick),
	}
	for i := range tw.slots {
		tw.slots[i] = make(slot)
	}
	return tw
}

// ClampDelay 把延迟限制在 1..SlotCount
func ClampDelay(delay int) int {
	if delay < 1 {
		return 1
	}
	if delay > SlotCount {
		return SlotCount
	}
	return delay
}

// AddTask 添加任务到时间轮
func (tw *TimeWheel) AddTask(task *Task) {
	task.Delay = ClampDelay(task.Delay)

	tw.mu.Lock()
	defer tw.mu.Unlock()

	if old, ok := tw.index[task.ID]; ok {
		tw.slots[old].remove(task.ID)
	}
	target := (tw.currentSlot + task.Delay) % SlotCount
	tw.slots[target].put(task)
	tw.index[task.ID] = target
}

// RemoveTask 从时间轮删除任务
func (tw *TimeWheel) RemoveTask(taskID string) bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	pos, ok := tw.index[taskID]
	if !ok {
		return false
	}
	delete(tw.index, taskID)
	return tw.slots[pos].remove(taskID)
}

// Tick 推进时间轮，返回到期任务
func (tw *TimeWheel) Tick() []*Task {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	tw.currentSlot = (tw.currentSlot + 1) % SlotCount
	tasks := tw.slots[tw.currentSlot].drain()
	for _, t := range tasks {
		delete(tw.index, t.ID)
	}
	return tasks
}

// GetCurrentSlot 获取当前槽位索引
func (tw *TimeWheel) GetCurrentSlot() int {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	return tw.currentSlot
}

// Stop 停止时间轮
func (tw *TimeWheel) Stop() {
	tw.ticker.Stop()
}

// GetTicker 获取定时器
func (tw *TimeWheel) GetTicker() *time.Ticker {
	return tw.ticker
}

// GetTotalTaskCount 获取所有槽位的任务总数
func (tw *TimeWheel) GetTotalTaskCount() int {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	return len(tw.index)
}
