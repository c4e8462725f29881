package timer

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jinhan04/bbungkabi-vercel/internal/room"
)

// TestNewTask 测试创建任务
func TestNewTask(t *testing.T) {
	task := NewTask("abc", 7, 5, nil)

	if task.ID != "turn:abc" {
		t.Errorf("期望 ID = turn:abc, 实际 = %s", task.ID)
	}
	if task.TurnSeq != 7 {
		t.Errorf("期望 TurnSeq = 7, 实际 = %d", task.TurnSeq)
	}
	if task.Delay != 5 {
		t.Errorf("期望 Delay = 5, 实际 = %d", task.Delay)
	}

	// Fn 为空时执行不应 panic
	task.Execute(context.Background())
}

// TestSlotDrainOrder 测试槽位按房间号顺序取出任务
func TestSlotDrainOrder(t *testing.T) {
	s := make(slot)
	s.put(NewTask("b", 1, 5, nil))
	s.put(NewTask("a", 1, 5, nil))
	s.put(NewTask("c", 1, 5, nil))

	if !s.remove(TaskID("c")) {
		t.Error("期望删除成功")
	}
	if s.remove(TaskID("missing")) {
		t.Error("期望删除失败")
	}

	tasks := s.drain()
	if len(tasks) != 2 || tasks[0].RoomCode != "a" || tasks[1].RoomCode != "b" {
		t.Errorf("期望按房间号取出 [a b], 实际 = %v", tasks)
	}
	if tasks := s.drain(); tasks != nil {
		t.Errorf("期望 nil, 实际 = %v", tasks)
	}
}

// TestTimeWheelReplace 测试同一房间重复添加只保留最新任务
func TestTimeWheelReplace(t *testing.T) {
	wheel := NewTimeWheel(time.Hour)
	defer wheel.Stop()

	wheel.AddTask(NewTask("abc", 1, 3, nil))
	wheel.AddTask(NewTask("abc", 2, 1, nil))

	if wheel.GetTotalTaskCount() != 1 {
		t.Fatalf("期望总任务数 = 1, 实际 = %d", wheel.GetTotalTaskCount())
	}

	tasks := wheel.Tick()
	if len(tasks) != 1 || tasks[0].TurnSeq != 2 {
		t.Fatalf("期望第一个刻度取到 TurnSeq=2 的任务, 实际 = %v", tasks)
	}
	for i := 0; i < 3; i++ {
		if tasks := wheel.Tick(); len(tasks) != 0 {
			t.Errorf("被替换的任务不应再触发, 实际 = %v", tasks)
		}
	}
}

// TestTimeWheelRemove 测试删除任务
func TestTimeWheelRemove(t *testing.T) {
	wheel := NewTimeWheel(time.Hour)
	defer wheel.Stop()

	wheel.AddTask(NewTask("abc", 1, 2, nil))
	wheel.Tick()

	if !wheel.RemoveTask(TaskID("abc")) {
		t.Error("期望删除成功")
	}
	if wheel.RemoveTask(TaskID("abc")) {
		t.Error("期望重复删除失败")
	}
	if wheel.GetTotalTaskCount() != 0 {
		t.Errorf("期望总任务数 = 0, 实际 = %d", wheel.GetTotalTaskCount())
	}
}

// TestClampDelay 测试延迟范围
func TestClampDelay(t *testing.T) {
	cases := map[int]int{-1: 1, 0: 1, 1: 1, 30: 30, 60: 60, 90: 60}
	for in, want := range cases {
		if got := ClampDelay(in); got != want {
			t.Errorf("ClampDelay(%d) 期望 %d, 实际 = %d", in, want, got)
		}
	}
}

// TestSchedulerStartStop 测试调度器启动和停止
func TestSchedulerStartStop(t *testing.T) {
	s := NewScheduler(10*time.Millisecond, 2)

	if err := s.Schedule(NewTask("abc", 1, 1, nil)); err == nil {
		t.Error("期望未启动时添加失败")
	}
	if err := s.Start(); err != nil {
		t.Fatalf("启动调度器失败: %v", err)
	}
	if err := s.Start(); err == nil {
		t.Error("期望重复启动失败")
	}
	if !s.IsRunning() {
		t.Error("期望调度器运行中")
	}

	s.Stop()
	s.Stop()
	if s.IsRunning() {
		t.Error("期望调度器已停止")
	}
}

// TestSchedulerExecution 测试到期执行
func TestSchedulerExecution(t *testing.T) {
	s := NewScheduler(10*time.Millisecond, 2)
	s.Start()
	defer s.Stop()

	fired := make(chan uint64, 1)
	fn := func(ctx context.Context, roomCode string, turnSeq uint64) {
		fired <- turnSeq
	}
	if err := s.Schedule(NewTask("abc", 9, 2, fn)); err != nil {
		t.Fatalf("添加任务失败: %v", err)
	}

	select {
	case seq := <-fired:
		if seq != 9 {
			t.Errorf("期望 turnSeq = 9, 实际 = %d", seq)
		}
	case <-time.After(time.Second):
		t.Fatal("任务未按时执行")
	}
}

// TestSchedulerCancel 测试取消任务
func TestSchedulerCancel(t *testing.T) {
	s := NewScheduler(10*time.Millisecond, 2)
	s.Start()
	defer s.Stop()

	var executed atomic.Int32
	fn := func(ctx context.Context, roomCode string, turnSeq uint64) {
		executed.Add(1)
	}
	s.Schedule(NewTask("abc", 1, 5, fn))
	if s.Count() != 1 {
		t.Errorf("期望等待任务数 = 1, 实际 = %d", s.Count())
	}
	if !s.Cancel("abc") {
		t.Error("期望取消成功")
	}
	if s.Count() != 0 {
		t.Errorf("期望等待任务数 = 0, 实际 = %d", s.Count())
	}

	time.Sleep(100 * time.Millisecond)
	if executed.Load() != 0 {
		t.Errorf("期望不执行, 实际执行 %d 次", executed.Load())
	}
}

// TestWatcherReschedulesOnTurn 测试出牌权变化时重新计时，回合结束时取消
func TestWatcherReschedulesOnTurn(t *testing.T) {
	s := NewScheduler(10*time.Millisecond, 2)
	s.Start()
	defer s.Stop()

	var mu sync.Mutex
	var fired []uint64
	w := NewWatcher(s, 3, func(ctx context.Context, roomCode string, turnSeq uint64) {
		mu.Lock()
		fired = append(fired, turnSeq)
		mu.Unlock()
	})

	var forwarded atomic.Int32
	sink := w.Wrap(room.SinkFunc(func(ev room.Event) { forwarded.Add(1) }))

	sink.Emit(room.Event{Room: "abc", Name: room.EventTurnInfo, Data: room.TurnInfo{TurnSeq: 1}})
	sink.Emit(room.Event{Room: "abc", Name: room.EventTurnInfo, Data: room.TurnInfo{TurnSeq: 2}})
	sink.Emit(room.Event{Room: "xyz", Name: room.EventTurnInfo, Data: room.TurnInfo{TurnSeq: 5}})
	sink.Emit(room.Event{Room: "xyz", Name: room.EventRoundEnded})

	if forwarded.Load() != 4 {
		t.Errorf("期望转发4个事件, 实际 = %d", forwarded.Load())
	}

	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(fired) != 1 || fired[0] != 2 {
		t.Errorf("期望只触发 turnSeq=2, 实际 = %v", fired)
	}
}
