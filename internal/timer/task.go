package timer

import (
	"context"
	"time"
)

// ExpireFunc 出牌计时到期回调
type ExpireFunc func(ctx context.Context, roomCode string, turnSeq uint64)

// Task 出牌计时任务
type Task struct {
	ID        string     `json:"id"`        // 任务唯一ID，同一房间只保留最新一个
	RoomCode  string     `json:"roomCode"`  // 房间号
	TurnSeq   uint64     `json:"turnSeq"`   // 创建时的出牌序号
	Delay     int        `json:"delay"`     // 延迟刻度数 (1-60)
	Fn        ExpireFunc `json:"-"`         // 执行函数
	CreatedAt time.Time  `json:"createdAt"` // 创建时间
}

// NewTask 创建新任务
func NewTask(roomCode string, turnSeq uint64, delay int, fn ExpireFunc) *Task {
	return &Task{
		ID:        TaskID(roomCode),
		RoomCode:  roomCode,
		TurnSeq:   turnSeq,
		Delay:     delay,
		Fn:        fn,
		CreatedAt: time.Now(),
	}
}

// TaskID 房间对应的任务ID
func TaskID(roomCode string) string {
	return "turn:" + roomCode
}

// Execute 执行任务
func (t *Task) Execute(ctx context.Context) {
	if t.Fn == nil {
		return
	}
	t.Fn(ctx, t.RoomCode, t.TurnSeq)
}
