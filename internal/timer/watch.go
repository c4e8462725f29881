package timer

import (
	"github.com/jinhan04/bbungkabi-vercel/internal/room"
)

// Watcher 监听房间事件，每次出牌权变化时重新计时
type Watcher struct {
	sched  *Scheduler
	delay  int
	expire ExpireFunc
}

// NewWatcher 创建计时监听器，delay 为刻度数
func NewWatcher(sched *Scheduler, delay int, expire ExpireFunc) *Watcher {
	return &Watcher{
		sched:  sched,
		delay:  ClampDelay(delay),
		expire: expire,
	}
}

// Wrap 先把事件交给 next，再根据事件更新计时
func (w *Watcher) Wrap(next room.Sink) room.Sink {
	return room.SinkFunc(func(ev room.Event) {
		if next != nil {
			next.Emit(ev)
		}
		w.observe(ev)
	})
}

func (w *Watcher) observe(ev room.Event) {
	switch ev.Name {
	case room.EventTurnInfo:
		info, ok := ev.Data.(room.TurnInfo)
		if !ok {
			return
		}
		if err := w.sched.Schedule(NewTask(ev.Room, info.TurnSeq, w.delay, w.expire)); err != nil {
			w.sched.logger.Warn("Failed to schedule turn timer", "roomCode", ev.Room, "error", err)
		}
	case room.EventRoundEnded, room.EventRoomClosed:
		w.sched.Cancel(ev.Room)
	}
}
