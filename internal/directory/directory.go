package directory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jinhan04/bbungkabi-vercel/internal/room"
	"github.com/jinhan04/bbungkabi-vercel/internal/score"
	"github.com/jinhan04/bbungkabi-vercel/internal/workerpool"
)

const writeTimeout = 3 * time.Second

// Directory 房间目录
//
// 作为 room.Sink 跟踪房间的玩家、阶段与回合，变化时异步写入 Store。
type Directory struct {
	store Store
	pool  *workerpool.Pool

	mu      sync.Mutex
	entries map[string]*Entry

	logger *slog.Logger
}

// New 创建房间目录
func New(store Store, pool *workerpool.Pool) *Directory {
	return &Directory{
		store:   store,
		pool:    pool,
		entries: make(map[string]*Entry),
		logger:  slog.Default().With("component", "RoomDirectory"),
	}
}

// Emit 实现 room.Sink
func (d *Directory) Emit(ev room.Event) {
	switch ev.Name {
	case room.EventUpdatePlayers, room.EventGameStarted, room.EventRoundEnded, room.EventGameComplete:
	case room.EventRoomClosed:
		d.remove(ev.Room)
		return
	default:
		return
	}

	d.mu.Lock()
	e, ok := d.entries[ev.Room]
	if !ok {
		e = &Entry{RoomCode: ev.Room, Phase: room.PhaseLobby.String()}
		d.entries[ev.Room] = e
	}

	switch data := ev.Data.(type) {
	case room.Roster:
		e.Players = append([]string{}, data...)
	case room.GameStarted:
		e.Phase = room.PhaseRoundActive.String()
		e.Round = data.Round
	case room.RoundEnded:
		e.Round = data.Round
		if data.Round >= score.FinalRound {
			e.Phase = room.PhaseGameComplete.String()
		} else {
			e.Phase = room.PhaseRoundEnded.String()
		}
	case room.GameComplete:
		e.Phase = room.PhaseGameComplete.String()
	}
	e.UpdatedAt = time.Now()

	snapshot := *e
	snapshot.Players = append([]string{}, e.Players...)
	d.mu.Unlock()

	d.submit(ev.Room, func(ctx context.Context) error { return d.store.Save(ctx, snapshot) })
}

func (d *Directory) remove(code string) {
	d.mu.Lock()
	delete(d.entries, code)
	d.mu.Unlock()

	d.submit(code, func(ctx context.Context) error { return d.store.Delete(ctx, code) })
}

func (d *Directory) submit(code string, op func(ctx context.Context) error) {
	ok := d.pool.TrySubmit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := op(ctx); err != nil {
			d.logger.Warn("Room directory write failed", "roomCode", code, "error", err)
		}
	})
	if !ok {
		d.logger.Warn("Room directory write dropped", "roomCode", code)
	}
}

// List 列出目录中的房间
func (d *Directory) List(ctx context.Context) ([]Entry, error) {
	return d.store.List(ctx)
}

// Ping 检查存储是否可用
func (d *Directory) Ping(ctx context.Context) error {
	return d.store.Ping(ctx)
}
