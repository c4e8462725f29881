package room

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"sync"
	"time"
)

var roomCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

// ValidRoomCode 房间号为 1-32 位字母数字
func ValidRoomCode(code string) bool {
	return roomCodePattern.MatchString(code)
}

// ManagerOptions 房间管理器配置
type ManagerOptions struct {
	MaxPlayers    int
	IdleTimeout   time.Duration // 0 表示不淘汰
	EvictInterval time.Duration
	Shuffler      Shuffler
}

// Manager 房间管理器
// 管理所有 Room 实例的生命周期：首次加入时创建，最后一人离开时销毁，长期不活跃时淘汰
//
// 使用示例：
//
//	manager := NewManager(sink, ManagerOptions{IdleTimeout: 30 * time.Minute})
//	r, err := manager.Join("abc123", "alice")
//	manager.Leave("abc123", "alice")
type Manager struct {
	rooms sync.Map // roomCode -> *Room

	sink Sink
	opts ManagerOptions

	evictTicker *time.Ticker
	done        chan struct{}
	stopOnce    sync.Once

	logger *slog.Logger
}

// NewManager 创建房间管理器
func NewManager(sink Sink, opts ManagerOptions) *Manager {
	if opts.MaxPlayers <= 0 {
		opts.MaxPlayers = DefaultMaxPlayers
	}
	m := &Manager{
		sink:   sink,
		opts:   opts,
		done:   make(chan struct{}),
		logger: slog.Default().With("component", "RoomManager"),
	}

	if opts.IdleTimeout > 0 {
		if opts.EvictInterval <= 0 {
			opts.EvictInterval = time.Minute
		}
		m.evictTicker = time.NewTicker(opts.EvictInterval)
		go m.evictLoop()
	}

	return m
}

// Join 加入房间，房间不存在时创建
func (m *Manager) Join(code, nickname string) (*Room, error) {
	if !ValidRoomCode(code) {
		return nil, ErrInvalidRoomCode
	}

	for {
		r := m.getOrCreate(code)
		err := r.Join(nickname)
		if err == errRoomClosed {
			// 房间刚被销毁，移除旧实例后重试
			m.rooms.CompareAndDelete(code, r)
			continue
		}
		if err != nil {
			if r.Empty() {
				m.removeIfEmpty(code, r)
			}
			return nil, err
		}
		return r, nil
	}
}

func (m *Manager) getOrCreate(code string) *Room {
	if val, ok := m.rooms.Load(code); ok {
		return val.(*Room)
	}

	r := NewRoom(code, m.sink, m.opts.Shuffler, m.opts.MaxPlayers)
	actual, loaded := m.rooms.LoadOrStore(code, r)
	if !loaded {
		m.logger.Info("Created room", "roomCode", code)
	}
	return actual.(*Room)
}

// Get 获取房间
func (m *Manager) Get(code string) (*Room, error) {
	val, ok := m.rooms.Load(code)
	if !ok {
		return nil, ErrRoomNotFound
	}
	return val.(*Room), nil
}

// Leave 玩家离开，房间变空时销毁
func (m *Manager) Leave(code, nickname string) error {
	r, err := m.Get(code)
	if err != nil {
		return err
	}
	empty, err := r.Leave(nickname)
	if err != nil {
		return err
	}
	if empty {
		m.rooms.CompareAndDelete(code, r)
		m.logger.Info("Removed empty room", "roomCode", code)
	}
	return nil
}

// removeIfEmpty 加入失败留下的空房间直接关闭
func (m *Manager) removeIfEmpty(code string, r *Room) {
	if r.closeIfEmpty() {
		m.rooms.CompareAndDelete(code, r)
	}
}

// TurnExpired 出牌计时到期回调
func (m *Manager) TurnExpired(code string, turnSeq uint64) {
	r, err := m.Get(code)
	if err != nil {
		return
	}
	if r.TurnExpired(turnSeq) {
		m.logger.Debug("Turn timed out", "roomCode", code, "turnSeq", turnSeq)
	}
}

// Rooms 所有房间快照，按房间号排序
func (m *Manager) Rooms() []Snapshot {
	var out []Snapshot
	m.rooms.Range(func(key, value any) bool {
		out = append(out, value.(*Room).Snapshot())
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Count 返回当前房间数
func (m *Manager) Count() int {
	count := 0
	m.rooms.Range(func(key, value any) bool {
		count++
		return true
	})
	return count
}

// evictLoop 淘汰循环
func (m *Manager) evictLoop() {
	for {
		select {
		case <-m.done:
			return
		case <-m.evictTicker.C:
			m.evictInactive()
		}
	}
}

// evictInactive 淘汰不活跃的房间
func (m *Manager) evictInactive() {
	now := time.Now()
	var toEvict []*Room

	m.rooms.Range(func(key, value any) bool {
		r := value.(*Room)
		if now.Sub(r.LastActiveTime()) > m.opts.IdleTimeout {
			toEvict = append(toEvict, r)
		}
		return true
	})

	for _, r := range toEvict {
		members := r.Evict("idle timeout")
		m.rooms.CompareAndDelete(r.Code(), r)
		m.logger.Info("Evicted inactive room", "roomCode", r.Code(), "members", len(members))
	}
}

// Shutdown 关闭管理器
func (m *Manager) Shutdown(ctx context.Context) error {
	m.stopOnce.Do(func() {
		if m.evictTicker != nil {
			m.evictTicker.Stop()
		}
		close(m.done)
	})

	m.logger.Info("RoomManager shutdown complete", "rooms", m.Count())
	return nil
}
