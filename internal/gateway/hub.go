package gateway

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/jinhan04/bbungkabi-vercel/internal/room"
)

// Hub 房间内昵称到连接的投递表，实现 room.Sink
//
// 加入房间前先占位，保证加入过程中产生的事件能送达本人。
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*Connection // roomCode -> nickname -> conn

	logger *slog.Logger
}

func NewHub() *Hub {
	return &Hub{
		rooms:  make(map[string]map[string]*Connection),
		logger: slog.Default().With("component", "Hub"),
	}
}

// Reserve 占用昵称，已被其他连接占用时返回 false
func (h *Hub) Reserve(roomCode, nickname string, c *Connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[roomCode]
	if !ok {
		members = make(map[string]*Connection)
		h.rooms[roomCode] = members
	}
	if existing, ok := members[nickname]; ok && existing != c {
		return false
	}
	members[nickname] = c
	return true
}

// Release 释放昵称，仅当仍由 c 占用时生效
func (h *Hub) Release(roomCode, nickname string, c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.releaseLocked(roomCode, nickname, c)
}

func (h *Hub) releaseLocked(roomCode, nickname string, c *Connection) {
	members, ok := h.rooms[roomCode]
	if !ok {
		return
	}
	if existing, ok := members[nickname]; ok && (c == nil || existing == c) {
		delete(members, nickname)
	}
	if len(members) == 0 {
		delete(h.rooms, roomCode)
	}
}

// lookup 查找昵称对应的连接
func (h *Hub) lookup(roomCode, nickname string) *Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[roomCode][nickname]
}

// Emit 实现 room.Sink，在房间锁内调用，只做序列化与非阻塞入队
func (h *Hub) Emit(ev room.Event) {
	data, err := encodeFrame(outboundFrame{Event: ev.Name, Data: ev.Data, Seq: ev.Seq})
	if err != nil {
		h.logger.Error("Failed to marshal event", "roomCode", ev.Room, "event", ev.Name, "error", err)
		return
	}

	h.mu.RLock()
	members := h.rooms[ev.Room]
	switch ev.Target {
	case room.Only:
		if c, ok := members[ev.Nickname]; ok {
			h.deliver(c, ev, data)
		}
	case room.Except:
		for nickname, c := range members {
			if nickname != ev.Nickname {
				h.deliver(c, ev, data)
			}
		}
	default:
		for _, c := range members {
			h.deliver(c, ev, data)
		}
	}
	h.mu.RUnlock()

	if ev.Name == room.EventRoomClosed {
		h.closeRoom(ev)
	}
}

func (h *Hub) deliver(c *Connection, ev room.Event, data []byte) {
	err := c.Send(data)
	if err == nil {
		return
	}
	if errors.Is(err, ErrSendQueueFull) {
		h.logger.Warn("Send queue full, closing connection",
			"connId", c.ID(),
			"roomCode", ev.Room,
			"event", ev.Name)
		go c.Close("slow consumer")
	}
}

// closeRoom 房间销毁后解除关闭时仍在房间内的玩家绑定
func (h *Hub) closeRoom(ev room.Event) {
	closed, ok := ev.Data.(room.RoomClosed)
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, nickname := range closed.Members {
		c, ok := h.rooms[ev.Room][nickname]
		if !ok {
			continue
		}
		c.unbind(ev.Room)
		h.releaseLocked(ev.Room, nickname, c)
	}
}
