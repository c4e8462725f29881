package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jinhan04/bbungkabi-vercel/internal/room"
	"github.com/jinhan04/bbungkabi-vercel/internal/workerpool"
)

// Publisher 消息发布接口，*Client 与 *nats.Conn 都满足
type Publisher interface {
	Publish(subject string, data []byte) error
}

// RoomMessage 发布到 NATS 的房间事件
type RoomMessage struct {
	RoomCode    string    `json:"roomCode"`
	Event       string    `json:"event"`
	Seq         uint64    `json:"seq"`
	Data        any       `json:"data"`
	PublishedAt time.Time `json:"publishedAt"`
}

// BuildRoomSubject 房间事件主题：<prefix>.room.<code>.events
func BuildRoomSubject(prefix, roomCode string) string {
	return fmt.Sprintf("%s.room.%s.events", prefix, roomCode)
}

// ResultPublisher 把回合结算、整局结束与房间关闭事件发布到 NATS
//
// 作为 room.Sink 使用：序列化在调用方完成，网络发送交给工作池。
type ResultPublisher struct {
	pub    Publisher
	prefix string
	pool   *workerpool.Pool
	logger *slog.Logger
}

// NewResultPublisher 创建结果发布器
func NewResultPublisher(pub Publisher, prefix string, pool *workerpool.Pool) *ResultPublisher {
	if prefix == "" {
		prefix = "bbungkabe"
	}
	return &ResultPublisher{
		pub:    pub,
		prefix: prefix,
		pool:   pool,
		logger: slog.Default().With("component", "ResultPublisher"),
	}
}

func published(name string) bool {
	switch name {
	case room.EventRoundEnded, room.EventGameComplete, room.EventRoomClosed:
		return true
	}
	return false
}

// Emit 实现 room.Sink
func (p *ResultPublisher) Emit(ev room.Event) {
	if !published(ev.Name) {
		return
	}

	data, err := json.Marshal(RoomMessage{
		RoomCode:    ev.Room,
		Event:       ev.Name,
		Seq:         ev.Seq,
		Data:        ev.Data,
		PublishedAt: time.Now(),
	})
	if err != nil {
		p.logger.Error("Failed to marshal room event", "roomCode", ev.Room, "event", ev.Name, "error", err)
		return
	}

	subject := BuildRoomSubject(p.prefix, ev.Room)
	if !p.pool.TrySubmit(func() { p.publish(subject, ev.Room, ev.Name, data) }) {
		p.logger.Warn("Dropped room event", "roomCode", ev.Room, "event", ev.Name)
	}
}

func (p *ResultPublisher) publish(subject, roomCode, event string, data []byte) {
	if err := p.pub.Publish(subject, data); err != nil {
		p.logger.Error("Failed to publish room event",
			"roomCode", roomCode,
			"event", event,
			"error", err)
		return
	}
	p.logger.Debug("Published room event", "roomCode", roomCode, "event", event, "subject", subject)
}
