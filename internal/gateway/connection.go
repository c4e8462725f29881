package gateway

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendQueueFull    = errors.New("send queue full")
)

// Transport 底层传输，WebSocket 与 WebTransport 各有一个实现
//
// WriteFrame 只会被连接的写协程调用。
type Transport interface {
	WriteFrame(data []byte) error
	Close(reason string) error
	RemoteAddr() string
	Kind() string
}

// ConnOptions 连接参数
type ConnOptions struct {
	SendQueueSize   int
	EventsPerSecond float64 // <= 0 表示不限速
	Burst           int
	ChatCooldown    time.Duration
}

// Connection 表示一个客户端连接
type Connection struct {
	id         string
	transport  Transport
	logger     *slog.Logger
	writeChan  chan []byte
	closeChan  chan struct{}
	closeOnce  sync.Once
	lastActive atomic.Int64

	limiter     *rate.Limiter
	chatLimiter *rate.Limiter

	mu       sync.RWMutex
	roomCode string
	nickname string
}

// NewConnection 创建连接并启动写协程
func NewConnection(t Transport, opts ConnOptions) *Connection {
	if opts.SendQueueSize <= 0 {
		opts.SendQueueSize = 256
	}
	id := uuid.NewString()
	c := &Connection{
		id:        id,
		transport: t,
		logger:    slog.Default().With("component", "Connection", "connId", id, "transport", t.Kind()),
		writeChan: make(chan []byte, opts.SendQueueSize),
		closeChan: make(chan struct{}),
	}
	if opts.EventsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = int(opts.EventsPerSecond) + 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.EventsPerSecond), burst)
	}
	if opts.ChatCooldown > 0 {
		c.chatLimiter = rate.NewLimiter(rate.Every(opts.ChatCooldown), 1)
	}
	c.Touch()

	go c.writeLoop()
	return c
}

func (c *Connection) ID() string {
	return c.id
}

func (c *Connection) RemoteAddr() string {
	return c.transport.RemoteAddr()
}

// Send 非阻塞入队，队列满时返回 ErrSendQueueFull
func (c *Connection) Send(data []byte) error {
	if c.closed() {
		return ErrConnectionClosed
	}

	select {
	case c.writeChan <- data:
		return nil
	case <-c.closeChan:
		return ErrConnectionClosed
	default:
		return ErrSendQueueFull
	}
}

func (c *Connection) writeLoop() {
	for {
		select {
		case data := <-c.writeChan:
			if err := c.transport.WriteFrame(data); err != nil {
				c.logger.Debug("Failed to write frame", "error", err)
				c.Close("write failed")
				return
			}
		case <-c.closeChan:
			return
		}
	}
}

// Close 关闭连接，可重复调用
func (c *Connection) Close(reason string) {
	c.closeOnce.Do(func() {
		close(c.closeChan)
		if err := c.transport.Close(reason); err != nil {
			c.logger.Debug("Transport close failed", "error", err)
		}
	})
}

// closed 连接是否已关闭
func (c *Connection) closed() bool {
	select {
	case <-c.closeChan:
		return true
	default:
		return false
	}
}

// Touch 刷新活跃时间
func (c *Connection) Touch() {
	c.lastActive.Store(time.Now().UnixNano())
}

func (c *Connection) LastActiveTime() time.Time {
	return time.Unix(0, c.lastActive.Load())
}

// Allow 通用事件限速
func (c *Connection) Allow() bool {
	return c.limiter == nil || c.limiter.Allow()
}

// AllowChat 聊天冷却
func (c *Connection) AllowChat() bool {
	return c.chatLimiter == nil || c.chatLimiter.Allow()
}

// Binding 当前绑定的房间与昵称
func (c *Connection) Binding() (roomCode, nickname string, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomCode, c.nickname, c.roomCode != ""
}

func (c *Connection) bind(roomCode, nickname string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomCode, c.nickname = roomCode, nickname
}

// unbind 仅当仍绑定在 roomCode 时解除，返回是否解除
func (c *Connection) unbind(roomCode string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.roomCode != roomCode {
		return false
	}
	c.roomCode, c.nickname = "", ""
	return true
}
