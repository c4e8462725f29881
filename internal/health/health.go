package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const (
	StateConnected     = "connected"
	StateDisconnected  = "disconnected"
	StateNotConfigured = "not configured"
)

// Status 健康状态
type Status struct {
	Service     string `json:"service"`
	NATS        string `json:"nats"`
	Redis       string `json:"redis"`
	Connections int    `json:"connections"`
	Rooms       int    `json:"rooms"`
	TurnTimers  int    `json:"turnTimers"`
	Uptime      string `json:"uptime"`
}

// Counter 计数器接口，连接管理器、房间管理器与出牌计时器都满足
type Counter interface {
	Count() int
}

// ConnState NATS 连接状态
type ConnState interface {
	IsConnected() bool
}

// Pinger Redis 可用性检查
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker 健康检查器
//
// nats、redis 与 timers 为 nil 表示未启用，前两者不影响就绪状态。
type Checker struct {
	service string
	nats    ConnState
	redis   Pinger
	conns   Counter
	rooms   Counter
	timers  Counter
	started time.Time
}

// NewChecker 创建健康检查器
func NewChecker(service string, nats ConnState, redis Pinger, conns, rooms, timers Counter) *Checker {
	return &Checker{
		service: service,
		nats:    nats,
		redis:   redis,
		conns:   conns,
		rooms:   rooms,
		timers:  timers,
		started: time.Now(),
	}
}

// Check 执行健康检查
func (h *Checker) Check(ctx context.Context) *Status {
	status := &Status{
		Service: h.service,
		NATS:    StateNotConfigured,
		Redis:   StateNotConfigured,
		Uptime:  time.Since(h.started).Truncate(time.Second).String(),
	}

	if h.nats != nil {
		if h.nats.IsConnected() {
			status.NATS = StateConnected
		} else {
			status.NATS = StateDisconnected
		}
	}

	if h.redis != nil {
		redisCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if err := h.redis.Ping(redisCtx); err == nil {
			status.Redis = StateConnected
		} else {
			status.Redis = StateDisconnected
		}
	}

	if h.conns != nil {
		status.Connections = h.conns.Count()
	}
	if h.rooms != nil {
		status.Rooms = h.rooms.Count()
	}
	if h.timers != nil {
		status.TurnTimers = h.timers.Count()
	}

	return status
}

// Ready 已启用的外部依赖都可用
func (s *Status) Ready() bool {
	return s.NATS != StateDisconnected && s.Redis != StateDisconnected
}

// LiveHandler 存活检查，进程在即返回 200
func (h *Checker) LiveHandler(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, h.Check(r.Context()))
}

// ServeHTTP 就绪检查，依赖不可用时返回 503
func (h *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.Check(r.Context())

	code := http.StatusOK
	if !status.Ready() {
		code = http.StatusServiceUnavailable
	}
	writeStatus(w, code, status)
}

func writeStatus(w http.ResponseWriter, code int, status *Status) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}
