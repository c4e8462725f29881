package gateway

import (
	"context"
	"log/slog"
	"time"
)

// HeartbeatChecker 定期关闭长时间没有上行数据的连接
//
// 关闭只作用于传输层，读协程随之退出并按断线处理离开房间。
type HeartbeatChecker struct {
	conns    *ConnManager
	timeout  time.Duration
	interval time.Duration
	logger   *slog.Logger
}

// NewHeartbeatChecker 创建心跳检测器，非正值使用 90s 超时与 30s 检查间隔
func NewHeartbeatChecker(conns *ConnManager, timeout, interval time.Duration) *HeartbeatChecker {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HeartbeatChecker{
		conns:    conns,
		timeout:  timeout,
		interval: interval,
		logger:   slog.Default().With("component", "Heartbeat"),
	}
}

// Run 阻塞直到 ctx 结束
func (h *HeartbeatChecker) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if stale := h.sweep(now); len(stale) > 0 {
				h.logger.Info("Closed idle connections", "count", len(stale), "remaining", h.conns.Count())
			}
		}
	}
}

// sweep 关闭并移除 now 之前超过 timeout 未活跃的连接
func (h *HeartbeatChecker) sweep(now time.Time) []*Connection {
	deadline := now.Add(-h.timeout)

	var stale []*Connection
	for _, conn := range h.conns.GetAllConnections() {
		if conn.LastActiveTime().After(deadline) {
			continue
		}
		stale = append(stale, conn)
		conn.Close("heartbeat timeout")
		h.conns.Remove(conn.ID())
	}
	return stale
}
