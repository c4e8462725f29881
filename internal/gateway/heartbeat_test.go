package gateway

import (
	"testing"
	"time"
)

func TestHeartbeatSweep(t *testing.T) {
	conns := NewConnManager()
	stale := NewConnection(&fakeTransport{}, ConnOptions{})
	alive := NewConnection(&fakeTransport{}, ConnOptions{})
	defer alive.Close("done")
	conns.Add(stale)
	conns.Add(alive)

	stale.lastActive.Store(time.Now().Add(-2 * time.Minute).UnixNano())

	checker := NewHeartbeatChecker(conns, time.Minute, time.Second)
	closed := checker.sweep(time.Now())

	if len(closed) != 1 || closed[0] != stale {
		t.Fatalf("应只关闭超时连接，实际关闭 %d 个", len(closed))
	}
	if !stale.closed() {
		t.Error("超时连接应被关闭")
	}
	if alive.closed() {
		t.Error("活跃连接不应被关闭")
	}
	if conns.Count() != 1 {
		t.Errorf("连接数应为 1，实际为 %d", conns.Count())
	}

	if again := checker.sweep(time.Now()); len(again) != 0 {
		t.Errorf("重复检查不应再关闭连接，实际关闭 %d 个", len(again))
	}
}

func TestHeartbeatDefaults(t *testing.T) {
	checker := NewHeartbeatChecker(NewConnManager(), 0, 0)
	if checker.timeout != 90*time.Second {
		t.Errorf("默认超时应为 90s，实际为 %v", checker.timeout)
	}
	if checker.interval != 30*time.Second {
		t.Errorf("默认检查间隔应为 30s，实际为 %v", checker.interval)
	}
}
