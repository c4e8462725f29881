package gateway

import (
	"sync"
)

// ConnManager 管理所有连接
type ConnManager struct {
	connections map[string]*Connection
	mu          sync.RWMutex
}

func NewConnManager() *ConnManager {
	return &ConnManager{
		connections: make(map[string]*Connection),
	}
}

func (m *ConnManager) Add(conn *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[conn.ID()] = conn
}

func (m *ConnManager) Remove(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.connections, connID)
}

func (m *ConnManager) Get(connID string) *Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connections[connID]
}

func (m *ConnManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// GetAllConnections 返回所有连接（用于心跳检测与关闭）
func (m *ConnManager) GetAllConnections() []*Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conns := make([]*Connection, 0, len(m.connections))
	for _, conn := range m.connections {
		conns = append(conns, conn)
	}
	return conns
}

// CloseAll 关闭所有连接
func (m *ConnManager) CloseAll(reason string) {
	for _, conn := range m.GetAllConnections() {
		conn.Close(reason)
	}
}
