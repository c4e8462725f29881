package gateway

import (
	"time"

	"github.com/gorilla/websocket"
)

// wsTransport gorilla/websocket 连接，每个文本消息是一帧 JSON
type wsTransport struct {
	socket       *websocket.Conn
	writeTimeout time.Duration
}

func newWSTransport(socket *websocket.Conn, writeTimeout time.Duration, maxMessageSize int64, onPong func()) *wsTransport {
	if maxMessageSize > 0 {
		socket.SetReadLimit(maxMessageSize)
	}
	socket.SetPongHandler(func(appData string) error {
		onPong()
		return nil
	})
	return &wsTransport{socket: socket, writeTimeout: writeTimeout}
}

func (t *wsTransport) WriteFrame(data []byte) error {
	t.socket.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	return t.socket.WriteMessage(websocket.TextMessage, data)
}

// Ping 可与 WriteFrame 并发调用
func (t *wsTransport) Ping() error {
	return t.socket.WriteControl(websocket.PingMessage, nil, time.Now().Add(t.writeTimeout))
}

func (t *wsTransport) Read() ([]byte, error) {
	_, p, err := t.socket.ReadMessage()
	return p, err
}

func (t *wsTransport) Close(reason string) error {
	t.socket.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
		time.Now().Add(time.Second))
	return t.socket.Close()
}

func (t *wsTransport) RemoteAddr() string {
	return t.socket.RemoteAddr().String()
}

func (t *wsTransport) Kind() string {
	return "websocket"
}
