package gateway

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
	"github.com/quic-go/webtransport-go"
)

// FrameHeaderSize WebTransport 帧头：4 字节大端长度
const FrameHeaderSize = 4

// wtTransport 一个会话只使用客户端打开的第一个双向流
type wtTransport struct {
	session *webtransport.Session
	stream  *webtransport.Stream
	maxSize uint32
}

// buildFrame 长度前缀 + JSON
func buildFrame(body []byte) []byte {
	frame := make([]byte, FrameHeaderSize+len(body))
	binary.BigEndian.PutUint32(frame[:FrameHeaderSize], uint32(len(body)))
	copy(frame[FrameHeaderSize:], body)
	return frame
}

// readFrame 读取一帧，超过 maxSize 时返回错误
func readFrame(r io.Reader, maxSize uint32) ([]byte, error) {
	header := make([]byte, FrameHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(header)
	if maxSize > 0 && length > maxSize {
		return nil, fmt.Errorf("frame too large: %d", length)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}

func (t *wtTransport) WriteFrame(data []byte) error {
	_, err := t.stream.Write(buildFrame(data))
	return err
}

func (t *wtTransport) Read() ([]byte, error) {
	return readFrame(t.stream, t.maxSize)
}

func (t *wtTransport) Close(reason string) error {
	t.stream.Close()
	return t.session.CloseWithError(0, reason)
}

func (t *wtTransport) RemoteAddr() string {
	return t.session.RemoteAddr().String()
}

func (t *wtTransport) Kind() string {
	return "webtransport"
}

// webTransportServer HTTP/3 上的 WebTransport 入口
type webTransportServer struct {
	gw       *Server
	wtServer *webtransport.Server
	wg       sync.WaitGroup
}

func newWebTransportServer(gw *Server) (*webTransportServer, error) {
	cfg := gw.cfg.WebTransport
	tlsConfig, err := loadTLSConfig(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, err
	}

	quicConfig := &quic.Config{
		MaxIdleTimeout:  cfg.MaxIdleTimeout,
		KeepAlivePeriod: cfg.KeepAlivePeriod,
		EnableDatagrams: true, // WebTransport 需要启用数据报支持
	}

	s := &webTransportServer{gw: gw}
	s.wtServer = &webtransport.Server{
		H3: http3.Server{
			Addr:       cfg.Addr,
			TLSConfig:  tlsConfig,
			QUICConfig: quicConfig,
		},
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(gw.cfg.Server.AllowedOrigins, r.Header.Get("Origin"))
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/webtransport", s.handleUpgrade)
	s.wtServer.H3.Handler = mux

	return s, nil
}

func (s *webTransportServer) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	session, err := s.wtServer.Upgrade(w, r)
	if err != nil {
		s.gw.logger.Warn("WebTransport upgrade failed", "error", err)
		return
	}
	s.wg.Add(1)
	go s.handleSession(session)
}

func (s *webTransportServer) handleSession(session *webtransport.Session) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.gw.cfg.Server.HeartbeatTimeout)
	stream, err := session.AcceptStream(ctx)
	cancel()
	if err != nil {
		session.CloseWithError(4000, "no stream")
		return
	}

	t := &wtTransport{
		session: session,
		stream:  stream,
		maxSize: uint32(s.gw.cfg.Server.MaxMessageSize),
	}
	s.gw.serve(t, t.Read)
}

func (s *webTransportServer) ListenAndServe() error {
	s.gw.logger.Info("WebTransport server starting", "addr", s.gw.cfg.WebTransport.Addr)
	return s.wtServer.ListenAndServe()
}

func (s *webTransportServer) Close() error {
	err := s.wtServer.Close()
	s.wg.Wait()
	return err
}
