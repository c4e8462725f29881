package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/jinhan04/bbungkabi-vercel/internal/config"
	"github.com/jinhan04/bbungkabi-vercel/internal/directory"
	"github.com/jinhan04/bbungkabi-vercel/internal/health"
	"github.com/jinhan04/bbungkabi-vercel/internal/room"
)

// RoomLister 房间目录，Redis 未启用时为 nil
type RoomLister interface {
	List(ctx context.Context) ([]directory.Entry, error)
}

// Server 连接网关
//
// 使用示例：
//
//	hub := gateway.NewHub()
//	rooms := room.NewManager(hub, room.ManagerOptions{})
//	srv := gateway.New(cfg, rooms, hub, gateway.Options{})
//	go srv.Start(ctx)
type Server struct {
	cfg        *config.Config
	rooms      *room.Manager
	hub        *Hub
	dispatcher *Dispatcher
	conns      *ConnManager
	lister     RoomLister
	health     *health.Checker

	engine     *gin.Engine
	httpServer *http.Server
	upgrader   websocket.Upgrader
	wt         *webTransportServer

	wg     sync.WaitGroup
	logger *slog.Logger
}

// Options 可选的外部依赖，未启用时保持 nil
type Options struct {
	Lister RoomLister
	NATS   health.ConnState
	Redis  health.Pinger
	Timers health.Counter
}

// New 创建网关
func New(cfg *config.Config, rooms *room.Manager, hub *Hub, opts Options) *Server {
	s := &Server{
		cfg:   cfg,
		rooms: rooms,
		hub:   hub,
		dispatcher: NewDispatcher(rooms, hub, DispatcherOptions{
			ReportRejections: cfg.Game.ReportRejections,
		}),
		conns:  NewConnManager(),
		lister: opts.Lister,
		logger: slog.Default().With("component", "Gateway"),
	}
	s.health = health.NewChecker(cfg.App.Name, opts.NATS, opts.Redis, s.conns, rooms, opts.Timers)

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.Server.ReadBufferSize,
		WriteBufferSize: cfg.Server.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(cfg.Server.AllowedOrigins, r.Header.Get("Origin"))
		},
	}

	s.engine = s.routes()
	return s
}

// ConnManager 返回连接管理器
func (s *Server) ConnManager() *ConnManager {
	return s.conns
}

// Handler 返回 HTTP 处理器
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), Logger(), CORS(s.cfg.Server.AllowedOrigins))

	engine.GET("/ws", s.handleWebSocket)
	engine.GET("/health", gin.WrapF(s.health.LiveHandler))
	engine.GET("/ready", gin.WrapH(s.health))

	api := engine.Group("/api")
	{
		api.GET("/rooms", s.listRooms)
		api.GET("/rooms/:code", s.getRoom)
	}
	return engine
}

// Start 启动 HTTP 与可选的 WebTransport 服务，阻塞直到 ctx 结束或监听失败
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	heartbeat := NewHeartbeatChecker(s.conns, s.cfg.Server.HeartbeatTimeout, s.cfg.Server.HeartbeatCheckInterval)
	go heartbeat.Run(ctx)

	errCh := make(chan error, 2)

	if s.cfg.WebTransport.Enabled {
		wt, err := newWebTransportServer(s)
		if err != nil {
			return err
		}
		s.wt = wt
		go func() {
			if err := wt.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	go func() {
		s.logger.Info("HTTP server starting", "addr", s.cfg.Server.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown 停止接收新连接，关闭现有连接并等待读协程退出
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.conns.CloseAll("server shutdown")

	if s.wt != nil {
		if wtErr := s.wt.Close(); wtErr != nil {
			s.logger.Warn("WebTransport close failed", "error", wtErr)
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.Info("Gateway shutdown complete")
	return err
}

func (s *Server) handleWebSocket(c *gin.Context) {
	socket, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "error", err, "clientIP", c.ClientIP())
		return
	}

	var conn *Connection
	t := newWSTransport(socket, s.cfg.Server.WriteTimeout, s.cfg.Server.MaxMessageSize, func() {
		if conn != nil {
			conn.Touch()
		}
	})
	s.serveWith(t, t.Read, func(opened *Connection) {
		conn = opened
		go s.pingLoop(opened, t)
	})
}

// pingLoop 按心跳超时的三分之一发送 ping
func (s *Server) pingLoop(c *Connection, t *wsTransport) {
	period := s.cfg.Server.HeartbeatTimeout / 3
	if period <= 0 {
		period = 30 * time.Second
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-c.closeChan:
			return
		case <-ticker.C:
			if err := t.Ping(); err != nil {
				c.Close("ping failed")
				return
			}
		}
	}
}

func (s *Server) serve(t Transport, read func() ([]byte, error)) {
	s.serveWith(t, read, nil)
}

// serveWith 注册连接并在当前协程读取上行帧，读失败视为断线
func (s *Server) serveWith(t Transport, read func() ([]byte, error), onOpen func(c *Connection)) {
	s.wg.Add(1)
	defer s.wg.Done()

	conn := NewConnection(t, ConnOptions{
		SendQueueSize:   s.cfg.Server.SendQueueSize,
		EventsPerSecond: s.rateLimit(),
		Burst:           s.cfg.RateLimit.Burst,
		ChatCooldown:    s.cfg.Game.ChatCooldown,
	})
	s.conns.Add(conn)
	if onOpen != nil {
		onOpen(conn)
	}

	logger := s.logger.With("connId", conn.ID(), "transport", t.Kind())
	logger.Debug("Connection opened", "remote", t.RemoteAddr())

	defer func() {
		s.dispatcher.Disconnect(conn)
		s.conns.Remove(conn.ID())
		conn.Close("bye")
		logger.Debug("Connection closed")
	}()

	for {
		data, err := read()
		if err != nil {
			return
		}
		conn.Touch()
		s.dispatcher.Handle(conn, data)
	}
}

func (s *Server) rateLimit() float64 {
	if !s.cfg.RateLimit.Enabled {
		return 0
	}
	return s.cfg.RateLimit.EventsPerSecond
}

func (s *Server) listRooms(c *gin.Context) {
	if s.lister != nil {
		entries, err := s.lister.List(c.Request.Context())
		if err == nil {
			c.JSON(http.StatusOK, gin.H{"rooms": entries, "source": "directory"})
			return
		}
		s.logger.Warn("Room directory unavailable, using local registry", "error", err)
	}

	snapshots := s.rooms.Rooms()
	entries := make([]directory.Entry, 0, len(snapshots))
	for _, snap := range snapshots {
		entries = append(entries, directory.Entry{
			RoomCode:  snap.Code,
			Players:   snap.Players,
			Phase:     snap.Phase,
			Round:     snap.Round,
			UpdatedAt: snap.LastActive,
		})
	}
	c.JSON(http.StatusOK, gin.H{"rooms": entries, "source": "local"})
}

func (s *Server) getRoom(c *gin.Context) {
	r, err := s.rooms.Get(c.Param("code"))
	if err != nil {
		appErr := toAppError(err)
		c.JSON(http.StatusNotFound, gin.H{"code": appErr.Code, "error": appErr.Message})
		return
	}
	c.JSON(http.StatusOK, r.Snapshot())
}
