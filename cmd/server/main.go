package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jinhan04/bbungkabi-vercel/internal/config"
	"github.com/jinhan04/bbungkabi-vercel/internal/directory"
	"github.com/jinhan04/bbungkabi-vercel/internal/gateway"
	"github.com/jinhan04/bbungkabi-vercel/internal/notify"
	"github.com/jinhan04/bbungkabi-vercel/internal/room"
	"github.com/jinhan04/bbungkabi-vercel/internal/timer"
	"github.com/jinhan04/bbungkabi-vercel/internal/workerpool"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.App.LogLevel),
	}))
	slog.SetDefault(logger)
	gin.SetMode(cfg.App.Mode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := gateway.NewHub()
	sinks := []room.Sink{hub}
	opts := gateway.Options{}

	// NATS 结果通知，url 为空时不启用
	var notifyPool *workerpool.Pool
	if cfg.NATS.URL != "" {
		natsClient, err := notify.NewClient(cfg.NATS)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		logger.Info("Connected to NATS", "url", cfg.NATS.URL)

		// 单协程保证同一房间的通知顺序
		notifyPool = workerpool.New("notify", 1, cfg.WorkerPool.QueueSize)
		sinks = append(sinks, notify.NewResultPublisher(natsClient, cfg.NATS.SubjectPrefix, notifyPool))
		opts.NATS = natsClient
	}

	// Redis 房间目录，addr 为空时不启用
	var directoryPool *workerpool.Pool
	if cfg.Redis.Addr != "" {
		store := directory.NewRedisStore(cfg.Redis)
		defer store.Close()

		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		if err := store.Ping(pingCtx); err != nil {
			logger.Warn("Redis not reachable", "addr", cfg.Redis.Addr, "error", err)
		} else {
			logger.Info("Connected to Redis", "addr", cfg.Redis.Addr)
		}
		pingCancel()

		directoryPool = workerpool.New("directory", 1, cfg.WorkerPool.QueueSize)
		dir := directory.New(store, directoryPool)
		sinks = append(sinks, dir)
		opts.Lister = dir
		opts.Redis = dir
	}

	// 房间管理器先于计时器创建，到期回调通过闭包访问
	var rooms *room.Manager

	var sched *timer.Scheduler
	sink := room.Fanout(sinks...)
	if cfg.Game.TurnTimeoutSeconds > 0 {
		sched = timer.NewScheduler(time.Second, cfg.Game.TimerWorkers)
		if err := sched.Start(); err != nil {
			logger.Error("Failed to start turn timer", "error", err)
			os.Exit(1)
		}
		watcher := timer.NewWatcher(sched, cfg.Game.TurnTimeoutSeconds, func(ctx context.Context, roomCode string, turnSeq uint64) {
			rooms.TurnExpired(roomCode, turnSeq)
		})
		sink = watcher.Wrap(sink)
		opts.Timers = sched
	}

	rooms = room.NewManager(sink, room.ManagerOptions{
		MaxPlayers:    cfg.Game.MaxPlayers,
		IdleTimeout:   cfg.Game.RoomIdleTimeout,
		EvictInterval: cfg.Game.EvictInterval,
	})

	srv := gateway.New(cfg, rooms, hub, opts)
	go func() {
		if err := srv.Start(ctx); err != nil {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("Bbungkabe server started",
		"addr", cfg.Server.Addr,
		"webtransport", cfg.WebTransport.Enabled,
		"turnTimeout", cfg.Game.TurnTimeoutSeconds)

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Gateway shutdown incomplete", "error", err)
	}
	if sched != nil {
		sched.Stop()
	}
	rooms.Shutdown(shutdownCtx)
	if directoryPool != nil {
		directoryPool.Shutdown()
	}
	if notifyPool != nil {
		notifyPool.Shutdown()
	}
	logger.Info("Server stopped")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
