package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Server       ServerConfig       `mapstructure:"server"`
	WebTransport WebTransportConfig `mapstructure:"webtransport"`
	Game         GameConfig         `mapstructure:"game"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	NATS         NATSConfig         `mapstructure:"nats"`
	Redis        RedisConfig        `mapstructure:"redis"`
	WorkerPool   WorkerPoolConfig   `mapstructure:"workerpool"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Mode     string `mapstructure:"mode"`
	LogLevel string `mapstructure:"log_level"`
}

type ServerConfig struct {
	Addr                   string        `mapstructure:"addr"`
	ReadBufferSize         int           `mapstructure:"read_buffer_size"`
	WriteBufferSize        int           `mapstructure:"write_buffer_size"`
	WriteTimeout           time.Duration `mapstructure:"write_timeout"`
	SendQueueSize          int           `mapstructure:"send_queue_size"`
	MaxMessageSize         int64         `mapstructure:"max_message_size"`
	HeartbeatTimeout       time.Duration `mapstructure:"heartbeat_timeout"`
	HeartbeatCheckInterval time.Duration `mapstructure:"heartbeat_check_interval"`
	AllowedOrigins         []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout        time.Duration `mapstructure:"shutdown_timeout"`
}

type WebTransportConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Addr            string        `mapstructure:"addr"`
	CertFile        string        `mapstructure:"cert_file"`
	KeyFile         string        `mapstructure:"key_file"`
	MaxIdleTimeout  time.Duration `mapstructure:"max_idle_timeout"`
	KeepAlivePeriod time.Duration `mapstructure:"keep_alive_period"`
}

type GameConfig struct {
	MaxPlayers         int           `mapstructure:"max_players"`
	RoomIdleTimeout    time.Duration `mapstructure:"room_idle_timeout"`
	EvictInterval      time.Duration `mapstructure:"evict_interval"`
	TurnTimeoutSeconds int           `mapstructure:"turn_timeout_seconds"`
	TimerWorkers       int           `mapstructure:"timer_workers"`
	ReportRejections   bool          `mapstructure:"report_rejections"`
	ChatCooldown       time.Duration `mapstructure:"chat_cooldown"`
}

type RateLimitConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	EventsPerSecond float64 `mapstructure:"events_per_second"`
	Burst           int     `mapstructure:"burst"`
}

type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	SubjectPrefix string        `mapstructure:"subject_prefix"`
}

type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	PoolSize  int           `mapstructure:"pool_size"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	RoomTTL   time.Duration `mapstructure:"room_ttl"`
}

// WorkerPoolConfig 外部 IO 异步队列
//
// 目录与通知各用一个单 worker 的队列，保证同一房间的写入按事件顺序落地。
type WorkerPoolConfig struct {
	QueueSize int `mapstructure:"queue_size"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "bbungkabe")
	v.SetDefault("app.mode", "release")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("server.addr", ":4000")
	v.SetDefault("server.read_buffer_size", 1024)
	v.SetDefault("server.write_buffer_size", 1024)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.send_queue_size", 256)
	v.SetDefault("server.max_message_size", 8192)
	v.SetDefault("server.heartbeat_timeout", 90*time.Second)
	v.SetDefault("server.heartbeat_check_interval", 30*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("webtransport.enabled", false)
	v.SetDefault("webtransport.addr", ":4433")
	v.SetDefault("webtransport.max_idle_timeout", 60*time.Second)
	v.SetDefault("webtransport.keep_alive_period", 20*time.Second)

	v.SetDefault("game.max_players", 6)
	v.SetDefault("game.room_idle_timeout", 30*time.Minute)
	v.SetDefault("game.evict_interval", time.Minute)
	v.SetDefault("game.turn_timeout_seconds", 0)
	v.SetDefault("game.timer_workers", 4)
	v.SetDefault("game.report_rejections", false)
	v.SetDefault("game.chat_cooldown", time.Second)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.events_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", 2*time.Second)
	v.SetDefault("nats.subject_prefix", "bbungkabe")

	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.key_prefix", "bbungkabe")
	v.SetDefault("redis.room_ttl", 2*time.Hour)

	v.SetDefault("workerpool.queue_size", 1024)
}

// Load 从指定路径加载配置，环境变量 BBUNG_<SECTION>_<KEY> 可覆盖文件中的值
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BBUNG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
