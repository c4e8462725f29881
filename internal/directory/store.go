package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jinhan04/bbungkabi-vercel/internal/config"
)

// Entry 房间目录条目
type Entry struct {
	RoomCode  string    `json:"roomCode"`
	Players   []string  `json:"players"`
	Phase     string    `json:"phase"`
	Round     int       `json:"round"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store 目录存储
type Store interface {
	Save(ctx context.Context, e Entry) error
	Delete(ctx context.Context, roomCode string) error
	List(ctx context.Context) ([]Entry, error)
	Ping(ctx context.Context) error
}

// RedisStore 基于 Redis 的目录存储
//
// Key: <prefix>:room:<code> (Hash, 带 TTL)，索引 <prefix>:rooms (Set)
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisStore 创建 Redis 目录存储
func NewRedisStore(cfg config.RedisConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "bbungkabe"
	}
	ttl := cfg.RoomTTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}

	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: slog.Default().With("component", "RoomDirectory"),
	}
}

// BuildRoomKey 房间条目 key
func BuildRoomKey(prefix, roomCode string) string {
	return prefix + ":room:" + roomCode
}

// BuildIndexKey 房间索引 key
func BuildIndexKey(prefix string) string {
	return prefix + ":rooms"
}

// Save 写入或刷新房间条目
func (s *RedisStore) Save(ctx context.Context, e Entry) error {
	players, err := json.Marshal(e.Players)
	if err != nil {
		return fmt.Errorf("failed to marshal players: %w", err)
	}

	key := BuildRoomKey(s.prefix, e.RoomCode)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key,
		"roomCode", e.RoomCode,
		"players", string(players),
		"phase", e.Phase,
		"round", e.Round,
		"updatedAt", e.UpdatedAt.UnixMilli())
	pipe.Expire(ctx, key, s.ttl)
	pipe.SAdd(ctx, BuildIndexKey(s.prefix), e.RoomCode)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save room %s: %w", e.RoomCode, err)
	}
	return nil
}

// Delete 删除房间条目
func (s *RedisStore) Delete(ctx context.Context, roomCode string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, BuildRoomKey(s.prefix, roomCode))
	pipe.SRem(ctx, BuildIndexKey(s.prefix), roomCode)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete room %s: %w", roomCode, err)
	}
	return nil
}

// List 列出所有房间，顺带清理索引中已过期的房间号
func (s *RedisStore) List(ctx context.Context) ([]Entry, error) {
	indexKey := BuildIndexKey(s.prefix)
	codes, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	if len(codes) == 0 {
		return []Entry{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(codes))
	for i, code := range codes {
		cmds[i] = pipe.HGetAll(ctx, BuildRoomKey(s.prefix, code))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to load rooms: %w", err)
	}

	entries := make([]Entry, 0, len(codes))
	var stale []any
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			stale = append(stale, codes[i])
			continue
		}
		e, err := entryFromHash(fields)
		if err != nil {
			s.logger.Warn("Skipping malformed room entry", "roomCode", codes[i], "error", err)
			continue
		}
		entries = append(entries, e)
	}

	if len(stale) > 0 {
		if err := s.client.SRem(ctx, indexKey, stale...).Err(); err != nil {
			s.logger.Warn("Failed to prune room index", "error", err)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].RoomCode < entries[j].RoomCode })
	return entries, nil
}

func entryFromHash(fields map[string]string) (Entry, error) {
	e := Entry{
		RoomCode: fields["roomCode"],
		Phase:    fields["phase"],
	}
	if e.RoomCode == "" {
		return e, errors.New("missing roomCode")
	}
	if v := fields["players"]; v != "" {
		if err := json.Unmarshal([]byte(v), &e.Players); err != nil {
			return e, fmt.Errorf("bad players: %w", err)
		}
	}
	if v := fields["round"]; v != "" {
		round, err := strconv.Atoi(v)
		if err != nil {
			return e, fmt.Errorf("bad round: %w", err)
		}
		e.Round = round
	}
	if v := fields["updatedAt"]; v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return e, fmt.Errorf("bad updatedAt: %w", err)
		}
		e.UpdatedAt = time.UnixMilli(ms)
	}
	return e, nil
}

// Ping 检查 Redis 连接
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close 关闭连接
func (s *RedisStore) Close() error {
	return s.client.Close()
}
