package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"phResumeRender/internal/resume"
)

// StorageKey 临时存储中简历数据使用的键名。
const StorageKey = "resumeData"

// Store 会话级临时存储，用于预览页刷新后恢复数据。
type Store interface {
	Save(ctx context.Context, session string, rec *resume.Record) error
	// Load 在数据不存在或无法解析时返回 ErrNotFound。
	Load(ctx context.Context, session string) (*resume.Record, error)
}

func storageKey(session string) string { return StorageKey + ":" + session }

// decodeStored 解析存储中的数据，格式错误记录日志后视为不存在。
func decodeStored(logger *slog.Logger, session string, raw []byte) (*resume.Record, error) {
	var rec resume.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		logger.Warn("stored resume data is malformed", slog.String("session", session), slog.Any("error", err))
		return nil, ErrNotFound
	}
	return &rec, nil
}

type redisKV interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisStore 使用 Redis 保存会话数据，键为 resumeData:<session>。
type RedisStore struct {
	client redisKV
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisStore 创建 Redis 存储，ttl 为每次写入后的过期时间。
func NewRedisStore(client redisKV, ttl time.Duration, logger *slog.Logger) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, logger: logger}
}

// Save 实现 Store。
func (s *RedisStore) Save(ctx context.Context, session string, rec *resume.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal resume: %w", err)
	}
	if err := s.client.Set(ctx, storageKey(session), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save resume data: %w", err)
	}
	return nil
}

// Load 实现 Store。
func (s *RedisStore) Load(ctx context.Context, session string) (*resume.Record, error) {
	raw, err := s.client.Get(ctx, storageKey(session)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load resume data: %w", err)
	}
	return decodeStored(s.logger, session, raw)
}

// MemoryStore 进程内存储，供单机运行与测试使用。
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// NewMemoryStore 创建进程内存储，ttl <= 0 表示不过期。
func NewMemoryStore(ttl time.Duration, logger *slog.Logger) *MemoryStore {
	return &MemoryStore{ttl: ttl, logger: logger, now: time.Now, entries: map[string]memoryEntry{}}
}

// Save 实现 Store。
func (s *MemoryStore) Save(_ context.Context, session string, rec *resume.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal resume: %w", err)
	}
	s.put(session, data)
	return nil
}

func (s *MemoryStore) put(session string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := memoryEntry{data: data}
	if s.ttl > 0 {
		entry.expires = s.now().Add(s.ttl)
	}
	s.entries[session] = entry
}

// Load 实现 Store。
func (s *MemoryStore) Load(_ context.Context, session string) (*resume.Record, error) {
	s.mu.Lock()
	entry, ok := s.entries[session]
	if ok && !entry.expires.IsZero() && s.now().After(entry.expires) {
		delete(s.entries, session)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decodeStored(s.logger, session, entry.data)
}
