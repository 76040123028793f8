package earnings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultTTL bounds how long a cached calendar is trusted.
const DefaultTTL = 30 * 24 * time.Hour

// RedisStore keeps calendars in Redis as JSON under "<prefix><SYMBOL>".
type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore. A zero ttl uses DefaultTTL.
func NewRedisStore(client redis.Cmdable, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "earnings:"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return rdb, nil
}

func (s *RedisStore) key(symbol string) string {
	return s.prefix + strings.ToUpper(symbol)
}

// Load implements Store. A missing key returns nil without error.
func (s *RedisStore) Load(ctx context.Context, symbol string) (*Entry, error) {
	val, err := s.client.Get(ctx, s.key(symbol)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(val, &entry); err != nil {
		return nil, fmt.Errorf("decoding cached calendar: %w", err)
	}
	return &entry, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, symbol string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding calendar: %w", err)
	}
	if err := s.client.Set(ctx, s.key(symbol), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
