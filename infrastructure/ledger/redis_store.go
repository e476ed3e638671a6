package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis ledger backend.
type RedisConfig struct {
	Address  string
	Password string
	Database int

	// Prefix is prepended to every day key, e.g. "packdash:ledger:".
	Prefix string

	// TTL bounds how long a day's list survives. Only today is ever read.
	TTL time.Duration

	Timeout time.Duration
}

func DefaultRedisConfig(address string) RedisConfig {
	return RedisConfig{
		Address: address,
		Prefix:  "packdash:ledger:",
		TTL:     48 * time.Hour,
		Timeout: 5 * time.Second,
	}
}

// RedisStore keeps one list of keys per day so several processes can share
// a ledger.
type RedisStore struct {
	cfg    RedisConfig
	client *redis.Client
}

// NewRedisStore connects and pings the server.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.Database,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisStore{cfg: cfg, client: client}, nil
}

func (s *RedisStore) key(day string) string {
	return s.cfg.Prefix + day
}

// days lists the day keys currently stored under the prefix.
func (s *RedisStore) days(ctx context.Context) ([]string, error) {
	var days []string
	iter := s.client.Scan(ctx, 0, s.cfg.Prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		days = append(days, strings.TrimPrefix(iter.Val(), s.cfg.Prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan ledger keys: %w", err)
	}
	return days, nil
}

func (s *RedisStore) Load(ctx context.Context) (Ledger, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	days, err := s.days(ctx)
	if err != nil {
		return nil, err
	}
	l := make(Ledger, len(days))
	for _, day := range days {
		keys, err := s.client.LRange(ctx, s.key(day), 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("read ledger day %s: %w", day, err)
		}
		l[day] = keys
	}
	return l, nil
}

// Save replaces the stored days with l in a single MULTI/EXEC.
func (s *RedisStore) Save(ctx context.Context, l Ledger) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	stale, err := s.days(ctx)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, day := range stale {
			if _, keep := l[day]; !keep {
				pipe.Del(ctx, s.key(day))
			}
		}
		for day, keys := range l {
			k := s.key(day)
			pipe.Del(ctx, k)
			if len(keys) == 0 {
				continue
			}
			values := make([]any, len(keys))
			for i, key := range keys {
				values[i] = key
			}
			pipe.RPush(ctx, k, values...)
			if s.cfg.TTL > 0 {
				pipe.Expire(ctx, k, s.cfg.TTL)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save ledger to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
