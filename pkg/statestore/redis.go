package statestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Facilitator-Network/agent-cli-backend/pkg/config"
)

var (
	// KEYS[1]=record ARGV[1]=ttl ms, ARGV[2..]=field/value pairs
	createIfAbsentScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV, 2))
redis.call('PEXPIRE', KEYS[1], ARGV[1])
return 1
`)

	// an expired record is never recreated as a partial hash
	mergeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV))
return 1
`)

	releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

	// KEYS[1]=claim ARGV[1]=owner ARGV[2]=ttl ms
	extendScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0
`)
)

// RedisStore keeps each record in a Redis hash
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	logger *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address is empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Connected to redis", zap.String("address", cfg.Address), zap.Int("db", cfg.DB))
	return NewRedisStoreWithClient(client, cfg.KeyPrefix, logger), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client redis.UniversalClient, prefix string, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (s *RedisStore) recordKey(id string) string {
	return s.prefix + "record:" + id
}

func (s *RedisStore) claimKey(key string) string {
	return s.prefix + "claim:" + key
}

func fieldArgs(fields map[string]string, head ...any) []any {
	args := make([]any, 0, len(head)+2*len(fields))
	args = append(args, head...)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}

// CreateIfAbsent implements Store
func (s *RedisStore) CreateIfAbsent(ctx context.Context, id string, fields map[string]string, ttl time.Duration) (bool, error) {
	if len(fields) == 0 {
		return false, errors.New("no fields to write")
	}
	n, err := createIfAbsentScript.Run(ctx, s.client, []string{s.recordKey(id)}, fieldArgs(fields, ttl.Milliseconds())...).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to create record %s: %w", id, err)
	}
	return n == 1, nil
}

// CreateOrUpdate implements Store
func (s *RedisStore) CreateOrUpdate(ctx context.Context, id string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	n, err := mergeScript.Run(ctx, s.client, []string{s.recordKey(id)}, fieldArgs(fields)...).Int64()
	if err != nil {
		return fmt.Errorf("failed to update record %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get implements Store
func (s *RedisStore) Get(ctx context.Context, id string) (map[string]string, error) {
	fields, err := s.client.HGetAll(ctx, s.recordKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return fields, nil
}

// SetExpiry implements Store
func (s *RedisStore) SetExpiry(ctx context.Context, id string, ttl time.Duration) error {
	ok, err := s.client.Expire(ctx, s.recordKey(id), ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to set expiry on %s: %w", id, err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// DeleteFields implements Store
func (s *RedisStore) DeleteFields(ctx context.Context, id string, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	if err := s.client.HDel(ctx, s.recordKey(id), names...).Err(); err != nil {
		return fmt.Errorf("failed to delete fields on %s: %w", id, err)
	}
	return nil
}

// Claim implements Store
func (s *RedisStore) Claim(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.claimKey(key), owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim %s: %w", key, err)
	}
	return ok, nil
}

// Release implements Store
func (s *RedisStore) Release(ctx context.Context, key, owner string) error {
	n, err := releaseScript.Run(ctx, s.client, []string{s.claimKey(key)}, owner).Int64()
	if err != nil {
		return fmt.Errorf("failed to release %s: %w", key, err)
	}
	if n == 0 {
		s.logger.Debug("Claim not held by owner", zap.String("key", key), zap.String("owner", owner))
	}
	return nil
}

// Extend implements Store
func (s *RedisStore) Extend(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	n, err := extendScript.Run(ctx, s.client, []string{s.claimKey(key)}, owner, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to extend %s: %w", key, err)
	}
	return n == 1, nil
}

// Ping implements Store
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
