package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"venuebook/internal/config"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the slot only if it still belongs to the caller, so a
// session whose slot already expired cannot free somebody else's.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSlotRepository keeps checkout slots in Redis so that every process
// sharing the instance sees the same open checkouts.
type RedisSlotRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisSlotRepository(client *redis.Client) *RedisSlotRepository {
	return &RedisSlotRepository{
		client: client,
		prefix: "checkout_slot:",
	}
}

func (r *RedisSlotRepository) key(bookingID string) string {
	return r.prefix + bookingID
}

func (r *RedisSlotRepository) ClaimSlot(ctx context.Context, bookingID, sessionID string, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return false, errors.New("redis client is nil")
	}
	ok, err := r.client.SetNX(ctx, r.key(bookingID), sessionID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim checkout slot: %w", err)
	}
	return ok, nil
}

func (r *RedisSlotRepository) ReleaseSlot(ctx context.Context, bookingID, sessionID string) error {
	if r.client == nil {
		return errors.New("redis client is nil")
	}
	if err := releaseScript.Run(ctx, r.client, []string{r.key(bookingID)}, sessionID).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release checkout slot: %w", err)
	}
	return nil
}

// SlotOwner returns the session holding the booking's slot, or "" if free.
func (r *RedisSlotRepository) SlotOwner(ctx context.Context, bookingID string) (string, error) {
	val, err := r.client.Get(ctx, r.key(bookingID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read checkout slot: %w", err)
	}
	return val, nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
