package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Cheertaboi/storefront-pricing/internal/cart"
)

const cartKeyPrefix = "cart:"

// RedisCartStore keeps each cart as a JSON document under cart:<id>. Every save
// refreshes the TTL so abandoned carts age out.
type RedisCartStore struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedisCartStore(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisCartStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisCartStore{client: client, ttl: ttl, log: log}
}

// NewRedisClient connects and pings within five seconds.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

func cartKey(id string) string {
	return cartKeyPrefix + id
}

func (s *RedisCartStore) Get(ctx context.Context, id string) (*cart.Cart, error) {
	data, err := s.client.Get(ctx, cartKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cart %s: %w", id, err)
	}

	var c cart.Cart
	if err := json.Unmarshal(data, &c); err != nil {
		s.log.Warn("dropping unreadable cart", zap.String("cart_id", id), zap.Error(err))
		_ = s.client.Del(ctx, cartKey(id))
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *RedisCartStore) Save(ctx context.Context, c *cart.Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if err := s.client.Set(ctx, cartKey(c.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save cart %s: %w", c.ID, err)
	}
	return nil
}

func (s *RedisCartStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, cartKey(id)).Err(); err != nil {
		return fmt.Errorf("delete cart %s: %w", id, err)
	}
	return nil
}
