// Package cache — клиент Redis для вспомогательных счетчиков
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/antonvlasov/badgeswap-api/internal/config"
)

// Client оборачивает соединение с Redis
type Client struct {
	R *redis.Client
}

// New создает клиент и проверяет соединение
func New(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ошибка подключения к Redis: %w", err)
	}
	return &Client{R: rdb}, nil
}

// Close закрывает соединение
func (c *Client) Close() error {
	return c.R.Close()
}
