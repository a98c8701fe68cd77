// Package ratelimit — ограничитель частоты запросов на Redis
package ratelimit

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/antonvlasov/badgeswap-api/internal/cache"
)

// Limiter считает запросы в скользящем окне
type Limiter struct {
	cache *cache.Client
}

// New создает новый экземпляр Limiter
func New(c *cache.Client) *Limiter {
	return &Limiter{cache: c}
}

// Allow инкрементирует счетчик ключа и сообщает, укладывается ли он в лимит
func (l *Limiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	pipe := l.cache.R.TxPipeline()
	incr := pipe.Incr(ctx, "rl:"+key)
	pipe.Expire(ctx, "rl:"+key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= limit, nil
}

// Middleware ограничивает частоту запросов авторизованного пользователя.
// При недоступном Redis запросы пропускаются
func (l *Limiter) Middleware(prefix string, limit int64, window time.Duration) fiber.Handler {
	return func(c fiber.Ctx) error {
		userID, _ := c.Locals("userID").(string)
		if userID == "" {
			return c.Next()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		ok, err := l.Allow(ctx, prefix+":"+userID, limit, window)
		if err != nil {
			log.Printf("Ошибка ограничителя запросов: %v", err)
			return c.Next()
		}
		if !ok {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Слишком много запросов, попробуйте позже",
			})
		}
		return c.Next()
	}
}
