package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	limiterhttp "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// NewLimiterStore возвращает хранилище счётчиков: Redis, если задан redisURL, иначе память процесса.
func NewLimiterStore(redisURL, prefix string) (limiter.Store, error) {
	if redisURL == "" {
		return memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          prefix,
			CleanUpInterval: time.Minute,
		}), nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	store, err := sredis.NewStoreWithOptions(redis.NewClient(opts), limiter.StoreOptions{Prefix: prefix})
	if err != nil {
		return nil, fmt.Errorf("create redis limiter store: %w", err)
	}
	return store, nil
}

// LoginLimiter ограничивает число попыток входа на один идентификатор в окне времени.
type LoginLimiter struct {
	limiter *limiter.Limiter
}

// NewLoginLimiter создаёт ограничитель на attempts попыток за window.
func NewLoginLimiter(store limiter.Store, attempts int64, window time.Duration) *LoginLimiter {
	return &LoginLimiter{
		limiter: limiter.New(store, limiter.Rate{Period: window, Limit: attempts}),
	}
}

// Allow учитывает попытку и сообщает, разрешена ли она. Второе значение: через сколько сбросится окно.
func (l *LoginLimiter) Allow(ctx context.Context, identifier string) (bool, time.Duration, error) {
	lc, err := l.limiter.Get(ctx, loginKey(identifier))
	if err != nil {
		return false, 0, fmt.Errorf("rate limiter: %w", err)
	}
	if lc.Reached {
		return false, time.Until(time.Unix(lc.Reset, 0)), nil
	}
	return true, 0, nil
}

// Reset очищает счётчик после успешного входа.
func (l *LoginLimiter) Reset(ctx context.Context, identifier string) error {
	if _, err := l.limiter.Reset(ctx, loginKey(identifier)); err != nil {
		return fmt.Errorf("rate limiter reset: %w", err)
	}
	return nil
}

func loginKey(identifier string) string {
	return "login:" + strings.ToLower(strings.TrimSpace(identifier))
}

// RateLimit ограничивает общее число запросов с одного IP.
func RateLimit(store limiter.Store, rate limiter.Rate) func(http.Handler) http.Handler {
	mw := limiterhttp.NewMiddleware(limiter.New(store, rate))
	return mw.Handler
}
