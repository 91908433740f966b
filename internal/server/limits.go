package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const quotaKeyPrefix = "axiom:quota:"

// GuestQuota caps chat requests per unauthenticated caller per UTC day.
type GuestQuota struct {
	rdb    *redis.Client
	limit  int
	logger *zap.Logger
	now    func() time.Time
}

// NewGuestQuota returns a quota; a nil client or a limit of 0 disables it.
func NewGuestQuota(rdb *redis.Client, limit int, logger *zap.Logger) *GuestQuota {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GuestQuota{rdb: rdb, limit: limit, logger: logger, now: time.Now}
}

func (q *GuestQuota) enabled() bool { return q != nil && q.rdb != nil && q.limit > 0 }

func (q *GuestQuota) key(caller string) string {
	return fmt.Sprintf("%s%s:%s", quotaKeyPrefix, caller, q.now().UTC().Format("2006-01-02"))
}

// Allow counts one request for caller and reports whether it is within the limit.
func (q *GuestQuota) Allow(ctx context.Context, caller string) (bool, error) {
	if !q.enabled() {
		return true, nil
	}
	key := q.key(caller)
	n, err := q.rdb.Incr(ctx, key).Result()
	if err != nil {
		return true, err
	}
	if n == 1 {
		if err := q.rdb.Expire(ctx, key, 24*time.Hour).Err(); err != nil {
			return true, err
		}
	}
	return n <= int64(q.limit), nil
}

// Middleware applies the quota to guests. Redis failures let the request through.
func (q *GuestQuota) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !q.enabled() || authenticated(c) {
				return next(c)
			}
			// guests are counted per address
			ok, err := q.Allow(c.Request().Context(), c.RealIP())
			if err != nil {
				q.logger.Warn("guest quota check failed", zap.Error(err))
			}
			if !ok {
				return echo.NewHTTPError(http.StatusTooManyRequests, "daily guest limit reached, sign in to continue")
			}
			return next(c)
		}
	}
}
