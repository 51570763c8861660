package orgauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	errOtcRateLimited        = errors.New("otc quota exceeded")
	errOtcLimiterUnavailable = errors.New("otc limiter unavailable")
)

// otcQuota is the limiter's answer for one request attempt.
type otcQuota struct {
	// Count is the attempt number this request landed on, including itself.
	Count int
	// Remaining requests inside the current window, after this attempt.
	Remaining int
	// CooldownSeconds until the next allowed attempt, as whole minutes
	// expressed in seconds. Zero while within quota.
	CooldownSeconds int
}

// otcLimiter enforces the per-identity code-request quota with a Redis
// fixed window. The INCR is what makes the quota race-proof: two concurrent
// requests get distinct counts, so the read-check-write gap of a plain
// counter cannot be exploited by double-clicking resend.
type otcLimiter struct {
	redis  *redis.Client
	config OtcConfig
}

func newOtcLimiter(redisClient *redis.Client, cfg OtcConfig) *otcLimiter {
	return &otcLimiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Take consumes one request slot for the email. It returns errOtcRateLimited
// with a populated cooldown when the quota is exhausted, and
// errOtcLimiterUnavailable on Redis failure.
func (l *otcLimiter) Take(ctx context.Context, email string) (otcQuota, error) {
	key := l.requestKey(email)

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return otcQuota{}, fmt.Errorf("%w: %v", errOtcLimiterUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return otcQuota{}, fmt.Errorf("%w: %v", errOtcLimiterUnavailable, err)
		}
	}

	quota := otcQuota{
		Count:     int(count),
		Remaining: l.config.Quota - int(count),
	}
	if quota.Remaining < 0 {
		quota.Remaining = 0
	}

	if count > int64(l.config.Quota) {
		ttl, err := l.redis.PTTL(ctx, key).Result()
		if err != nil {
			return otcQuota{}, fmt.Errorf("%w: %v", errOtcLimiterUnavailable, err)
		}
		if ttl < 0 {
			ttl = l.config.Window
		}
		quota.CooldownSeconds = wholeMinutesSeconds(ttl)
		return quota, errOtcRateLimited
	}

	return quota, nil
}

// Reset clears the email's window. Called on successful full login only.
func (l *otcLimiter) Reset(ctx context.Context, email string) error {
	if err := l.redis.Del(ctx, l.requestKey(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", errOtcLimiterUnavailable, err)
	}
	return nil
}

func (l *otcLimiter) requestKey(email string) string {
	return l.config.RedisPrefix + ":req:" + strings.ToLower(email)
}

// wholeMinutesSeconds rounds d up to whole minutes and returns seconds. A
// cooldown is never reported as zero while the window is still open.
func wholeMinutesSeconds(d time.Duration) int {
	minutes := int((d + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return minutes * 60
}
