package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ivankudzin/swapspace/internal/repo"
)

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	WindowState(ctx context.Context, key string) (int64, time.Duration, error)
}

// window is a fixed counting window. A zero limit disables it.
type window struct {
	prefix string
	size   time.Duration
	limit  int64
}

func (w window) key(userID int64) string {
	return w.prefix + strconv.FormatInt(userID, 10)
}

// Limiter caps how fast one user can record interests.
type Limiter struct {
	store   WindowStore
	windows []window
}

func NewLimiter(store WindowStore, perMinute, per10Sec int) *Limiter {
	return &Limiter{
		store: store,
		windows: []window{
			{prefix: "rate:interests:min:", size: time.Minute, limit: int64(max(perMinute, 0))},
			{prefix: "rate:interests:10s:", size: 10 * time.Second, limit: int64(max(per10Sec, 0))},
		},
	}
}

// AllowInterest counts one attempt against every window. When any window is
// exhausted it returns the seconds until the latest of them resets.
func (l *Limiter) AllowInterest(ctx context.Context, userID int64) (int64, bool, error) {
	if err := l.check(userID); err != nil {
		return 0, false, err
	}

	var retryAfter int64
	for _, w := range l.windows {
		if w.limit == 0 {
			continue
		}
		count, ttl, err := l.store.IncrementWindow(ctx, w.key(userID), w.size)
		if err != nil {
			return 0, false, err
		}
		if count > w.limit {
			retryAfter = max(retryAfter, ceilSeconds(ttl))
		}
	}

	return retryAfter, retryAfter == 0, nil
}

// RetryAfterInterest reports the wait before the next attempt would pass,
// without counting one.
func (l *Limiter) RetryAfterInterest(ctx context.Context, userID int64) (int64, error) {
	if err := l.check(userID); err != nil {
		return 0, err
	}

	var retryAfter int64
	for _, w := range l.windows {
		if w.limit == 0 {
			continue
		}
		count, ttl, err := l.store.WindowState(ctx, w.key(userID))
		if err != nil {
			return 0, err
		}
		if count >= w.limit {
			retryAfter = max(retryAfter, ceilSeconds(ttl))
		}
	}
	return retryAfter, nil
}

func (l *Limiter) check(userID int64) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id %d", userID)
	}
	if l.store == nil {
		return fmt.Errorf("rate limiter store is nil: %w", repo.ErrUnavailable)
	}
	return nil
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return max(int64((d+time.Second-1)/time.Second), 1)
}
