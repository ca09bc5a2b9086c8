// Package redis holds the redis-backed stores: rate windows and the match
// event channel.
package redis

import (
	"context"
	"errors"
	"fmt"
	"net"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ivankudzin/swapspace/internal/repo"
)

func NewClient(addr, password string, db int) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// classify wraps network and pool failures with repo.ErrUnavailable so
// callers can tell them apart from bad input.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, goredis.ErrClosed), errors.As(err, &netErr):
		return fmt.Errorf("%s: %w: %w", op, repo.ErrUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
