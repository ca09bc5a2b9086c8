package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const revokedSessionPrefix = "sessions:revoked:"

// SessionRepo keeps the revocation list written by the account service on
// logout. Entries expire together with the longest access token they cover.
type SessionRepo struct {
	client *goredis.Client
}

func NewSessionRepo(client *goredis.Client) *SessionRepo {
	return &SessionRepo{client: client}
}

func (r *SessionRepo) Revoke(ctx context.Context, sid string, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(sid) == "" || ttl <= 0 {
		return fmt.Errorf("invalid session revocation payload")
	}

	if err := r.client.Set(ctx, revokedSessionPrefix+sid, 1, ttl).Err(); err != nil {
		return classify("revoke session", err)
	}
	return nil
}

func (r *SessionRepo) IsRevoked(ctx context.Context, sid string) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	n, err := r.client.Exists(ctx, revokedSessionPrefix+sid).Result()
	if err != nil {
		return false, classify("check session revocation", err)
	}
	return n > 0, nil
}
