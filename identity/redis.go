package identity

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/merchkit/go-storefront/consts"
)

// Redis is a Store backed by a redis key, for storefront hosts that share
// session state across processes. The key never expires client-side; the
// backend's own cart TTL is the source of truth for staleness.
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis stores the identity under consts.IdentityNamespace, suffixed
// with sessionKey so multiple shopper sessions can share one redis.
func NewRedis(client *redis.Client, sessionKey string) *Redis {
	key := consts.IdentityNamespace
	if sessionKey != "" {
		key += ":" + sessionKey
	}
	return &Redis{client: client, key: key}
}

func (r *Redis) Load(ctx context.Context) (string, error) {
	val, err := r.client.Get(ctx, r.key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("load cart identity: %w", err)
	}
	return val, nil
}

func (r *Redis) Save(ctx context.Context, id string) error {
	if err := r.client.Set(ctx, r.key, id, 0).Err(); err != nil {
		return fmt.Errorf("save cart identity: %w", err)
	}
	return nil
}

func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("clear cart identity: %w", err)
	}
	return nil
}
