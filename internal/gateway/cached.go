package gateway

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// CachedMedia caches positive existence lookups: catalog titles do not
// disappear, so a hit is safe to reuse. Misses are not cached because a
// title may be published between lookups.
type CachedMedia struct {
	next   Media
	client *goredis.Client
	ttl    time.Duration
}

func NewCachedMedia(next Media, client *goredis.Client, ttl time.Duration) *CachedMedia {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedMedia{next: next, client: client, ttl: ttl}
}

func (g *CachedMedia) Exists(ctx context.Context, mediaID string) (bool, error) {
	key := fmt.Sprintf("media:exists:%s", mediaID)
	if g.client != nil {
		if _, err := g.client.Get(ctx, key).Result(); err == nil {
			return true, nil
		}
	}

	ok, err := g.next.Exists(ctx, mediaID)
	if err != nil {
		return false, err
	}
	if ok && g.client != nil {
		_ = g.client.Set(ctx, key, "1", g.ttl).Err()
	}
	return ok, nil
}
