package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"watchparty/internal/domain/room"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Cache key patterns:
// - room:{room_id}:snapshot - room row plus member count, short TTL

type CacheConfig struct {
	RoomTTL time.Duration
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		RoomTTL: 30 * time.Second,
	}
}

// RoomCache caches room snapshots. Misses and Redis failures fall through
// to the database; correctness never depends on the cache.
type RoomCache struct {
	client *goredis.Client
	config CacheConfig
}

func NewRoomCache(client *goredis.Client, config CacheConfig) *RoomCache {
	return &RoomCache{client: client, config: config}
}

type roomSnapshot struct {
	Room        room.Room `json:"room"`
	MemberCount int64     `json:"member_count"`
}

func (c *RoomCache) Get(ctx context.Context, roomID uuid.UUID) (room.Room, int64, bool) {
	data, err := c.client.Get(ctx, snapshotKey(roomID)).Result()
	if err != nil {
		return room.Room{}, 0, false
	}
	var snap roomSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return room.Room{}, 0, false
	}
	return snap.Room, snap.MemberCount, true
}

func (c *RoomCache) Set(ctx context.Context, rm room.Room, memberCount int64) {
	data, err := json.Marshal(roomSnapshot{Room: rm, MemberCount: memberCount})
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, snapshotKey(rm.ID), data, c.config.RoomTTL).Err()
}

func (c *RoomCache) Invalidate(ctx context.Context, roomID uuid.UUID) {
	_ = c.client.Del(ctx, snapshotKey(roomID)).Err()
}

func snapshotKey(roomID uuid.UUID) string {
	return fmt.Sprintf("room:%s:snapshot", roomID)
}
