package music

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache memoizes search results in redis. Provider lookups are the
// only slow network calls in the request path, and the same queries
// repeat heavily while a lobby of players is hunting for songs.
type Cache struct {
	client Client
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCache(client Client, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{client: client, rdb: rdb, ttl: ttl, logger: logger}
}

func cacheKey(query string, allowExplicit bool) string {
	return fmt.Sprintf("tracksearch:%t:%s", allowExplicit, strings.ToLower(strings.TrimSpace(query)))
}

func (c *Cache) Search(ctx context.Context, query string, allowExplicit bool) ([]Track, error) {
	key := cacheKey(query, allowExplicit)

	if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var tracks []Track
		if err := json.Unmarshal(data, &tracks); err == nil {
			return tracks, nil
		}
	} else if err != redis.Nil {
		c.logger.WarnContext(ctx, "track cache read failed", "error", err)
	}

	tracks, err := c.client.Search(ctx, query, allowExplicit)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(tracks); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "track cache write failed", "error", err)
		}
	}
	return tracks, nil
}

// Ensure Cache implements Client at compile time.
var _ Client = (*Cache)(nil)
