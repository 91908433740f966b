package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/axiom/tools/web_search/models"
)

const keyPrefix = "axiom:search:"

// Redis caches retrieval responses. Errors are swallowed: a cache miss only costs a
// provider round trip.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) (models.Response, bool) {
	val, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		return models.Response{}, false
	}
	var resp models.Response
	if err := json.Unmarshal(val, &resp); err != nil {
		return models.Response{}, false
	}
	return resp, true
}

func (r *Redis) Set(ctx context.Context, key string, resp models.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	_ = r.client.Set(ctx, keyPrefix+key, data, r.ttl).Err()
}
