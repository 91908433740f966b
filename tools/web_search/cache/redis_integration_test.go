package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mohammad-safakhou/axiom/tools/web_search/models"
)

func TestRedisCacheRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	redisC, err := tcRedis.RunContainer(ctx, testcontainers.WithWaitStrategy(wait.ForListeningPort("6379/tcp")))
	if err != nil {
		t.Fatalf("redis container: %v", err)
	}
	defer func() { _ = redisC.Terminate(ctx) }()

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	defer client.Close()

	c := NewRedis(client, time.Minute)
	if _, ok := c.Get(ctx, "web|7|go"); ok {
		t.Fatalf("expected miss on empty cache")
	}
	want := models.Response{
		Results: []models.Result{{Title: "Go", URL: "https://go.dev", Content: "The Go language"}},
		Images:  []string{"https://go.dev/logo.png"},
	}
	c.Set(ctx, "web|7|go", want)
	got, ok := c.Get(ctx, "web|7|go")
	if !ok {
		t.Fatalf("expected hit after set")
	}
	if len(got.Results) != 1 || got.Results[0].URL != "https://go.dev" || len(got.Images) != 1 {
		t.Fatalf("unexpected cached response %+v", got)
	}
	ttl, err := client.TTL(ctx, keyPrefix+"web|7|go").Result()
	if err != nil || ttl <= 0 {
		t.Fatalf("expected ttl on cached key, got %v (%v)", ttl, err)
	}
}
