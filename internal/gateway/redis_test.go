package gateway

import (
	"context"
	"os"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisTestNamespace atomic.Int64

func openRedisGateway(testContext *testing.T) *Redis {
	testContext.Helper()
	address := os.Getenv("PAGEBUILDER_TEST_REDIS_ADDR")
	if address == "" {
		testContext.Skip("PAGEBUILDER_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: address})
	testContext.Cleanup(func() { _ = client.Close() })

	prefix := "pagebuilder-test-" + strconv.FormatInt(time.Now().UnixNano(), 36) + "-" + strconv.FormatInt(redisTestNamespace.Add(1), 10)
	testContext.Cleanup(func() {
		ctx := context.Background()
		keys, err := client.Keys(ctx, prefix+":*").Result()
		if err == nil && len(keys) > 0 {
			_ = client.Del(ctx, keys...).Err()
		}
	})

	gateway, err := NewRedis(RedisConfig{Client: client, KeyPrefix: prefix, Clock: newSteppingClock().Now})
	if err != nil {
		testContext.Fatalf("failed to build gateway: %v", err)
	}
	return gateway
}

func TestRedisContract(testContext *testing.T) {
	runContract(testContext, func(t *testing.T) Gateway {
		return openRedisGateway(t)
	})
}

func TestNewRedisRequiresClient(testContext *testing.T) {
	_, err := NewRedis(RedisConfig{})
	requireCode(testContext, err, "redis.new.missing_client")
}

func TestRedisKeyLayout(testContext *testing.T) {
	keys := redisKeys{prefix: "site"}
	if keys.page("7") != "site:page:7" {
		testContext.Fatalf("unexpected page key %q", keys.page("7"))
	}
	if keys.all() != "site:pages:all" || keys.sequence() != "site:pages:seq" {
		testContext.Fatalf("unexpected index keys %q %q", keys.all(), keys.sequence())
	}
}

func TestRedisSequentialIdentifiers(testContext *testing.T) {
	gateway := openRedisGateway(testContext)
	ctx := context.Background()

	first, err := gateway.Create(ctx, PageDraft{Title: "One"})
	if err != nil {
		testContext.Fatalf("create: %v", err)
	}
	second, err := gateway.Create(ctx, PageDraft{Title: "Two"})
	if err != nil {
		testContext.Fatalf("create: %v", err)
	}
	if first.ID != "1" || second.ID != "2" {
		testContext.Fatalf("expected ids 1 and 2, got %q and %q", first.ID, second.ID)
	}
}
