// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tashanwin/gamesvc/internal/engine"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultSettlementQueue is the Redis list downstream settlement and
// analytics consumers drain.
var DefaultSettlementQueue = "gamesvc_settlements"

// RoundResultRecord is the settlement feed entry for one resolved round.
type RoundResultRecord struct {
	Variant    string         `json:"variant"`
	RoundID    uint64         `json:"round_id"`
	Outcome    engine.Outcome `json:"outcome"`
	WagerCount int            `json:"wager_count"`
	ResolvedAt int64          `json:"resolved_at"`
}

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// PublishRoundResult serializes the record and pushes it onto the
// settlement queue. The push is fire-and-forget from the round clock's
// point of view; the consumer owns retries.
func PublishRoundResult(ctx context.Context, record RoundResultRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal RoundResultRecord: %w", err)
	}

	queueName := getEnv("SETTLEMENT_QUEUE_NAME", DefaultSettlementQueue)
	if err := Rdb.RPush(ctx, queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queueName, err)
	}
	return nil
}

// PushRecentOutcome prepends the outcome to the variant's capped recent
// list so other service instances can serve history without hitting
// postgres.
func PushRecentOutcome(ctx context.Context, variant string, out engine.Outcome, keep int) error {
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}

	key := fmt.Sprintf("gamesvc:recent:%s", variant)
	pipe := Rdb.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, int64(keep-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push recent outcome for '%s': %w", variant, err)
	}
	return nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
