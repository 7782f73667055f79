// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// TTLs by payload class. Character and appearance data changes rarely;
// search results go stale faster.
const (
	CharacterTTL   = 7 * 24 * time.Hour
	AppearancesTTL = 7 * 24 * time.Hour
	SubjectTTL     = 14 * 24 * time.Hour
	SearchTTL      = 24 * time.Hour
)

// Rdb is the global Redis client. Connect it once at application startup.
// The catalog layer degrades to uncached fetches when it is nil.
var Rdb *redis.Client

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	Rdb = client
	return nil
}

// GetJSON loads key into dest. Returns false on miss, on an unavailable
// client, or when the stored payload fails to decode.
func GetJSON(ctx context.Context, key string, dest interface{}) bool {
	if Rdb == nil {
		return false
	}
	raw, err := Rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logrus.Warnf("redis get %s: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		logrus.Warnf("redis decode %s: %v", key, err)
		return false
	}
	return true
}

// SetJSON stores v under key with the given TTL. Cache writes are best
// effort; failures are logged and swallowed.
func SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	if Rdb == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		logrus.Warnf("redis encode %s: %v", key, err)
		return
	}
	if err := Rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		logrus.Warnf("redis set %s: %v", key, err)
	}
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
