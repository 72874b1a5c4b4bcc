package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"tripseal-backend/internal/config"

	"github.com/redis/go-redis/v9"
)

// Cache keys
const (
	BalanceKeyFmt      = "coins:balance:%d"
	SessionStatsKey    = "sessions:stats"
	ActivityCountKey   = "activity:count"
)

var client *redis.Client

// Init initializes the Redis connection. Failure degrades gracefully: every
// helper below no-ops when the client is nil.
func Init(cfg *config.Config) error {
	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		client = nil
		return err
	}
	return nil
}

// hashCredentials creates a hash of email+password for cache key
func hashCredentials(email, password string) string {
	h := sha256.New()
	h.Write([]byte(email + ":" + password))
	return "auth:" + hex.EncodeToString(h.Sum(nil))[:32]
}

// GetCachedAuth checks if credentials are cached and valid
func GetCachedAuth(ctx context.Context, email, password string) (int64, bool) {
	if client == nil {
		return 0, false
	}
	key := hashCredentials(email, password)
	accountID, err := client.Get(ctx, key).Int64()
	if err != nil {
		return 0, false
	}
	return accountID, true
}

// CacheAuth caches valid credentials for 15 minutes
func CacheAuth(ctx context.Context, email, password string, accountID int64) {
	if client == nil {
		return
	}
	key := hashCredentials(email, password)
	client.Set(ctx, key, accountID, 15*time.Minute)
}

// InvalidateAuth removes cached auth for an account (on password change)
func InvalidateAuth(ctx context.Context, email, password string) {
	if client == nil {
		return
	}
	key := hashCredentials(email, password)
	client.Del(ctx, key)
}

// GetCached returns cached data for a key
func GetCached(ctx context.Context, key string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetCached stores data with a TTL
func SetCached(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if client == nil {
		return
	}
	client.Set(ctx, key, data, ttl)
}

// InvalidatePattern removes all keys matching a glob pattern
func InvalidatePattern(ctx context.Context, pattern string) {
	if client == nil {
		return
	}
	keys, err := client.Keys(ctx, pattern).Result()
	if err == nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateKeys removes specific cache keys
func InvalidateKeys(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	client.Del(ctx, keys...)
}

// InvalidateAccountCaches clears account and balance caches
// Called when: provisioning, toggling, coin allocation, session creation
func InvalidateAccountCaches(ctx context.Context, accountIDs ...int) {
	InvalidatePattern(ctx, "accounts:*")
	for _, id := range accountIDs {
		InvalidateKeys(ctx, fmt.Sprintf(BalanceKeyFmt, id))
	}
}

// InvalidateSessionCaches clears session listing and stat caches
// Called when: CreateSession, VerifySeal, UpdateSealStatus, CompleteVerification
func InvalidateSessionCaches(ctx context.Context) {
	InvalidatePattern(ctx, "sessions:*")
	InvalidateKeys(ctx, SessionStatsKey)
}

// InvalidateActivityCaches clears activity listing caches
func InvalidateActivityCaches(ctx context.Context) {
	InvalidatePattern(ctx, "activity:*")
}

// IsHealthy returns true if Redis connection is working
func IsHealthy() bool {
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}
