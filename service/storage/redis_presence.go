// Package storage keeps the cross-node presence map in Redis: which gateway
// node, if any, a participant is currently connected to.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

var (
	rdb *redis.Client
	ctx = context.Background()
)

func InitRedis(c Config) error {
	rdb = redis.NewClient(&redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB})
	return rdb.Ping(ctx).Err()
}

// Enabled reports whether a Redis presence backend is configured; single-node
// deployments run without it and treat local subscriptions as the whole map.
func Enabled() bool { return rdb != nil }

// presence key: im:presence:<user>
// Value: gateway node ID, TTL controls the online validity period
func presenceKey(user string) string { return "im:presence:" + user }

// PresenceOnline sets the user as online on the given node and renews the TTL.
// The gateway re-calls this on every heartbeat.
func PresenceOnline(user, nodeID string, ttl time.Duration) error {
	if rdb == nil {
		return fmt.Errorf("redis not initialized")
	}
	return rdb.Set(ctx, presenceKey(user), nodeID, ttl).Err()
}

// PresenceOffline actively sets the user offline (deletes the key)
func PresenceOffline(user string) error {
	if rdb == nil {
		return fmt.Errorf("redis not initialized")
	}
	return rdb.Del(ctx, presenceKey(user)).Err()
}

// PresenceLookup checks whether the user is online anywhere in the cluster.
func PresenceLookup(user string) (nodeID string, online bool, err error) {
	if rdb == nil {
		return "", false, fmt.Errorf("redis not initialized")
	}
	val, err := rdb.Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}
