package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Cache entry kinds. The kind partitions the keyspace so an enhanced
// prompt and an image generated from it can share the same content key.
const (
	KindPrompt = "prompt"
	KindImage  = "image"
)

const remoteCacheTTL = 30 * 24 * time.Hour

// Remote is the shared content-addressed cache backed by Redis.
type Remote struct {
	client *redis.Client
}

// NewRemote wraps an existing Redis client. A nil client yields a
// disabled cache: lookups miss and writes are no-ops.
func NewRemote(client *redis.Client) *Remote {
	return &Remote{client: client}
}

func remoteKey(kind, key string) string {
	return "cache:" + kind + ":" + key
}

// Lookup returns the cached value for (kind, key). A Redis error is
// logged and reported as a miss so an unhealthy cache never fails a
// generation.
func (r *Remote) Lookup(ctx context.Context, kind, key string) (string, bool) {
	if r == nil || r.client == nil {
		return "", false
	}

	value, err := r.client.Get(ctx, remoteKey(kind, key)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logrus.WithError(err).WithFields(logrus.Fields{
				"kind": kind,
				"key":  key,
			}).Warn("remote_cache_lookup_failed")
		}
		return "", false
	}
	return value, true
}

// Write stores value under (kind, key). Best-effort.
func (r *Remote) Write(ctx context.Context, kind, key, value string) {
	if r == nil || r.client == nil {
		return
	}

	if err := r.client.Set(ctx, remoteKey(kind, key), value, remoteCacheTTL).Err(); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"kind": kind,
			"key":  key,
		}).Warn("remote_cache_write_failed")
	}
}
