// Package storage keeps a best-effort presence cache in Redis: the
// identity of every authenticated connection is mirrored to a TTL'd key
// for cross-process visibility. The cache is never consulted for local
// routing; the in-memory registry stays the source of truth.
package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// presence key: chat:presence:<user>
// value: connection id; TTL bounds staleness after a crash
func presenceKey(user string) string { return "chat:presence:" + user }

type RedisPresence struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisPresence(rdb *redis.Client, ttl time.Duration) *RedisPresence {
	return &RedisPresence{rdb: rdb, ttl: ttl}
}

// Online records the connection id for user and renews the TTL.
func (p *RedisPresence) Online(ctx context.Context, user, connID string) error {
	if err := p.rdb.Set(ctx, presenceKey(user), connID, p.ttl).Err(); err != nil {
		return errors.Wrap(err, "presence online")
	}
	return nil
}

// Offline clears the presence key, but only while it still points at
// connID: a stale disconnect must not wipe a newer connection's entry.
func (p *RedisPresence) Offline(ctx context.Context, user, connID string) error {
	val, err := p.rdb.Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "presence offline")
	}
	if val != connID {
		return nil
	}
	if err := p.rdb.Del(ctx, presenceKey(user)).Err(); err != nil {
		return errors.Wrap(err, "presence offline")
	}
	return nil
}

// Lookup reports whether user has a presence entry, and on which
// connection. Intended for diagnostics and cross-process consumers.
func (p *RedisPresence) Lookup(ctx context.Context, user string) (connID string, online bool, err error) {
	val, err := p.rdb.Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "presence lookup")
	}
	return val, true, nil
}
