// Package mgo manages the MongoDB connection backing the credential
// store. The connection is started asynchronously; callers gate on
// WaitReady before touching the database.
package mgo

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ChatRelay/global/config"
)

type MongoManager struct {
	mu        sync.RWMutex
	db        *mongo.Database
	readyCh   chan struct{} // closed once, on first successful connect
	readyOnce sync.Once

	lastErr atomic.Value // error
}

var globalMgr = MongoManager{readyCh: make(chan struct{})}

// StartAsync runs until ctx is cancelled. It retries the initial connect
// with exponential backoff and jitter, and closes the ready channel the
// first time a connection succeeds.
func StartAsync(ctx context.Context, cfg *config.MongoConfig) {
	go func() {
		const (
			baseBackoff = 200 * time.Millisecond
			maxBackoff  = 5 * time.Second
		)

		attempt := 0
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			db, err := connect(ctx, cfg)
			if err == nil {
				globalMgr.mu.Lock()
				globalMgr.db = db
				globalMgr.mu.Unlock()
				globalMgr.readyOnce.Do(func() { close(globalMgr.readyCh) })

				<-ctx.Done()
				globalMgr.mu.Lock()
				if globalMgr.db != nil {
					_ = globalMgr.db.Client().Disconnect(context.Background())
					globalMgr.db = nil
				}
				globalMgr.mu.Unlock()
				return
			}
			globalMgr.lastErr.Store(err)

			backoff := baseBackoff << attempt
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			jitter := time.Duration(rand.Int63n(int64(backoff/5) + 1))
			timer := time.NewTimer(backoff - jitter/2)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			if attempt < 6 {
				attempt++
			}
		}
	}()
}

func connect(ctx context.Context, cfg *config.MongoConfig) (*mongo.Database, error) {
	opts := options.Client().ApplyURI(cfg.URI).SetMaxPoolSize(cfg.MaxPoolSize)
	if cfg.Username != "" {
		opts.SetAuth(options.Credential{Username: cfg.Username, Password: cfg.Password})
	}

	var (
		cli *mongo.Client
		err error
	)
	for i := 0; i < cfg.MaxRetry; i++ {
		cli, err = mongo.Connect(ctx, opts)
		if err == nil {
			if err = cli.Ping(ctx, nil); err == nil {
				return cli.Database(cfg.Database), nil
			}
			// Connected but unreachable: release the client before retrying.
			_ = cli.Disconnect(ctx)
		}
		time.Sleep(time.Second / 2)
	}
	return nil, fmt.Errorf("connect mongo %s: %w", cfg.URI, err)
}

// Ready is closed on first successful connect.
func Ready() <-chan struct{} {
	return globalMgr.readyCh
}

func Manager() *MongoManager {
	return &globalMgr
}

// Err reports the most recent connect error, nil if none.
func Err() error {
	if v := globalMgr.lastErr.Load(); v != nil {
		return v.(error)
	}
	return nil
}

func GetDB() *mongo.Database {
	globalMgr.mu.RLock()
	defer globalMgr.mu.RUnlock()
	if globalMgr.db == nil {
		panic("Mongo not ready: wait Ready() or use TryGetDB()")
	}
	return globalMgr.db
}

func TryGetDB() (*mongo.Database, bool) {
	globalMgr.mu.RLock()
	defer globalMgr.mu.RUnlock()
	if globalMgr.db == nil {
		return nil, false
	}
	return globalMgr.db, true
}

// WaitReady blocks until the first connection succeeds or ctx expires.
func WaitReady(ctx context.Context, m *MongoManager) error {
	m.mu.RLock()
	connected := m.db != nil
	m.mu.RUnlock()
	if connected {
		return nil
	}

	select {
	case <-m.readyCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
