// Package lock provides mutual exclusion for reconciliation cycles.
//
// The in-process lock prevents overlapping cycles inside one binary (scheduler
// tick racing an admin-triggered run). The Redis lock extends that guarantee
// across replicas.
package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"idsync/pkg/platform/sentinel"
)

// Release frees a held lock. It is safe to call more than once.
type Release func(ctx context.Context) error

// Local is an in-process, non-blocking lock keyed by name.
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocal() *Local {
	return &Local{held: make(map[string]struct{})}
}

// Acquire takes key or returns sentinel.ErrConflict when it is already held.
func (l *Local) Acquire(_ context.Context, key string, _ time.Duration) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, fmt.Errorf("lock %s: %w", key, sentinel.ErrConflict)
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
		return nil
	}, nil
}

// releaseScript deletes the key only if it still carries our token, so an
// expired holder cannot release a lock taken over by another process.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a single-instance SET NX PX lock.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client, prefix: "idsync:lock:"}
}

// Acquire sets key with a random token for ttl. Returns sentinel.ErrConflict
// if another holder owns it.
func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	fullKey := r.prefix + key
	ok, err := r.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("lock %s: %w", key, sentinel.ErrConflict)
	}

	var once sync.Once
	return func(ctx context.Context) error {
		var relErr error
		once.Do(func() {
			if err := releaseScript.Run(ctx, r.client, []string{fullKey}, token).Err(); err != nil {
				relErr = fmt.Errorf("release lock %s: %w", key, err)
			}
		})
		return relErr
	}, nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
