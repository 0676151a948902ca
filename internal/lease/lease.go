// FilePath: internal/lease/lease.go
package lease

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	nuts "github.com/vaudience/go-nuts"
)

// Locker hands out exclusive, expiring leases on a key. TryAcquire never
// waits: it reports false when someone else holds the key.
type Locker interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (Lease, bool, error)
}

// Lease is a held lock. Release is safe to call more than once.
type Lease interface {
	Release(ctx context.Context) error
}

// releaseScript deletes the key only while it still holds our token, so an
// expired lease never removes a successor's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client redis.UniversalClient
}

func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (Lease, bool, error) {
	token := nuts.NID("lease", 16)
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &redisLease{client: l.client, key: key, token: token}, true, nil
}

type redisLease struct {
	client redis.UniversalClient
	key    string
	token  string
	once   sync.Once
	err    error
}

func (l *redisLease) Release(ctx context.Context) error {
	l.once.Do(func() {
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
			l.err = fmt.Errorf("failed to release lease %s: %w", l.key, err)
		}
	})
	return l.err
}

// LocalLocker is an in-process Locker for single-replica deployments.
type LocalLocker struct {
	mu     sync.Mutex
	held   map[string]localEntry
	now    func() time.Time
	serial uint64
}

type localEntry struct {
	serial  uint64
	expires time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]localEntry), now: time.Now}
}

func (l *LocalLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (Lease, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if entry, ok := l.held[key]; ok && now.Before(entry.expires) {
		return nil, false, nil
	}
	l.serial++
	l.held[key] = localEntry{serial: l.serial, expires: now.Add(ttl)}
	return &localLease{locker: l, key: key, serial: l.serial}, true, nil
}

type localLease struct {
	locker *LocalLocker
	key    string
	serial uint64
}

func (l *localLease) Release(ctx context.Context) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	if entry, ok := l.locker.held[l.key]; ok && entry.serial == l.serial {
		delete(l.locker.held, l.key)
	}
	return nil
}
