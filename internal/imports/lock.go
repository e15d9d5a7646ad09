package imports

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pricelist-backend/pkg/redis"
)

// Lock guards one price list while an invocation runs.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Locker hands out per price list locks.
type Locker interface {
	ForPriceList(priceListID uuid.UUID) (Lock, error)
}

// RedisLocker builds redis SETNX locks keyed by price list.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl}
}

func (l *RedisLocker) ForPriceList(priceListID uuid.UUID) (Lock, error) {
	return redis.NewLock(l.client, l.client.ImportLockKey(priceListID.String()), l.ttl)
}

// LocalLocker serializes invocations inside one process.
type LocalLocker struct {
	mu   sync.Mutex
	held map[uuid.UUID]bool
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: map[uuid.UUID]bool{}}
}

func (l *LocalLocker) ForPriceList(priceListID uuid.UUID) (Lock, error) {
	return &localLock{parent: l, id: priceListID}, nil
}

type localLock struct {
	parent *LocalLocker
	id     uuid.UUID
	owned  bool
}

func (l *localLock) Acquire(context.Context) (bool, error) {
	l.parent.mu.Lock()
	defer l.parent.mu.Unlock()
	if l.parent.held[l.id] {
		return false, nil
	}
	l.parent.held[l.id] = true
	l.owned = true
	return true, nil
}

func (l *localLock) Release(context.Context) error {
	if !l.owned {
		return nil
	}
	l.parent.mu.Lock()
	defer l.parent.mu.Unlock()
	delete(l.parent.held, l.id)
	l.owned = false
	return nil
}
