package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 5 * time.Minute

type lockBackend interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DeleteIfEquals(ctx context.Context, key, value string) (bool, error)
}

// Lock is a single-holder lease on one key. Each Acquire writes a fresh owner token
// and Release only deletes the key while that token is still stored, so a holder whose
// lease expired cannot free someone else's lock.
type Lock struct {
	backend lockBackend
	key     string
	ttl     time.Duration
	token   string
}

// NewLock builds a lock on key. A non-positive ttl means five minutes.
func NewLock(backend lockBackend, key string, ttl time.Duration) (*Lock, error) {
	switch {
	case backend == nil:
		return nil, errors.New("redis client required for lock")
	case key == "":
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &Lock{backend: backend, key: key, ttl: ttl}, nil
}

// Acquire reports false without error when another holder owns the key.
func (l *Lock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	ok, err := l.backend.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

func (l *Lock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""
	if _, err := l.backend.DeleteIfEquals(ctx, l.key, token); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
