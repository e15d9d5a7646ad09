package imports

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
	"github.com/angelmondragon/pricelist-backend/pkg/redis"
)

// JobStore persists job contexts between invocations.
type JobStore interface {
	Save(ctx context.Context, job *JobContext) error
	Load(ctx context.Context, id uuid.UUID) (*JobContext, error)
	// ActiveJob returns the id of the unfinished job for a price list, if any.
	ActiveJob(ctx context.Context, priceListID uuid.UUID) (uuid.UUID, bool, error)
	SetActive(ctx context.Context, priceListID, jobID uuid.UUID) (bool, error)
	ClearActive(ctx context.Context, priceListID, jobID uuid.UUID) error
}

type redisClient interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	ImportJobKey(jobID string) string
	ActiveImportKey(priceListID string) string
}

// RedisJobStore keeps job contexts as JSON with a TTL.
type RedisJobStore struct {
	client redisClient
	ttl    time.Duration
}

func NewRedisJobStore(client redisClient, ttl time.Duration) (*RedisJobStore, error) {
	if client == nil {
		return nil, errors.New("redis client required for job store")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisJobStore{client: client, ttl: ttl}, nil
}

func (s *RedisJobStore) Save(ctx context.Context, job *JobContext) error {
	data, err := job.Marshal()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode import job")
	}
	if err := s.client.Set(ctx, s.client.ImportJobKey(job.ID.String()), data, s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save import job")
	}
	return nil
}

func (s *RedisJobStore) Load(ctx context.Context, id uuid.UUID) (*JobContext, error) {
	raw, err := s.client.Get(ctx, s.client.ImportJobKey(id.String()))
	if errors.Is(err, redis.ErrNil) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "import job not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load import job")
	}
	job, err := UnmarshalJobContext([]byte(raw))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode import job")
	}
	return job, nil
}

func (s *RedisJobStore) ActiveJob(ctx context.Context, priceListID uuid.UUID) (uuid.UUID, bool, error) {
	raw, err := s.client.Get(ctx, s.client.ActiveImportKey(priceListID.String()))
	if errors.Is(err, redis.ErrNil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active import")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, nil
	}
	return id, true, nil
}

func (s *RedisJobStore) SetActive(ctx context.Context, priceListID, jobID uuid.UUID) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.client.ActiveImportKey(priceListID.String()), jobID.String(), s.ttl)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark active import")
	}
	return ok, nil
}

func (s *RedisJobStore) ClearActive(ctx context.Context, priceListID, jobID uuid.UUID) error {
	current, ok, err := s.ActiveJob(ctx, priceListID)
	if err != nil || !ok || current != jobID {
		return err
	}
	if err := s.client.Del(ctx, s.client.ActiveImportKey(priceListID.String())); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear active import")
	}
	return nil
}

// MemoryJobStore keeps jobs in process. The CLI uses it when no Redis is configured.
type MemoryJobStore struct {
	mu     sync.Mutex
	jobs   map[uuid.UUID][]byte
	active map[uuid.UUID]uuid.UUID
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: map[uuid.UUID][]byte{}, active: map[uuid.UUID]uuid.UUID{}}
}

func (s *MemoryJobStore) Save(_ context.Context, job *JobContext) error {
	data, err := job.Marshal()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode import job")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = data
	return nil
}

func (s *MemoryJobStore) Load(_ context.Context, id uuid.UUID) (*JobContext, error) {
	s.mu.Lock()
	data, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "import job not found")
	}
	return UnmarshalJobContext(data)
}

func (s *MemoryJobStore) ActiveJob(_ context.Context, priceListID uuid.UUID) (uuid.UUID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.active[priceListID]
	return id, ok, nil
}

func (s *MemoryJobStore) SetActive(_ context.Context, priceListID, jobID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.active[priceListID]; exists {
		return false, nil
	}
	s.active[priceListID] = jobID
	return true, nil
}

func (s *MemoryJobStore) ClearActive(_ context.Context, priceListID, jobID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[priceListID] == jobID {
		delete(s.active, priceListID)
	}
	return nil
}
