package usecases_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/samirrijal/spatialtiles/internal/core/domain"
	"github.com/samirrijal/spatialtiles/internal/core/ports"
)

// --- Mock GeoidSampler ---

type mockGeoid struct {
	heightFn func(ctx context.Context, lon, lat float64) (float64, error)
	calls    atomic.Int64
}

func (m *mockGeoid) Height(ctx context.Context, lon, lat float64) (float64, error) {
	m.calls.Add(1)
	if m.heightFn != nil {
		return m.heightFn(ctx, lon, lat)
	}
	return 36.7071, nil
}

// --- Mock CacheService ---

var errMiss = errors.New("cache miss")

type mockCache struct {
	mu    sync.Mutex
	data  map[string][]byte
	setFn func(ctx context.Context, key string, value []byte, ttl int) error
	sets  int
}

func newMockCache() *mockCache {
	return &mockCache{data: map[string][]byte{}}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return nil, errMiss
	}
	return b, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	m.data[key] = value
	return nil
}

func (m *mockCache) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	return out
}

// --- Mock BarrierRepository ---

type mockBarrierRepo struct {
	upsertFn  func(ctx context.Context, b *domain.Barrier) error
	getByIDFn func(ctx context.Context, id string) (*domain.Barrier, error)
	listFn    func(ctx context.Context, limit, offset int) ([]domain.Barrier, error)
	deleteFn  func(ctx context.Context, id string) error
}

func (m *mockBarrierRepo) Upsert(ctx context.Context, b *domain.Barrier) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, b)
	}
	return nil
}

func (m *mockBarrierRepo) GetByID(ctx context.Context, id string) (*domain.Barrier, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockBarrierRepo) List(ctx context.Context, limit, offset int) ([]domain.Barrier, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockBarrierRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu     sync.Mutex
	events []ports.BarrierEvent
	err    error
}

func (m *mockPublisher) PublishBarrierEvent(ctx context.Context, e ports.BarrierEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return m.err
}
