package service

import (
	"context"
	"sync"

	"github.com/SN7k/Flexova/internal/cache"
	"github.com/SN7k/Flexova/internal/domain"
)

type mockRepository struct {
	m         sync.Mutex
	carts     map[string]*domain.Cart
	findErr   error
	saveErr   error
	conflicts int // number of upcoming saves to reject as stale
	saves     int
}

func newMockRepository(carts ...*domain.Cart) *mockRepository {
	r := &mockRepository{carts: map[string]*domain.Cart{}}
	for _, c := range carts {
		r.carts[c.UserID] = c.Clone()
	}
	return r
}

func (m *mockRepository) FindCart(_ context.Context, userID string) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	c, ok := m.carts[userID]
	if !ok {
		return nil, domain.ErrCartNotFound
	}
	return c.Clone(), nil
}

func (m *mockRepository) SaveCart(_ context.Context, c *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.conflicts > 0 {
		m.conflicts--
		return domain.ErrVersionConflict
	}
	stored, ok := m.carts[c.UserID]
	if (ok && stored.Version != c.Version) || (!ok && c.Version != 0) {
		return domain.ErrVersionConflict
	}
	c.Version++
	m.carts[c.UserID] = c.Clone()
	m.saves++
	return nil
}

func (m *mockRepository) stored(userID string) *domain.Cart {
	m.m.Lock()
	defer m.m.Unlock()
	return m.carts[userID]
}

func (m *mockRepository) saveCount() int {
	m.m.Lock()
	defer m.m.Unlock()
	return m.saves
}

// mockCache mirrors the version floor kept by the Redis cache.
type mockCache struct {
	m       sync.RWMutex
	cart    *domain.Cart
	floor   int64
	err     error
	deletes int
}

func (m *mockCache) Get(context.Context, string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil {
		return nil, cache.ErrCacheMiss
	}
	return m.cart.Clone(), nil
}

func (m *mockCache) Set(_ context.Context, _ string, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if cart.Version < m.floor || (m.cart != nil && m.cart.Version > cart.Version) {
		return cache.ErrStale
	}
	m.cart = cart
	return nil
}

func (m *mockCache) Invalidate(_ context.Context, _ string, version int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = nil
	m.floor = max(m.floor, version)
	m.deletes++
	return nil
}

func (m *mockCache) getCart() *domain.Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.cart
}

func (m *mockCache) deleteCount() int {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.deletes
}

// gatedCache holds the first Set until release is closed; done is closed once
// that Set has returned. Later Sets pass straight through.
type gatedCache struct {
	*mockCache
	once    sync.Once
	release chan struct{}
	done    chan struct{}
	setErr  error
}

func newGatedCache() *gatedCache {
	return &gatedCache{
		mockCache: &mockCache{},
		release:   make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (g *gatedCache) Set(ctx context.Context, userID string, cart *domain.Cart) error {
	held := false
	g.once.Do(func() { held = true })
	if !held {
		return g.mockCache.Set(ctx, userID, cart)
	}
	defer close(g.done)
	<-g.release
	g.setErr = g.mockCache.Set(ctx, userID, cart)
	return g.setErr
}

type mockProducts struct {
	products map[string]*domain.Product
	err      error
}

func (m mockProducts) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return p, nil
}

var catalog = mockProducts{products: map[string]*domain.Product{
	"p1": {ID: "p1", Name: "Linen Dress", Price: 2499, Images: []string{"dress.jpg"}},
	"p2": {ID: "p2", Name: "Silk Scarf", Price: 999, Images: []string{"scarf.jpg"}},
}}
