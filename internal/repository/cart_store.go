package repository

import (
	"context"
	"sync"

	"github.com/Cheertaboi/storefront-pricing/internal/cart"
)

// MemoryCartStore keeps carts in process. Carts are cloned on the way in and out
// so callers never share item slices with the store.
type MemoryCartStore struct {
	mu    sync.RWMutex
	carts map[string]*cart.Cart
}

func NewMemoryCartStore() *MemoryCartStore {
	return &MemoryCartStore{carts: make(map[string]*cart.Cart)}
}

func (s *MemoryCartStore) Get(_ context.Context, id string) (*cart.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.carts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

func (s *MemoryCartStore) Save(_ context.Context, c *cart.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[c.ID] = c.Clone()
	return nil
}

func (s *MemoryCartStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, id)
	return nil
}
