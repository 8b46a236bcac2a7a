package orders

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/joao-fontenele/orderflow-lifecycle/internal/domain"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps orders in process. It backs local runs without Postgres
// and the engine tests.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: map[string]*domain.Order{}}
}

func (s *MemoryStore) Create(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.ID]; ok {
		return fmt.Errorf("create order %s: already exists", order.ID)
	}
	for _, existing := range s.orders {
		if existing.OrderCode == order.OrderCode {
			return fmt.Errorf("create order %s: %w", order.OrderCode, ErrDuplicateCode)
		}
	}
	order.Version = 1
	s.orders[order.ID] = order.Clone()
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok || order.DeletedAt != nil {
		return nil, nil
	}
	return order.Clone(), nil
}

func (s *MemoryStore) Find(_ context.Context, filter Filter) ([]*domain.Order, error) {
	s.mu.RLock()
	matched := make([]*domain.Order, 0)
	for _, order := range s.orders {
		if filter.Match(order) {
			matched = append(matched, order.Clone())
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *domain.Order) int {
		switch {
		case filter.Less(a, b):
			return -1
		case filter.Less(b, a):
			return 1
		}
		return 0
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []*domain.Order{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (s *MemoryStore) Save(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.orders[order.ID]
	if !ok || current.DeletedAt != nil {
		return ErrNotFound
	}
	if current.Version != order.Version {
		return ErrConflict
	}
	order.Version++
	s.orders[order.ID] = order.Clone()
	return nil
}

func (s *MemoryStore) SoftDelete(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.orders[id]
	if !ok || current.DeletedAt != nil {
		return ErrNotFound
	}
	current.DeletedAt = &at
	current.Version++
	return nil
}
