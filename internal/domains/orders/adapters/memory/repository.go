package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Apurer/uniform-orders-api/internal/domains/orders/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/orders/ports"
	stockdomain "github.com/Apurer/uniform-orders-api/internal/domains/stock/domain"
)

var _ ports.Repository = (*Repository)(nil)

// Repository is an in-memory order persistence adapter.
type Repository struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*domain.Order
}

func NewRepository() *Repository {
	return &Repository{orders: map[uuid.UUID]*domain.Order{}}
}

func (r *Repository) Create(_ context.Context, order *domain.Order) (*domain.Order, error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.orders[order.ID]; exists {
		return nil, ports.ErrAlreadyExists
	}
	clone := order.Clone()
	clone.Version = 1
	r.orders[clone.ID] = clone
	return clone.Clone(), nil
}

func (r *Repository) Get(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return order.Clone(), nil
}

func (r *Repository) Update(_ context.Context, order *domain.Order) (*domain.Order, error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[order.ID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if stored.Version != order.Version {
		return nil, ports.ErrConcurrentUpdate
	}
	clone := order.Clone()
	clone.Version = stored.Version + 1
	r.orders[clone.ID] = clone
	return clone.Clone(), nil
}

func (r *Repository) List(_ context.Context, filter ports.OrderFilter) ([]*domain.Order, error) {
	return r.collect(func(o *domain.Order) bool {
		return filter.Status == nil || o.Status == *filter.Status
	}), nil
}

func (r *Repository) ListBackordered(_ context.Context, key stockdomain.Key) ([]*domain.Order, error) {
	return r.collect(func(o *domain.Order) bool {
		if o.Status != domain.StatusPlaced {
			return false
		}
		for _, line := range o.Lines {
			if line.GarmentID == key.GarmentID && line.SizeID == key.SizeID && line.Backordered > 0 {
				return true
			}
		}
		return false
	}), nil
}

func (r *Repository) ListSettled(_ context.Context, start, end time.Time) ([]*domain.Order, error) {
	return r.collect(func(o *domain.Order) bool {
		return o.Status == domain.StatusSettled && o.SettledAt != nil &&
			!o.SettledAt.Before(start) && !o.SettledAt.After(end)
	}), nil
}

// collect returns clones of the matching orders, oldest first.
func (r *Repository) collect(match func(*domain.Order) bool) []*domain.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if match(o) {
			list = append(list, o.Clone())
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID.String() < list[j].ID.String()
	})
	return list
}
