package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Apurer/uniform-orders-api/internal/domains/returns/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/returns/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository keeps returns in memory. One lock covers the guard and the append.
type Repository struct {
	mu      sync.Mutex
	returns map[uuid.UUID]*domain.Return
	byOrder map[uuid.UUID][]uuid.UUID
}

func NewRepository() *Repository {
	return &Repository{
		returns: map[uuid.UUID]*domain.Return{},
		byOrder: map[uuid.UUID][]uuid.UUID{},
	}
}

func (r *Repository) Append(_ context.Context, ret *domain.Return, guard ports.Guard) (*domain.Return, error) {
	if ret == nil {
		return nil, errors.New("return is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.returns[ret.ID]; exists {
		return nil, fmt.Errorf("return %s already stored", ret.ID)
	}
	if guard != nil {
		if err := guard(r.listLocked(ret.OrderID)); err != nil {
			return nil, err
		}
	}
	clone := ret.Clone()
	r.returns[clone.ID] = clone
	r.byOrder[clone.OrderID] = append(r.byOrder[clone.OrderID], clone.ID)
	return clone.Clone(), nil
}

func (r *Repository) Get(_ context.Context, id uuid.UUID) (*domain.Return, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ret, ok := r.returns[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return ret.Clone(), nil
}

func (r *Repository) ListByOrder(_ context.Context, orderID uuid.UUID) ([]*domain.Return, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listLocked(orderID), nil
}

func (r *Repository) ListOutstanding(_ context.Context) ([]*domain.Return, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Return, 0)
	for _, ret := range r.returns {
		if ret.HasOutstanding() {
			out = append(out, ret.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *Repository) AppendFulfillment(_ context.Context, returnID uuid.UUID, f domain.Fulfillment) (*domain.Return, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.returns[returnID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	next := stored.Clone()
	if err := next.Fulfill(f.ID, f.ReturnLineID, f.Quantity, f.CreatedAt); err != nil {
		return nil, err
	}
	r.returns[returnID] = next.Clone()
	return next.Clone(), nil
}

func (r *Repository) listLocked(orderID uuid.UUID) []*domain.Return {
	ids := r.byOrder[orderID]
	out := make([]*domain.Return, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.returns[id].Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
