package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Apurer/uniform-orders-api/internal/domains/settlement/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/settlement/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository keeps cuts in memory. Selection and association share one lock.
type Repository struct {
	mu         sync.Mutex
	cuts       map[uuid.UUID]*domain.CashCut
	lines      map[uuid.UUID][]domain.SettledOrder
	associated map[uuid.UUID]uuid.UUID
}

func NewRepository() *Repository {
	return &Repository{
		cuts:       map[uuid.UUID]*domain.CashCut{},
		lines:      map[uuid.UUID][]domain.SettledOrder{},
		associated: map[uuid.UUID]uuid.UUID{},
	}
}

func (r *Repository) Open(_ context.Context, cut *domain.CashCut, candidates []domain.SettledOrder) (*domain.CutDetail, error) {
	if cut == nil {
		return nil, errors.New("cut is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.cuts[cut.ID]; exists {
		return nil, fmt.Errorf("cut %s already stored", cut.ID)
	}
	stored := cut.Clone()
	fresh := make([]domain.SettledOrder, 0, len(candidates))
	for _, o := range candidates {
		if _, taken := r.associated[o.OrderID]; taken || !stored.Covers(o.SettledAt) {
			continue
		}
		fresh = append(fresh, o)
	}
	if err := stored.Include(fresh...); err != nil {
		return nil, err
	}
	r.cuts[stored.ID] = stored
	r.lines[stored.ID] = fresh
	for _, o := range fresh {
		r.associated[o.OrderID] = stored.ID
	}
	return r.detailLocked(stored.ID), nil
}

func (r *Repository) Attach(_ context.Context, cutID uuid.UUID, order domain.SettledOrder) (*domain.CutDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cut, ok := r.cuts[cutID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if owner, taken := r.associated[order.OrderID]; taken {
		return nil, fmt.Errorf("%w: order %s is in cut %s", domain.ErrAlreadyAssociated, order.OrderID, owner)
	}
	if err := cut.Attach(order); err != nil {
		return nil, err
	}
	r.lines[cutID] = append(r.lines[cutID], order)
	r.associated[order.OrderID] = cutID
	return r.detailLocked(cutID), nil
}

func (r *Repository) Close(_ context.Context, cutID uuid.UUID, at time.Time) (*domain.CashCut, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.cuts[cutID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	cut := stored.Clone()
	if err := cut.Close(at); err != nil {
		return nil, err
	}
	r.cuts[cutID] = cut.Clone()
	return cut, nil
}

func (r *Repository) Get(_ context.Context, cutID uuid.UUID) (*domain.CutDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cuts[cutID]; !ok {
		return nil, ports.ErrNotFound
	}
	return r.detailLocked(cutID), nil
}

func (r *Repository) List(_ context.Context) ([]*domain.CashCut, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.CashCut, 0, len(r.cuts))
	for _, c := range r.cuts {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *Repository) detailLocked(cutID uuid.UUID) *domain.CutDetail {
	return &domain.CutDetail{
		Cut:    r.cuts[cutID].Clone(),
		Orders: append([]domain.SettledOrder(nil), r.lines[cutID]...),
	}
}
