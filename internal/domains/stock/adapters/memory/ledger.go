package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Apurer/uniform-orders-api/internal/domains/stock/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/stock/ports"
)

var _ ports.Ledger = (*Ledger)(nil)

// Ledger is an in-memory stock store. Every operation holds the lock for its
// full read-modify-write, so each one is atomic per record.
type Ledger struct {
	mu      sync.RWMutex
	records map[domain.Key]*domain.StockRecord
	now     func() time.Time
}

func NewLedger() *Ledger {
	return &Ledger{
		records: map[domain.Key]*domain.StockRecord{},
		now:     time.Now,
	}
}

func (l *Ledger) Get(_ context.Context, key domain.Key) (*domain.StockRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.records[key]
	if !ok {
		return nil, ports.ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

func (l *Ledger) Upsert(_ context.Context, record *domain.StockRecord) (*domain.StockRecord, error) {
	if record == nil {
		return nil, errors.New("stock record is nil")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	key := record.Key()
	if existing, ok := l.records[key]; ok {
		existing.WholesalePrice = record.WholesalePrice
		existing.RetailPrice = record.RetailPrice
		existing.ReorderThreshold = record.ReorderThreshold
		existing.Active = true
		existing.Version++
		existing.UpdatedAt = now
		clone := *existing
		return &clone, nil
	}
	stored := *record
	stored.Active = true
	stored.Version = 1
	stored.CreatedAt = now
	stored.UpdatedAt = now
	l.records[key] = &stored
	clone := stored
	return &clone, nil
}

func (l *Ledger) Deactivate(_ context.Context, key domain.Key) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[key]
	if !ok {
		return ports.ErrNotFound
	}
	rec.Active = false
	rec.Version++
	rec.UpdatedAt = l.now()
	return nil
}

func (l *Ledger) List(_ context.Context) ([]*domain.StockRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	list := make([]*domain.StockRecord, 0, len(l.records))
	for _, rec := range l.records {
		clone := *rec
		list = append(list, &clone)
	}
	return list, nil
}

func (l *Ledger) CompareAndReserve(_ context.Context, key domain.Key, expectedVersion int64, quantity int) (*domain.StockRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[key]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if rec.Version != expectedVersion || rec.OnHand < quantity {
		return nil, ports.ErrConcurrentUpdate
	}
	rec.OnHand -= quantity
	rec.Version++
	rec.UpdatedAt = l.now()
	clone := *rec
	return &clone, nil
}

func (l *Ledger) Increment(_ context.Context, key domain.Key, quantity int) (*domain.StockRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[key]
	if !ok {
		return nil, ports.ErrNotFound
	}
	rec.OnHand += quantity
	rec.Version++
	rec.UpdatedAt = l.now()
	clone := *rec
	return &clone, nil
}
