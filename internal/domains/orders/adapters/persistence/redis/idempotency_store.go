package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Apurer/uniform-orders-api/internal/domains/orders/ports"
)

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

const (
	// KeyIdemOrderCreate maps an Idempotency-Key to the order it created.
	KeyIdemOrderCreate = "idem:order:create:%s"
	// DefaultTTL is how long a key can be replayed.
	DefaultTTL = 24 * time.Hour
)

// IdempotencyStore keeps idempotency keys in Redis with a TTL.
type IdempotencyStore struct {
	rdb goredis.UniversalClient
	ttl time.Duration
	now func() time.Time
}

// NewIdempotencyStore wires a Redis-backed store. A non-positive ttl uses DefaultTTL.
func NewIdempotencyStore(rdb goredis.UniversalClient, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &IdempotencyStore{rdb: rdb, ttl: ttl, now: time.Now}
}

type storedRecord struct {
	RequestHash string    `json:"requestHash"`
	OrderID     uuid.UUID `json:"orderId"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (*ports.IdempotencyRecord, error) {
	if s == nil || s.rdb == nil {
		return nil, errors.New("redis idempotency store not configured")
	}
	raw, err := s.rdb.Get(ctx, fmt.Sprintf(KeyIdemOrderCreate, key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stored storedRecord
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode idempotency record %q: %w", key, err)
	}
	return &ports.IdempotencyRecord{
		Key:         key,
		RequestHash: stored.RequestHash,
		OrderID:     stored.OrderID,
		CreatedAt:   stored.CreatedAt,
		UpdatedAt:   stored.CreatedAt,
	}, nil
}

// Save claims the key with SET NX. When the key is taken, the stored record is
// returned, together with ErrIdempotencyConflict if it differs.
func (s *IdempotencyStore) Save(ctx context.Context, record ports.IdempotencyRecord) (*ports.IdempotencyRecord, error) {
	if s == nil || s.rdb == nil {
		return nil, errors.New("redis idempotency store not configured")
	}
	now := s.now().UTC()
	payload, err := json.Marshal(storedRecord{RequestHash: record.RequestHash, OrderID: record.OrderID, CreatedAt: now})
	if err != nil {
		return nil, err
	}
	claimed, err := s.rdb.SetNX(ctx, fmt.Sprintf(KeyIdemOrderCreate, record.Key), payload, s.ttl).Result()
	if err != nil {
		return nil, err
	}
	if claimed {
		record.CreatedAt = now
		record.UpdatedAt = now
		return &record, nil
	}
	existing, err := s.Get(ctx, record.Key)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		// expired between SETNX and GET
		return s.Save(ctx, record)
	}
	if existing.RequestHash != record.RequestHash || existing.OrderID != record.OrderID {
		return existing, ports.ErrIdempotencyConflict
	}
	return existing, nil
}
