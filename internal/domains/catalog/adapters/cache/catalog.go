package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Apurer/uniform-orders-api/internal/domains/catalog/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/catalog/ports"
)

var (
	_ ports.Catalog         = (*Catalog)(nil)
	_ ports.ClientDirectory = (*Catalog)(nil)
)

// DefaultTTL bounds how stale catalog reads may be.
const DefaultTTL = time.Minute

type entry struct {
	value     any
	expiresAt time.Time
}

// Catalog is a cache-aside decorator that collapses concurrent misses for the same key.
type Catalog struct {
	catalog   ports.Catalog
	directory ports.ClientDirectory
	ttl       time.Duration
	now       func() time.Time

	mu    sync.RWMutex
	items map[string]entry
	group singleflight.Group
}

// New wraps a catalog and a client directory. A non-positive ttl uses DefaultTTL.
func New(catalog ports.Catalog, directory ports.ClientDirectory, ttl time.Duration) *Catalog {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Catalog{
		catalog:   catalog,
		directory: directory,
		ttl:       ttl,
		now:       time.Now,
		items:     map[string]entry{},
	}
}

func (c *Catalog) GetGarment(ctx context.Context, id int64) (*domain.Garment, error) {
	v, err := c.load(ctx, fmt.Sprintf("garment:%d", id), func(ctx context.Context) (any, error) {
		return c.catalog.GetGarment(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	g := *v.(*domain.Garment)
	return &g, nil
}

func (c *Catalog) GetSize(ctx context.Context, id int64) (*domain.Size, error) {
	v, err := c.load(ctx, fmt.Sprintf("size:%d", id), func(ctx context.Context) (any, error) {
		return c.catalog.GetSize(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	s := *v.(*domain.Size)
	return &s, nil
}

func (c *Catalog) GetClient(ctx context.Context, kind domain.ClientKind, id int64) (*domain.Client, error) {
	v, err := c.load(ctx, fmt.Sprintf("client:%s:%d", kind, id), func(ctx context.Context) (any, error) {
		return c.directory.GetClient(ctx, kind, id)
	})
	if err != nil {
		return nil, err
	}
	client := *v.(*domain.Client)
	return &client, nil
}

// Invalidate drops every cached entry.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = map[string]entry{}
}

func (c *Catalog) load(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error) {
	if v, ok := c.get(key); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.get(key); ok {
			return v, nil
		}
		fresh, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.set(key, fresh)
		return fresh, nil
	})
	return v, err
}

func (c *Catalog) get(key string) (any, bool) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || c.now().After(item.expiresAt) {
		return nil, false
	}
	return item.value, true
}

func (c *Catalog) set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry{value: value, expiresAt: c.now().Add(c.ttl)}
}
