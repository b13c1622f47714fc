package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/Apurer/uniform-orders-api/internal/domains/catalog/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/catalog/ports"
)

var (
	_ ports.Catalog         = (*Store)(nil)
	_ ports.ClientDirectory = (*Store)(nil)
)

// Store is an in-memory catalog and client directory used for demos and tests.
type Store struct {
	mu       sync.RWMutex
	garments map[int64]domain.Garment
	sizes    map[int64]domain.Size
	clients  map[clientKey]domain.Client
}

type clientKey struct {
	kind domain.ClientKind
	id   int64
}

// NewStore constructs an empty catalog.
func NewStore() *Store {
	return &Store{
		garments: map[int64]domain.Garment{},
		sizes:    map[int64]domain.Size{},
		clients:  map[clientKey]domain.Client{},
	}
}

// PutGarment inserts or replaces a garment.
func (s *Store) PutGarment(g domain.Garment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.garments[g.ID] = g
}

// PutSize inserts or replaces a size.
func (s *Store) PutSize(size domain.Size) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sizes[size.ID] = size
}

// PutClient inserts or replaces a directory entry.
func (s *Store) PutClient(c domain.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[clientKey{kind: c.Kind, id: c.ID}] = c
}

func (s *Store) GetGarment(_ context.Context, id int64) (*domain.Garment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.garments[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &g, nil
}

func (s *Store) GetSize(_ context.Context, id int64) (*domain.Size, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	size, ok := s.sizes[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &size, nil
}

func (s *Store) GetClient(_ context.Context, kind domain.ClientKind, id int64) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[clientKey{kind: kind, id: id}]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &c, nil
}

// Seed is the on-disk layout accepted by LoadSeedFile.
type Seed struct {
	Garments []SeedGarment `json:"garments"`
	Sizes    []SeedSize    `json:"sizes"`
	Clients  []SeedClient  `json:"clients"`
}

type SeedGarment struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Inactive bool   `json:"inactive"`
}

type SeedSize struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

type SeedClient struct {
	Kind      string `json:"kind"`
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Reference string `json:"reference"`
}

// LoadSeedFile reads a JSON seed and applies it to the store.
func (s *Store) LoadSeedFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog seed: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("decode catalog seed: %w", err)
	}
	return s.Apply(seed)
}

// Apply loads every entry of the seed into the store.
func (s *Store) Apply(seed Seed) error {
	for _, g := range seed.Garments {
		s.PutGarment(domain.Garment{ID: g.ID, Name: g.Name, Category: g.Category, Active: !g.Inactive})
	}
	for _, size := range seed.Sizes {
		s.PutSize(domain.Size{ID: size.ID, Label: size.Label})
	}
	for _, c := range seed.Clients {
		kind := domain.ClientKind(c.Kind)
		if !kind.Valid() {
			return fmt.Errorf("client %d: %w", c.ID, domain.ErrInvalidClientKind)
		}
		s.PutClient(domain.Client{Kind: kind, ID: c.ID, Name: c.Name, Reference: c.Reference})
	}
	return nil
}
