package remote

import (
	"context"
	"errors"

	catalogclient "github.com/Apurer/uniform-orders-api/internal/clients/http/catalog"
	"github.com/Apurer/uniform-orders-api/internal/domains/catalog/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/catalog/ports"
)

var (
	_ ports.Catalog         = (*Catalog)(nil)
	_ ports.ClientDirectory = (*Catalog)(nil)
)

// Catalog implements the catalog ports against the remote catalog service.
type Catalog struct {
	client *catalogclient.HTTPClient
}

// NewCatalog wires a catalog HTTP client into the catalog ports.
func NewCatalog(client *catalogclient.HTTPClient) *Catalog {
	return &Catalog{client: client}
}

func (c *Catalog) GetGarment(ctx context.Context, id int64) (*domain.Garment, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("remote catalog not configured")
	}
	g, err := c.client.GetGarment(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	garment := &domain.Garment{ID: g.ID, Name: g.Name, Active: true}
	if g.Category != nil {
		garment.Category = *g.Category
	}
	if g.Active != nil {
		garment.Active = *g.Active
	}
	return garment, nil
}

func (c *Catalog) GetSize(ctx context.Context, id int64) (*domain.Size, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("remote catalog not configured")
	}
	s, err := c.client.GetSize(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return &domain.Size{ID: s.ID, Label: s.Label}, nil
}

func (c *Catalog) GetClient(ctx context.Context, kind domain.ClientKind, id int64) (*domain.Client, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("remote catalog not configured")
	}
	cl, err := c.client.GetClient(ctx, string(kind), id)
	if err != nil {
		return nil, mapError(err)
	}
	client := &domain.Client{Kind: domain.ClientKind(cl.Kind), ID: cl.ID, Name: cl.Name}
	if cl.Reference != nil {
		client.Reference = *cl.Reference
	}
	return client, nil
}

func mapError(err error) error {
	if errors.Is(err, catalogclient.ErrNotFound) {
		return ports.ErrNotFound
	}
	return err
}
