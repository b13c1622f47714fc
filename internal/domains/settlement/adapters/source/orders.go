// Package source reads settled orders for the settlement context.
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	ordersdomain "github.com/Apurer/uniform-orders-api/internal/domains/orders/domain"
	ordersports "github.com/Apurer/uniform-orders-api/internal/domains/orders/ports"
	"github.com/Apurer/uniform-orders-api/internal/domains/settlement/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/settlement/ports"
)

var _ ports.SettledOrders = (*Orders)(nil)

// Orders adapts the order repository to the settlement read model.
type Orders struct {
	repo ordersports.Repository
}

func NewOrders(repo ordersports.Repository) *Orders {
	return &Orders{repo: repo}
}

func (o *Orders) ListSettled(ctx context.Context, start, end time.Time) ([]domain.SettledOrder, error) {
	orders, err := o.repo.ListSettled(ctx, start, end)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SettledOrder, 0, len(orders))
	for _, order := range orders {
		out = append(out, snapshot(order))
	}
	return out, nil
}

func (o *Orders) GetSettled(ctx context.Context, orderID uuid.UUID) (*domain.SettledOrder, error) {
	order, err := o.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != ordersdomain.StatusSettled || order.SettledAt == nil {
		return nil, fmt.Errorf("%w: order %s is %s", domain.ErrOrderNotEligible, order.ID, order.Status)
	}
	s := snapshot(order)
	return &s, nil
}

func snapshot(order *ordersdomain.Order) domain.SettledOrder {
	s := domain.SettledOrder{
		OrderID:    order.ID,
		ClientKind: string(order.Client.Kind),
		ClientID:   order.Client.ID,
		ClientName: order.Client.Name,
		Total:      order.Total,
	}
	if order.SettledAt != nil {
		s.SettledAt = order.SettledAt.UTC()
	}
	return s
}
