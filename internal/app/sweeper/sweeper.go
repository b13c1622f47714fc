// Package sweeper hands the stock currently on hand to the order and exchange
// backorders waiting for it.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Apurer/uniform-orders-api/internal/domains/orders/application/types"
	ordersdomain "github.com/Apurer/uniform-orders-api/internal/domains/orders/domain"
	ordersports "github.com/Apurer/uniform-orders-api/internal/domains/orders/ports"
	returnstypes "github.com/Apurer/uniform-orders-api/internal/domains/returns/application/types"
	returnsdomain "github.com/Apurer/uniform-orders-api/internal/domains/returns/domain"
	returnsports "github.com/Apurer/uniform-orders-api/internal/domains/returns/ports"
	stockdomain "github.com/Apurer/uniform-orders-api/internal/domains/stock/domain"
	stockports "github.com/Apurer/uniform-orders-api/internal/domains/stock/ports"
)

const defaultConcurrency = 4

// Result reports what a sweep granted, per stock record.
type Result struct {
	Keys    []KeyResult `json:"keys"`
	Granted int         `json:"granted"`
}

// KeyResult is the outcome for one garment/size.
type KeyResult struct {
	GarmentID int64 `json:"garmentId"`
	SizeID    int64 `json:"sizeId"`
	Waiting   int   `json:"waiting"`
	Granted   int   `json:"granted"`
}

// Sweeper walks every PEDIDO order line and exchange line with units still owed
// and grants the current on-hand quantity of each stock record to them, oldest
// first across both.
type Sweeper struct {
	orders      ordersports.Service
	returns     returnsports.Service
	stock       stockports.Service
	logger      *slog.Logger
	concurrency int
}

type Option func(*Sweeper)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithConcurrency bounds how many stock records are reconciled at once.
func WithConcurrency(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// claim is one line waiting for units of a stock record. An exchange claim has
// a return id; an order claim has an order id.
type claim struct {
	at       time.Time
	orderID  uuid.UUID
	returnID uuid.UUID
	lineID   uuid.UUID
	waiting  int
}

func New(orders ordersports.Service, returns returnsports.Service, stock stockports.Service, opts ...Option) *Sweeper {
	s := &Sweeper{
		orders:      orders,
		returns:     returns,
		stock:       stock,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run performs one sweep. Records that no longer exist or were deactivated are
// skipped; any other failure aborts the sweep and is returned with the partial
// result gathered so far.
func (s *Sweeper) Run(ctx context.Context) (*Result, error) {
	orders, err := s.orders.ListOrders(ctx, types.ListOrdersInput{Status: string(ordersdomain.StatusPlaced)})
	if err != nil {
		return nil, fmt.Errorf("list placed orders: %w", err)
	}
	exchanges, err := s.returns.ListOutstandingExchanges(ctx)
	if err != nil {
		return nil, fmt.Errorf("list outstanding exchanges: %w", err)
	}
	claims := claimsByKey(orders, exchanges)
	keys := make([]stockdomain.Key, 0, len(claims))
	for key := range claims {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].GarmentID != keys[j].GarmentID {
			return keys[i].GarmentID < keys[j].GarmentID
		}
		return keys[i].SizeID < keys[j].SizeID
	})

	results := make([]KeyResult, len(keys))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, key := range keys {
		g.Go(func() error {
			granted, err := s.sweepKey(gctx, key, claims[key])
			if err != nil {
				return fmt.Errorf("garment %d size %d: %w", key.GarmentID, key.SizeID, err)
			}
			mu.Lock()
			results[i] = KeyResult{GarmentID: key.GarmentID, SizeID: key.SizeID, Waiting: waitingUnits(claims[key]), Granted: granted}
			mu.Unlock()
			return nil
		})
	}
	err = g.Wait()

	result := &Result{Keys: make([]KeyResult, 0, len(results))}
	for _, r := range results {
		if r.GarmentID == 0 {
			continue
		}
		result.Keys = append(result.Keys, r)
		result.Granted += r.Granted
	}
	if err != nil {
		return result, err
	}
	s.logger.InfoContext(ctx, "backorder sweep completed",
		slog.Int("stock.records", len(result.Keys)),
		slog.Int("stock.granted_units", result.Granted))
	return result, nil
}

func (s *Sweeper) sweepKey(ctx context.Context, key stockdomain.Key, claims []claim) (int, error) {
	record, err := s.stock.Read(ctx, key.GarmentID, key.SizeID)
	if err != nil {
		if errors.Is(err, stockports.ErrNotFound) {
			s.logger.WarnContext(ctx, "backordered stock record missing",
				slog.Int64("stock.garment_id", key.GarmentID), slog.Int64("stock.size_id", key.SizeID))
			return 0, nil
		}
		return 0, err
	}
	if !record.Active || record.OnHand == 0 {
		return 0, nil
	}
	remaining, total := record.OnHand, 0
	for _, c := range claims {
		if remaining == 0 {
			break
		}
		granted, err := s.grant(ctx, c, remaining)
		if err != nil {
			return total, err
		}
		remaining -= granted
		total += granted
	}
	return total, nil
}

// grant reconciles one claim with up to offered units and reports how many
// it took.
func (s *Sweeper) grant(ctx context.Context, c claim, offered int) (int, error) {
	var left int
	if c.returnID != uuid.Nil {
		ret, err := s.returns.ReconcileExchange(ctx, returnstypes.ReconcileExchangeInput{ReturnID: c.returnID, LineID: c.lineID, RestockedQty: offered})
		if err != nil {
			return 0, err
		}
		if left, err = ret.Outstanding(c.lineID); err != nil {
			return 0, err
		}
	} else {
		order, err := s.orders.ReconcileBackorder(ctx, types.ReconcileInput{OrderID: c.orderID, LineID: c.lineID, RestockedQty: offered})
		if errors.Is(err, ordersdomain.ErrOrderNotEligible) {
			// cancelled since it was listed
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		line, err := order.Line(c.lineID)
		if err != nil {
			return 0, err
		}
		left = line.Backordered
	}
	return min(max(c.waiting-left, 0), offered), nil
}

func claimsByKey(orders []*ordersdomain.Order, exchanges []*returnsdomain.Return) map[stockdomain.Key][]claim {
	claims := make(map[stockdomain.Key][]claim)
	for _, order := range orders {
		for _, line := range order.Lines {
			if line.Backordered > 0 {
				key := stockdomain.Key{GarmentID: line.GarmentID, SizeID: line.SizeID}
				claims[key] = append(claims[key], claim{at: order.CreatedAt, orderID: order.ID, lineID: line.ID, waiting: line.Backordered})
			}
		}
	}
	for _, ret := range exchanges {
		for _, line := range ret.Lines {
			if line.Target == nil {
				continue
			}
			outstanding, err := ret.Outstanding(line.ID)
			if err != nil || outstanding <= 0 {
				continue
			}
			key := stockdomain.Key{GarmentID: line.Target.GarmentID, SizeID: line.Target.SizeID}
			claims[key] = append(claims[key], claim{at: ret.CreatedAt, returnID: ret.ID, lineID: line.ID, waiting: outstanding})
		}
	}
	for _, list := range claims {
		sort.SliceStable(list, func(i, j int) bool { return list[i].at.Before(list[j].at) })
	}
	return claims
}

func waitingUnits(claims []claim) int {
	total := 0
	for _, c := range claims {
		total += c.waiting
	}
	return total
}
