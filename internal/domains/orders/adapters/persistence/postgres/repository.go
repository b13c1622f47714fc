package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	catalogdomain "github.com/Apurer/uniform-orders-api/internal/domains/catalog/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/orders/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/orders/ports"
	stockdomain "github.com/Apurer/uniform-orders-api/internal/domains/stock/domain"
	platformpg "github.com/Apurer/uniform-orders-api/internal/platform/postgres"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists orders and their lines in PostgreSQL using GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB lifecycle and migrations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Models lists the tables owned by this adapter.
func Models() []any {
	return []any{&orderRecord{}, &orderLineRecord{}, &idempotencyRecord{}}
}

type orderRecord struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey;column:id"`
	ClientKind      string            `gorm:"column:client_kind;type:varchar(16);index:idx_orders_client"`
	ClientID        int64             `gorm:"column:client_id;index:idx_orders_client"`
	ClientName      string            `gorm:"column:client_name"`
	PriceTier       string            `gorm:"column:price_tier;type:varchar(16)"`
	Status          string            `gorm:"column:status;type:varchar(16);index:idx_orders_status_settled"`
	Total           decimal.Decimal   `gorm:"column:total;type:numeric(12,2)"`
	Observations    string            `gorm:"column:observations"`
	PaymentReceived *decimal.Decimal  `gorm:"column:payment_received;type:numeric(12,2)"`
	DeliveredAt     *time.Time        `gorm:"column:delivered_at"`
	SettledAt       *time.Time        `gorm:"column:settled_at;index:idx_orders_status_settled"`
	CancelledAt     *time.Time        `gorm:"column:cancelled_at"`
	Version         int64             `gorm:"column:version"`
	CreatedAt       time.Time         `gorm:"column:created_at;index"`
	UpdatedAt       time.Time         `gorm:"column:updated_at"`
	Lines           []orderLineRecord `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (orderRecord) TableName() string { return "orders" }

type orderLineRecord struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;column:id"`
	OrderID       uuid.UUID       `gorm:"type:uuid;column:order_id;index"`
	Position      int             `gorm:"column:position"`
	GarmentID     int64           `gorm:"column:garment_id;index:idx_order_lines_stock"`
	SizeID        int64           `gorm:"column:size_id;index:idx_order_lines_stock"`
	Requested     int             `gorm:"column:requested;check:chk_order_lines_balance,requested = fulfilled + backordered"`
	Fulfilled     int             `gorm:"column:fulfilled"`
	Backordered   int             `gorm:"column:backordered"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2)"`
	LineTotal     decimal.Decimal `gorm:"column:line_total;type:numeric(12,2)"`
	Specification string          `gorm:"column:specification"`
}

func (orderLineRecord) TableName() string { return "order_lines" }

func (r *Repository) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.New("order is nil")
	}
	rec := toRecord(order)
	rec.Version = 1
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if platformpg.IsUniqueViolation(err) {
			return nil, ports.ErrAlreadyExists
		}
		return nil, err
	}
	return r.Get(ctx, order.ID)
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var rec orderRecord
	err := r.db.WithContext(ctx).Preload("Lines", orderedLines).First(&rec, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return rec.toDomain(), nil
}

// Update writes the order header guarded by its version, then the line quantities,
// in one transaction.
func (r *Repository) Update(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.New("order is nil")
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&orderRecord{}).
			Where("id = ? AND version = ?", order.ID, order.Version).
			Updates(map[string]any{
				"status":           string(order.Status),
				"observations":     order.Observations,
				"payment_received": order.PaymentReceived,
				"delivered_at":     order.DeliveredAt,
				"settled_at":       order.SettledAt,
				"cancelled_at":     order.CancelledAt,
				"version":          gorm.Expr("version + 1"),
				"updated_at":       gorm.Expr("NOW()"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&orderRecord{}).Where("id = ?", order.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ports.ErrNotFound
			}
			return ports.ErrConcurrentUpdate
		}
		for _, line := range order.Lines {
			err := tx.Model(&orderLineRecord{}).
				Where("id = ? AND order_id = ?", line.ID, order.ID).
				Updates(map[string]any{
					"fulfilled":   line.Fulfilled,
					"backordered": line.Backordered,
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, order.ID)
}

func (r *Repository) List(ctx context.Context, filter ports.OrderFilter) ([]*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	q := r.db.WithContext(ctx).Preload("Lines", orderedLines).Order("created_at, id")
	if filter.Status != nil {
		q = q.Where("status = ?", string(*filter.Status))
	}
	return r.find(q)
}

func (r *Repository) ListBackordered(ctx context.Context, key stockdomain.Key) ([]*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	waiting := r.db.Model(&orderLineRecord{}).
		Select("order_id").
		Where("garment_id = ? AND size_id = ? AND backordered > 0", key.GarmentID, key.SizeID)
	q := r.db.WithContext(ctx).Preload("Lines", orderedLines).
		Where("status = ? AND id IN (?)", string(domain.StatusPlaced), waiting).
		Order("created_at, id")
	return r.find(q)
}

func (r *Repository) ListSettled(ctx context.Context, start, end time.Time) ([]*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	q := r.db.WithContext(ctx).Preload("Lines", orderedLines).
		Where("status = ? AND settled_at BETWEEN ? AND ?", string(domain.StatusSettled), start, end).
		Order("settled_at, id")
	return r.find(q)
}

func (r *Repository) find(q *gorm.DB) ([]*domain.Order, error) {
	var records []orderRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(records))
	for i := range records {
		orders = append(orders, records[i].toDomain())
	}
	return orders, nil
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("position")
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres order repository not configured")
	}
	return nil
}

func toRecord(order *domain.Order) orderRecord {
	rec := orderRecord{
		ID:              order.ID,
		ClientKind:      string(order.Client.Kind),
		ClientID:        order.Client.ID,
		ClientName:      order.Client.Name,
		PriceTier:       string(order.PriceTier),
		Status:          string(order.Status),
		Total:           order.Total,
		Observations:    order.Observations,
		PaymentReceived: order.PaymentReceived,
		DeliveredAt:     order.DeliveredAt,
		SettledAt:       order.SettledAt,
		CancelledAt:     order.CancelledAt,
		Version:         order.Version,
		CreatedAt:       order.CreatedAt,
	}
	rec.Lines = make([]orderLineRecord, 0, len(order.Lines))
	for i, line := range order.Lines {
		rec.Lines = append(rec.Lines, orderLineRecord{
			ID:            line.ID,
			OrderID:       order.ID,
			Position:      i,
			GarmentID:     line.GarmentID,
			SizeID:        line.SizeID,
			Requested:     line.Requested,
			Fulfilled:     line.Fulfilled,
			Backordered:   line.Backordered,
			UnitPrice:     line.UnitPrice,
			LineTotal:     line.LineTotal,
			Specification: line.Specification,
		})
	}
	return rec
}

func (r orderRecord) toDomain() *domain.Order {
	order := &domain.Order{
		ID: r.ID,
		Client: domain.ClientRef{
			Kind: catalogdomain.ClientKind(r.ClientKind),
			ID:   r.ClientID,
			Name: r.ClientName,
		},
		PriceTier:       stockdomain.PriceTier(r.PriceTier),
		Status:          domain.Status(r.Status),
		Total:           r.Total,
		Observations:    r.Observations,
		PaymentReceived: r.PaymentReceived,
		CreatedAt:       r.CreatedAt,
		DeliveredAt:     r.DeliveredAt,
		SettledAt:       r.SettledAt,
		CancelledAt:     r.CancelledAt,
		Version:         r.Version,
	}
	order.Lines = make([]domain.Line, 0, len(r.Lines))
	for _, l := range r.Lines {
		order.Lines = append(order.Lines, domain.Line{
			ID:            l.ID,
			GarmentID:     l.GarmentID,
			SizeID:        l.SizeID,
			Requested:     l.Requested,
			Fulfilled:     l.Fulfilled,
			Backordered:   l.Backordered,
			UnitPrice:     l.UnitPrice,
			LineTotal:     l.LineTotal,
			Specification: l.Specification,
		})
	}
	return order
}
