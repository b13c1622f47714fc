package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/uniform-orders-api/internal/domains/returns/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/returns/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists returns in PostgreSQL using GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB lifecycle and migrations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Models lists the tables owned by this adapter.
func Models() []any {
	return []any{&returnRecord{}, &returnLineRecord{}, &fulfillmentRecord{}}
}

type returnRecord struct {
	ID           uuid.UUID           `gorm:"type:uuid;primaryKey;column:id"`
	OrderID      uuid.UUID           `gorm:"type:uuid;column:order_id;index"`
	Kind         string              `gorm:"column:kind;type:varchar(24)"`
	Reason       string              `gorm:"column:reason"`
	Refund       *decimal.Decimal    `gorm:"column:refund;type:numeric(12,2)"`
	CreatedAt    time.Time           `gorm:"column:created_at"`
	Lines        []returnLineRecord  `gorm:"foreignKey:ReturnID;constraint:OnDelete:CASCADE"`
	Fulfillments []fulfillmentRecord `gorm:"foreignKey:ReturnID;constraint:OnDelete:CASCADE"`
}

func (returnRecord) TableName() string { return "returns" }

type returnLineRecord struct {
	ID                uuid.UUID        `gorm:"type:uuid;primaryKey;column:id"`
	ReturnID          uuid.UUID        `gorm:"type:uuid;column:return_id;index"`
	Position          int              `gorm:"column:position"`
	OrderLineID       uuid.UUID        `gorm:"type:uuid;column:order_line_id;index"`
	GarmentID         int64            `gorm:"column:garment_id"`
	SizeID            int64            `gorm:"column:size_id"`
	QuantityReversed  int              `gorm:"column:quantity_reversed;check:chk_return_lines_quantity,quantity_reversed > 0"`
	UnitPrice         decimal.Decimal  `gorm:"column:unit_price;type:numeric(12,2)"`
	TargetGarmentID   *int64           `gorm:"column:target_garment_id"`
	TargetSizeID      *int64           `gorm:"column:target_size_id"`
	TargetQuantity    int              `gorm:"column:target_quantity"`
	TargetUnitPrice   *decimal.Decimal `gorm:"column:target_unit_price;type:numeric(12,2)"`
	TargetFulfilled   int              `gorm:"column:target_fulfilled"`
	TargetBackordered int              `gorm:"column:target_backordered"`
}

func (returnLineRecord) TableName() string { return "return_lines" }

type fulfillmentRecord struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;column:id"`
	ReturnID     uuid.UUID `gorm:"type:uuid;column:return_id;index"`
	ReturnLineID uuid.UUID `gorm:"type:uuid;column:return_line_id"`
	Quantity     int       `gorm:"column:quantity"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (fulfillmentRecord) TableName() string { return "return_fulfillments" }

// Append serializes returns of one order with a transaction-scoped advisory
// lock, so the guard sees every return committed before it.
func (r *Repository) Append(ctx context.Context, ret *domain.Return, guard ports.Guard) (*domain.Return, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, errors.New("return is nil")
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", ret.OrderID.String()).Error; err != nil {
			return err
		}
		if guard != nil {
			prior, err := listByOrder(tx, ret.OrderID)
			if err != nil {
				return err
			}
			if err := guard(prior); err != nil {
				return err
			}
		}
		rec := toRecord(ret)
		return tx.Create(&rec).Error
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, ret.ID)
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*domain.Return, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	return get(r.db.WithContext(ctx), id)
}

func (r *Repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*domain.Return, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	return listByOrder(r.db.WithContext(ctx), orderID)
}

// ListOutstanding narrows to returns with an exchange backorder at insert time
// and keeps those not yet fully fulfilled.
func (r *Repository) ListOutstanding(ctx context.Context) ([]*domain.Return, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	db := r.db.WithContext(ctx)
	waiting := db.Model(&returnLineRecord{}).Select("return_id").Where("target_backordered > 0")
	var records []returnRecord
	if err := preload(db).Where("id IN (?)", waiting).Order("created_at, id").Find(&records).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Return, 0, len(records))
	for i := range records {
		if ret := records[i].toDomain(); ret.HasOutstanding() {
			out = append(out, ret)
		}
	}
	return out, nil
}

// AppendFulfillment locks the return row, re-checks the outstanding backorder,
// and inserts the fulfillment in one transaction.
func (r *Repository) AppendFulfillment(ctx context.Context, returnID uuid.UUID, f domain.Fulfillment) (*domain.Return, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked returnRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&locked, "id = ?", returnID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ports.ErrNotFound
			}
			return err
		}
		ret, err := get(tx, returnID)
		if err != nil {
			return err
		}
		if err := ret.Fulfill(f.ID, f.ReturnLineID, f.Quantity, f.CreatedAt); err != nil {
			return err
		}
		return tx.Create(&fulfillmentRecord{
			ID:           f.ID,
			ReturnID:     returnID,
			ReturnLineID: f.ReturnLineID,
			Quantity:     f.Quantity,
			CreatedAt:    f.CreatedAt,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, returnID)
}

func get(db *gorm.DB, id uuid.UUID) (*domain.Return, error) {
	var rec returnRecord
	err := preload(db).First(&rec, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return rec.toDomain(), nil
}

func listByOrder(db *gorm.DB, orderID uuid.UUID) ([]*domain.Return, error) {
	var records []returnRecord
	if err := preload(db).Where("order_id = ?", orderID).Order("created_at, id").Find(&records).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Return, 0, len(records))
	for i := range records {
		out = append(out, records[i].toDomain())
	}
	return out, nil
}

func preload(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Fulfillments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") })
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres return repository not configured")
	}
	return nil
}

func toRecord(ret *domain.Return) returnRecord {
	rec := returnRecord{
		ID:        ret.ID,
		OrderID:   ret.OrderID,
		Kind:      string(ret.Kind),
		Reason:    ret.Reason,
		Refund:    ret.Refund,
		CreatedAt: ret.CreatedAt,
	}
	for i, l := range ret.Lines {
		line := returnLineRecord{
			ID:               l.ID,
			ReturnID:         ret.ID,
			Position:         i,
			OrderLineID:      l.OrderLineID,
			GarmentID:        l.GarmentID,
			SizeID:           l.SizeID,
			QuantityReversed: l.QuantityReversed,
			UnitPrice:        l.UnitPrice,
		}
		if t := l.Target; t != nil {
			garmentID, sizeID, price := t.GarmentID, t.SizeID, t.UnitPrice
			line.TargetGarmentID = &garmentID
			line.TargetSizeID = &sizeID
			line.TargetQuantity = t.Quantity
			line.TargetUnitPrice = &price
			line.TargetFulfilled = t.Fulfilled
			line.TargetBackordered = t.Backordered
		}
		rec.Lines = append(rec.Lines, line)
	}
	return rec
}

func (r returnRecord) toDomain() *domain.Return {
	ret := &domain.Return{
		ID:        r.ID,
		OrderID:   r.OrderID,
		Kind:      domain.Kind(r.Kind),
		Reason:    r.Reason,
		Refund:    r.Refund,
		CreatedAt: r.CreatedAt,
	}
	ret.Lines = make([]domain.Line, 0, len(r.Lines))
	for _, l := range r.Lines {
		line := domain.Line{
			ID:               l.ID,
			OrderLineID:      l.OrderLineID,
			GarmentID:        l.GarmentID,
			SizeID:           l.SizeID,
			QuantityReversed: l.QuantityReversed,
			UnitPrice:        l.UnitPrice,
		}
		if l.TargetGarmentID != nil && l.TargetSizeID != nil {
			line.Target = &domain.Target{
				GarmentID:   *l.TargetGarmentID,
				SizeID:      *l.TargetSizeID,
				Quantity:    l.TargetQuantity,
				Fulfilled:   l.TargetFulfilled,
				Backordered: l.TargetBackordered,
			}
			if l.TargetUnitPrice != nil {
				line.Target.UnitPrice = *l.TargetUnitPrice
			}
		}
		ret.Lines = append(ret.Lines, line)
	}
	for _, f := range r.Fulfillments {
		ret.Fulfillments = append(ret.Fulfillments, domain.Fulfillment{
			ID:           f.ID,
			ReturnLineID: f.ReturnLineID,
			Quantity:     f.Quantity,
			CreatedAt:    f.CreatedAt,
		})
	}
	return ret
}
