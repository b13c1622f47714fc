package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/uniform-orders-api/internal/domains/stock/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/stock/ports"
)

var _ ports.Ledger = (*Ledger)(nil)

// Ledger persists stock records in PostgreSQL using GORM. Mutations are single
// conditional UPDATE statements returning the new row.
type Ledger struct {
	db *gorm.DB
}

// NewLedger wires a PostgreSQL-backed ledger. Caller manages DB lifecycle and migrations.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Models lists the tables owned by this adapter.
func Models() []any {
	return []any{&stockRecord{}}
}

type stockRecord struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey;column:id"`
	GarmentID        int64           `gorm:"column:garment_id;uniqueIndex:idx_stock_garment_size"`
	SizeID           int64           `gorm:"column:size_id;uniqueIndex:idx_stock_garment_size"`
	WholesalePrice   decimal.Decimal `gorm:"column:wholesale_price;type:numeric(12,2)"`
	RetailPrice      decimal.Decimal `gorm:"column:retail_price;type:numeric(12,2)"`
	OnHand           int             `gorm:"column:on_hand;check:chk_stock_on_hand,on_hand >= 0"`
	ReorderThreshold int             `gorm:"column:reorder_threshold"`
	Active           bool            `gorm:"column:active;index"`
	Version          int64           `gorm:"column:version"`
	CreatedAt        time.Time       `gorm:"column:created_at"`
	UpdatedAt        time.Time       `gorm:"column:updated_at"`
}

func (stockRecord) TableName() string { return "stock_records" }

func (l *Ledger) Get(ctx context.Context, key domain.Key) (*domain.StockRecord, error) {
	if err := l.ensureDB(); err != nil {
		return nil, err
	}
	var rec stockRecord
	err := l.db.WithContext(ctx).
		First(&rec, "garment_id = ? AND size_id = ?", key.GarmentID, key.SizeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return rec.toDomain(), nil
}

func (l *Ledger) Upsert(ctx context.Context, record *domain.StockRecord) (*domain.StockRecord, error) {
	if err := l.ensureDB(); err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errors.New("stock record is nil")
	}
	rec := toRecord(record)
	rec.Active = true
	rec.Version = 1
	err := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "garment_id"}, {Name: "size_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"wholesale_price":   rec.WholesalePrice,
				"retail_price":      rec.RetailPrice,
				"reorder_threshold": rec.ReorderThreshold,
				"active":            true,
				"version":           gorm.Expr("stock_records.version + 1"),
				"updated_at":        gorm.Expr("NOW()"),
			}),
		}).Create(&rec).Error
	if err != nil {
		return nil, err
	}
	return l.Get(ctx, record.Key())
}

func (l *Ledger) Deactivate(ctx context.Context, key domain.Key) error {
	if err := l.ensureDB(); err != nil {
		return err
	}
	result := l.db.WithContext(ctx).Model(&stockRecord{}).
		Where("garment_id = ? AND size_id = ?", key.GarmentID, key.SizeID).
		Updates(map[string]any{
			"active":     false,
			"version":    gorm.Expr("version + 1"),
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (l *Ledger) List(ctx context.Context) ([]*domain.StockRecord, error) {
	if err := l.ensureDB(); err != nil {
		return nil, err
	}
	var records []stockRecord
	if err := l.db.WithContext(ctx).Order("garment_id, size_id").Find(&records).Error; err != nil {
		return nil, err
	}
	list := make([]*domain.StockRecord, 0, len(records))
	for i := range records {
		list = append(list, records[i].toDomain())
	}
	return list, nil
}

// CompareAndReserve issues
// UPDATE ... SET on_hand = on_hand - q WHERE version = v AND on_hand >= q RETURNING *.
func (l *Ledger) CompareAndReserve(ctx context.Context, key domain.Key, expectedVersion int64, quantity int) (*domain.StockRecord, error) {
	if err := l.ensureDB(); err != nil {
		return nil, err
	}
	var rec stockRecord
	result := l.db.WithContext(ctx).Model(&rec).
		Clauses(clause.Returning{}).
		Where("garment_id = ? AND size_id = ? AND version = ? AND on_hand >= ?", key.GarmentID, key.SizeID, expectedVersion, quantity).
		Updates(map[string]any{
			"on_hand":    gorm.Expr("on_hand - ?", quantity),
			"version":    gorm.Expr("version + 1"),
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := l.Get(ctx, key); err != nil {
			return nil, err
		}
		return nil, ports.ErrConcurrentUpdate
	}
	return rec.toDomain(), nil
}

func (l *Ledger) Increment(ctx context.Context, key domain.Key, quantity int) (*domain.StockRecord, error) {
	if err := l.ensureDB(); err != nil {
		return nil, err
	}
	var rec stockRecord
	result := l.db.WithContext(ctx).Model(&rec).
		Clauses(clause.Returning{}).
		Where("garment_id = ? AND size_id = ?", key.GarmentID, key.SizeID).
		Updates(map[string]any{
			"on_hand":    gorm.Expr("on_hand + ?", quantity),
			"version":    gorm.Expr("version + 1"),
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ports.ErrNotFound
	}
	return rec.toDomain(), nil
}

func (l *Ledger) ensureDB() error {
	if l == nil || l.db == nil {
		return errors.New("postgres stock ledger not configured")
	}
	return nil
}

func toRecord(r *domain.StockRecord) stockRecord {
	return stockRecord{
		ID:               r.ID,
		GarmentID:        r.GarmentID,
		SizeID:           r.SizeID,
		WholesalePrice:   r.WholesalePrice,
		RetailPrice:      r.RetailPrice,
		OnHand:           r.OnHand,
		ReorderThreshold: r.ReorderThreshold,
		Active:           r.Active,
		Version:          r.Version,
	}
}

func (r stockRecord) toDomain() *domain.StockRecord {
	return &domain.StockRecord{
		ID:               r.ID,
		GarmentID:        r.GarmentID,
		SizeID:           r.SizeID,
		WholesalePrice:   r.WholesalePrice,
		RetailPrice:      r.RetailPrice,
		OnHand:           r.OnHand,
		ReorderThreshold: r.ReorderThreshold,
		Active:           r.Active,
		Version:          r.Version,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}
