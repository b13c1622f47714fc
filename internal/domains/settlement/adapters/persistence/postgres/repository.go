package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/uniform-orders-api/internal/domains/settlement/domain"
	"github.com/Apurer/uniform-orders-api/internal/domains/settlement/ports"
	platformpg "github.com/Apurer/uniform-orders-api/internal/platform/postgres"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists cash-cuts in PostgreSQL. The unique index on
// cash_cut_lines.order_id keeps an order in at most one cut.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB lifecycle and migrations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Models lists the tables owned by this adapter.
func Models() []any {
	return []any{&cutRecord{}, &cutLineRecord{}}
}

type cutRecord struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;column:id"`
	PeriodStart time.Time       `gorm:"column:period_start"`
	PeriodEnd   time.Time       `gorm:"column:period_end"`
	OrderCount  int             `gorm:"column:order_count"`
	Total       decimal.Decimal `gorm:"column:total;type:numeric(14,2)"`
	OrderIDs    pq.StringArray  `gorm:"column:order_ids;type:text[]"`
	Active      bool            `gorm:"column:active;index"`
	CreatedAt   time.Time       `gorm:"column:created_at;index"`
	ClosedAt    *time.Time      `gorm:"column:closed_at"`
}

func (cutRecord) TableName() string { return "cash_cuts" }

type cutLineRecord struct {
	CutID      uuid.UUID       `gorm:"type:uuid;column:cut_id;primaryKey"`
	OrderID    uuid.UUID       `gorm:"type:uuid;column:order_id;primaryKey;uniqueIndex:ux_cash_cut_lines_order"`
	Position   int             `gorm:"column:position"`
	ClientKind string          `gorm:"column:client_kind;type:varchar(16)"`
	ClientID   int64           `gorm:"column:client_id"`
	ClientName string          `gorm:"column:client_name"`
	Total      decimal.Decimal `gorm:"column:total;type:numeric(12,2)"`
	SettledAt  time.Time       `gorm:"column:settled_at"`
}

func (cutLineRecord) TableName() string { return "cash_cut_lines" }

// Open selects the unassociated candidates and inserts the cut with its lines
// in one transaction. A racing cut that commits the same order first makes the
// insert fail on the unique index, reported as ports.ErrAssociationRace.
func (r *Repository) Open(ctx context.Context, cut *domain.CashCut, candidates []domain.SettledOrder) (*domain.CutDetail, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if cut == nil {
		return nil, errors.New("cut is nil")
	}
	stored := cut.Clone()
	var fresh []domain.SettledOrder
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := associated(tx, candidates)
		if err != nil {
			return err
		}
		for _, o := range candidates {
			if _, ok := taken[o.OrderID]; ok || !stored.Covers(o.SettledAt) {
				continue
			}
			fresh = append(fresh, o)
		}
		if err := stored.Include(fresh...); err != nil {
			return err
		}
		rec := toCutRecord(stored, fresh)
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		if len(fresh) == 0 {
			return nil
		}
		lines := make([]cutLineRecord, 0, len(fresh))
		for i, o := range fresh {
			lines = append(lines, toLineRecord(stored.ID, i, o))
		}
		return tx.CreateInBatches(lines, 200).Error
	})
	if err != nil {
		if platformpg.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %w", ports.ErrAssociationRace, err)
		}
		return nil, err
	}
	return &domain.CutDetail{Cut: stored, Orders: fresh}, nil
}

func (r *Repository) Attach(ctx context.Context, cutID uuid.UUID, order domain.SettledOrder) (*domain.CutDetail, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := lockCut(tx, cutID)
		if err != nil {
			return err
		}
		if rec.holds(order.OrderID) {
			return fmt.Errorf("%w: order %s is in cut %s", domain.ErrAlreadyAssociated, order.OrderID, cutID)
		}
		cut := rec.toDomain()
		if err := cut.Attach(order); err != nil {
			return err
		}
		if err := tx.Create(ptr(toLineRecord(cutID, rec.OrderCount, order))).Error; err != nil {
			if platformpg.IsUniqueViolation(err) {
				return fmt.Errorf("%w: order %s", domain.ErrAlreadyAssociated, order.OrderID)
			}
			return err
		}
		return tx.Model(&cutRecord{}).Where("id = ?", cutID).Updates(map[string]any{
			"order_count": cut.OrderCount,
			"total":       cut.Total,
			"order_ids":   gorm.Expr("array_append(order_ids, ?)", order.OrderID.String()),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, cutID)
}

func (r *Repository) Close(ctx context.Context, cutID uuid.UUID, at time.Time) (*domain.CashCut, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var cut *domain.CashCut
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := lockCut(tx, cutID)
		if err != nil {
			return err
		}
		cut = rec.toDomain()
		if err := cut.Close(at); err != nil {
			return err
		}
		return tx.Model(&cutRecord{}).Where("id = ?", cutID).Updates(map[string]any{
			"active":    false,
			"closed_at": at,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return cut, nil
}

func (r *Repository) Get(ctx context.Context, cutID uuid.UUID) (*domain.CutDetail, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	db := r.db.WithContext(ctx)
	var rec cutRecord
	if err := db.First(&rec, "id = ?", cutID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	var lines []cutLineRecord
	if err := db.Where("cut_id = ?", cutID).Order("position").Find(&lines).Error; err != nil {
		return nil, err
	}
	detail := &domain.CutDetail{Cut: rec.toDomain(), Orders: make([]domain.SettledOrder, 0, len(lines))}
	for _, l := range lines {
		detail.Orders = append(detail.Orders, l.toDomain())
	}
	return detail, nil
}

func (r *Repository) List(ctx context.Context) ([]*domain.CashCut, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []cutRecord
	if err := r.db.WithContext(ctx).Order("created_at DESC, id").Find(&records).Error; err != nil {
		return nil, err
	}
	cuts := make([]*domain.CashCut, 0, len(records))
	for i := range records {
		cuts = append(cuts, records[i].toDomain())
	}
	return cuts, nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres cash cut repository not configured")
	}
	return nil
}

func associated(tx *gorm.DB, candidates []domain.SettledOrder) (map[uuid.UUID]struct{}, error) {
	taken := map[uuid.UUID]struct{}{}
	if len(candidates) == 0 {
		return taken, nil
	}
	ids := make([]uuid.UUID, 0, len(candidates))
	for _, o := range candidates {
		ids = append(ids, o.OrderID)
	}
	var found []uuid.UUID
	if err := tx.Model(&cutLineRecord{}).Where("order_id IN ?", ids).Pluck("order_id", &found).Error; err != nil {
		return nil, err
	}
	for _, id := range found {
		taken[id] = struct{}{}
	}
	return taken, nil
}

func lockCut(tx *gorm.DB, cutID uuid.UUID) (*cutRecord, error) {
	var rec cutRecord
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&rec, "id = ?", cutID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func ptr[T any](v T) *T {
	return &v
}

func toCutRecord(cut *domain.CashCut, orders []domain.SettledOrder) cutRecord {
	ids := make(pq.StringArray, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.OrderID.String())
	}
	return cutRecord{
		ID:          cut.ID,
		PeriodStart: cut.PeriodStart,
		PeriodEnd:   cut.PeriodEnd,
		OrderCount:  cut.OrderCount,
		Total:       cut.Total,
		OrderIDs:    ids,
		Active:      cut.Active,
		CreatedAt:   cut.CreatedAt,
		ClosedAt:    cut.ClosedAt,
	}
}

// holds reads the order id snapshot kept on the cut row.
func (r cutRecord) holds(orderID uuid.UUID) bool {
	id := orderID.String()
	for _, held := range r.OrderIDs {
		if held == id {
			return true
		}
	}
	return false
}

func toLineRecord(cutID uuid.UUID, position int, o domain.SettledOrder) cutLineRecord {
	return cutLineRecord{
		CutID:      cutID,
		OrderID:    o.OrderID,
		Position:   position,
		ClientKind: o.ClientKind,
		ClientID:   o.ClientID,
		ClientName: o.ClientName,
		Total:      o.Total,
		SettledAt:  o.SettledAt,
	}
}

func (r cutRecord) toDomain() *domain.CashCut {
	return &domain.CashCut{
		ID:          r.ID,
		PeriodStart: r.PeriodStart.UTC(),
		PeriodEnd:   r.PeriodEnd.UTC(),
		OrderCount:  r.OrderCount,
		Total:       r.Total,
		Active:      r.Active,
		CreatedAt:   r.CreatedAt,
		ClosedAt:    r.ClosedAt,
	}
}

func (r cutLineRecord) toDomain() domain.SettledOrder {
	return domain.SettledOrder{
		OrderID:    r.OrderID,
		ClientKind: r.ClientKind,
		ClientID:   r.ClientID,
		ClientName: r.ClientName,
		Total:      r.Total,
		SettledAt:  r.SettledAt.UTC(),
	}
}
