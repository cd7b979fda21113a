package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/smartinventory/inventory-backend/pkg/enums"
)

// ValuationRow is one (product, location) slice of the inventory valuation.
type ValuationRow struct {
	ProductID  uuid.UUID       `gorm:"column:product_id"`
	LocationID uuid.UUID       `gorm:"column:location_id"`
	OnHand     int             `gorm:"column:on_hand"`
	UnitCost   decimal.Decimal `gorm:"column:unit_cost"`
}

// TopMover is a product ranked by absolute movement volume.
type TopMover struct {
	ProductID uuid.UUID `gorm:"column:product_id"`
	SKU       string    `gorm:"column:sku"`
	Name      string    `gorm:"column:name"`
	Volume    int64     `gorm:"column:volume"`
}

// Repository reads the aggregates behind the dashboard.
type Repository interface {
	ProductCount(ctx context.Context) (int64, error)
	LowStockCount(ctx context.Context) (int64, error)
	OpenOrderCount(ctx context.Context) (int64, error)
	MovementVolumeSince(ctx context.Context, since time.Time) (int64, error)
	TopMoversSince(ctx context.Context, since time.Time, limit int) ([]TopMover, error)
	ValuationRows(ctx context.Context) ([]ValuationRow, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds the analytics read repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ProductCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("products").
		Where("is_active = ?", true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return count, nil
}

func (r *repository) LowStockCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*)
		FROM stock_levels sl
		JOIN products p ON p.id = sl.product_id
		WHERE p.is_active = ? AND sl.on_hand_qty <= p.reorder_point
	`, true).Scan(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count low stock: %w", err)
	}
	return count, nil
}

func (r *repository) OpenOrderCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("purchase_orders").
		Where("status NOT IN ?", []enums.PurchaseOrderStatus{
			enums.PurchaseOrderStatusReceived,
			enums.PurchaseOrderStatusCancelled,
		}).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count open orders: %w", err)
	}
	return count, nil
}

func (r *repository) MovementVolumeSince(ctx context.Context, since time.Time) (int64, error) {
	var volume int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(ABS(quantity_delta)), 0)
		FROM stock_movements
		WHERE created_at >= ?
	`, since).Scan(&volume).Error
	if err != nil {
		return 0, fmt.Errorf("movement volume: %w", err)
	}
	return volume, nil
}

func (r *repository) TopMoversSince(ctx context.Context, since time.Time, limit int) ([]TopMover, error) {
	var movers []TopMover
	err := r.db.WithContext(ctx).Raw(`
		SELECT p.id AS product_id, p.sku, p.name, SUM(ABS(sm.quantity_delta)) AS volume
		FROM stock_movements sm
		JOIN products p ON p.id = sm.product_id
		WHERE sm.created_at >= ?
		GROUP BY p.id, p.sku, p.name
		ORDER BY volume DESC, p.sku ASC
		LIMIT ?
	`, since, limit).Scan(&movers).Error
	if err != nil {
		return nil, fmt.Errorf("top movers: %w", err)
	}
	return movers, nil
}

func (r *repository) ValuationRows(ctx context.Context) ([]ValuationRow, error) {
	var rows []ValuationRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT sl.product_id, sl.location_id, sl.on_hand_qty AS on_hand, p.unit_cost
		FROM stock_levels sl
		JOIN products p ON p.id = sl.product_id
		WHERE sl.on_hand_qty > 0
	`).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("valuation rows: %w", err)
	}
	return rows, nil
}
