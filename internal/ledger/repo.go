package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/smartinventory/inventory-backend/pkg/db/models"
)

// Repository manages the cached stock levels derived from the movement log.
// The stock_levels row doubles as the lock target that serializes writers for
// one (product, location) pair.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockLevel(ctx context.Context, productID, locationID uuid.UUID) (*models.StockLevel, error)
	SaveLevel(ctx context.Context, level *models.StockLevel) error
	GetLevel(ctx context.Context, productID, locationID uuid.UUID) (*models.StockLevel, error)
	ListLevels(ctx context.Context, locationID *uuid.UUID) ([]models.StockLevel, error)
	ListBelowReorder(ctx context.Context, locationID *uuid.UUID) ([]ReorderCandidate, error)
}

// ReorderCandidate is a stock level at or under its product's reorder point.
type ReorderCandidate struct {
	ProductID    uuid.UUID `gorm:"column:product_id"`
	SKU          string    `gorm:"column:sku"`
	ProductName  string    `gorm:"column:product_name"`
	SupplierID   uuid.UUID `gorm:"column:supplier_id"`
	LocationID   uuid.UUID `gorm:"column:location_id"`
	OnHand       int       `gorm:"column:on_hand"`
	ReorderPoint int       `gorm:"column:reorder_point"`
	ReorderQty   int       `gorm:"column:reorder_qty"`
}

// Deficit reports how far below the reorder point the level sits.
func (c ReorderCandidate) Deficit() int {
	return c.ReorderPoint - c.OnHand
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a stock level repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// LockLevel loads the level row for the pair under a row lock, inserting a
// zero row first if none exists yet. Must run inside a transaction.
func (r *repository) LockLevel(ctx context.Context, productID, locationID uuid.UUID) (*models.StockLevel, error) {
	db := r.db.WithContext(ctx)
	level := &models.StockLevel{}
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND location_id = ?", productID, locationID).
		First(level).Error
	if err == nil {
		return level, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	seed := models.StockLevel{ProductID: productID, LocationID: locationID, OnHandQty: 0}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "location_id"}},
		DoNothing: true,
	}).Create(&seed).Error; err != nil {
		return nil, err
	}
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND location_id = ?", productID, locationID).
		First(level).Error; err != nil {
		return nil, err
	}
	return level, nil
}

func (r *repository) SaveLevel(ctx context.Context, level *models.StockLevel) error {
	return r.db.WithContext(ctx).
		Model(&models.StockLevel{}).
		Where("product_id = ? AND location_id = ?", level.ProductID, level.LocationID).
		Update("on_hand_qty", level.OnHandQty).Error
}

func (r *repository) GetLevel(ctx context.Context, productID, locationID uuid.UUID) (*models.StockLevel, error) {
	var level models.StockLevel
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND location_id = ?", productID, locationID).
		First(&level).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &level, nil
}

func (r *repository) ListLevels(ctx context.Context, locationID *uuid.UUID) ([]models.StockLevel, error) {
	query := r.db.WithContext(ctx).Order("product_id ASC, location_id ASC")
	if locationID != nil {
		query = query.Where("location_id = ?", *locationID)
	}
	var levels []models.StockLevel
	if err := query.Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

const reorderCandidatesQuery = `
SELECT p.id AS product_id,
       p.sku,
       p.name AS product_name,
       p.supplier_id,
       sl.location_id,
       sl.on_hand_qty AS on_hand,
       p.reorder_point,
       p.reorder_qty
FROM stock_levels sl
JOIN products p ON p.id = sl.product_id
WHERE p.is_active = ?
  AND sl.on_hand_qty <= p.reorder_point
`

const reorderCandidatesOrder = `ORDER BY (p.reorder_point - sl.on_hand_qty) DESC, p.sku ASC`

func (r *repository) ListBelowReorder(ctx context.Context, locationID *uuid.UUID) ([]ReorderCandidate, error) {
	query := reorderCandidatesQuery
	args := []any{true}
	if locationID != nil {
		query += "  AND sl.location_id = ?\n"
		args = append(args, *locationID)
	}
	query += reorderCandidatesOrder

	var out []ReorderCandidate
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
