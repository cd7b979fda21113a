package purchaseorders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/smartinventory/inventory-backend/pkg/db/models"
	"github.com/smartinventory/inventory-backend/pkg/enums"
)

const poCounterName = "purchase_order_number"

// Repository manages purchase order persistence and the numbering counter.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, po *models.PurchaseOrder) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error)
	List(ctx context.Context, filter ListFilter) ([]models.PurchaseOrder, error)
	Save(ctx context.Context, po *models.PurchaseOrder) error
	CreateLine(ctx context.Context, line *models.PurchaseOrderLine) error
	SaveLine(ctx context.Context, line *models.PurchaseOrderLine) error
	DeleteLine(ctx context.Context, lineID uuid.UUID) error
	NextNumber(ctx context.Context) (int64, error)
}

// ListFilter narrows purchase order listings.
type ListFilter struct {
	Status     *enums.PurchaseOrderStatus
	SupplierID *uuid.UUID
	LocationID *uuid.UUID
	Limit      int
	Offset     int
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a purchase order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, po *models.PurchaseOrder) error {
	return r.db.WithContext(ctx).Create(po).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	var po models.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", id).
		First(&po).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &po, nil
}

// LockByID loads the order and its lines under a row lock on the order,
// serializing concurrent transitions for the same order.
func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	var po models.PurchaseOrder
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&po).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	err = r.db.WithContext(ctx).
		Where("purchase_order_id = ?", id).
		Order("position ASC").
		Find(&po.Lines).Error
	if err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.PurchaseOrder, error) {
	query := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("created_at DESC")
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filter.SupplierID)
	}
	if filter.LocationID != nil {
		query = query.Where("location_id = ?", *filter.LocationID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	var orders []models.PurchaseOrder
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) Save(ctx context.Context, po *models.PurchaseOrder) error {
	return r.db.WithContext(ctx).
		Omit("Lines").
		Save(po).Error
}

func (r *repository) CreateLine(ctx context.Context, line *models.PurchaseOrderLine) error {
	return r.db.WithContext(ctx).Create(line).Error
}

func (r *repository) SaveLine(ctx context.Context, line *models.PurchaseOrderLine) error {
	return r.db.WithContext(ctx).Save(line).Error
}

func (r *repository) DeleteLine(ctx context.Context, lineID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", lineID).
		Delete(&models.PurchaseOrderLine{}).Error
}

// NextNumber increments the purchase order counter under a row lock so
// numbers are assigned monotonically without gaps. Must run inside a
// transaction.
func (r *repository) NextNumber(ctx context.Context) (int64, error) {
	db := r.db.WithContext(ctx)
	seed := models.Counter{Name: poCounterName, Value: 0}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&seed).Error; err != nil {
		return 0, err
	}

	var counter models.Counter
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name = ?", poCounterName).
		First(&counter).Error; err != nil {
		return 0, err
	}
	counter.Value++
	err := db.Model(&models.Counter{}).
		Where("name = ?", poCounterName).
		Update("value", counter.Value).Error
	if err != nil {
		return 0, err
	}
	return counter.Value, nil
}

// FormatNumber renders the human-readable order number.
func FormatNumber(value int64) string {
	return fmt.Sprintf("PO-%06d", value)
}
