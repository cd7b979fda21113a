package movements

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smartinventory/inventory-backend/pkg/db/models"
	"github.com/smartinventory/inventory-backend/pkg/enums"
)

// Repository persists the append-only stock movement log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, movement *models.StockMovement) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.StockMovement, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.StockMovement, error)
	ListFor(ctx context.Context, productID, locationID uuid.UUID, sinceSeq int64, limit int) ([]models.StockMovement, error)
	ListBySourceRef(ctx context.Context, sourceRef string) ([]models.StockMovement, error)
	SumDeltas(ctx context.Context, productID, locationID uuid.UUID) (int, error)
	OpenTransferRefs(ctx context.Context, olderThan time.Time) ([]string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a movement repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, movement *models.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.StockMovement, error) {
	var movement models.StockMovement
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&movement).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &movement, nil
}

func (r *repository) GetByIdempotencyKey(ctx context.Context, key string) (*models.StockMovement, error) {
	var movement models.StockMovement
	err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&movement).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &movement, nil
}

func (r *repository) ListFor(ctx context.Context, productID, locationID uuid.UUID, sinceSeq int64, limit int) ([]models.StockMovement, error) {
	query := r.db.WithContext(ctx).
		Where("product_id = ? AND location_id = ?", productID, locationID).
		Where("seq > ?", sinceSeq).
		Order("seq ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var out []models.StockMovement
	if err := query.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) ListBySourceRef(ctx context.Context, sourceRef string) ([]models.StockMovement, error) {
	var out []models.StockMovement
	if err := r.db.WithContext(ctx).
		Where("source_ref = ?", sourceRef).
		Order("seq ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) SumDeltas(ctx context.Context, productID, locationID uuid.UUID) (int, error) {
	var total struct {
		Sum int
	}
	err := r.db.WithContext(ctx).
		Model(&models.StockMovement{}).
		Select("COALESCE(SUM(quantity_delta), 0) AS sum").
		Where("product_id = ? AND location_id = ?", productID, locationID).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total.Sum, nil
}

// OpenTransferRefs returns source refs that have a transfer leg older than the
// cutoff but are missing the matching opposite leg.
func (r *repository) OpenTransferRefs(ctx context.Context, olderThan time.Time) ([]string, error) {
	var refs []string
	err := r.db.WithContext(ctx).
		Model(&models.StockMovement{}).
		Select("source_ref").
		Where("kind IN ?", []enums.MovementKind{enums.MovementKindTransferOut, enums.MovementKindTransferIn}).
		Where("source_ref IS NOT NULL").
		Group("source_ref").
		Having("COUNT(DISTINCT kind) < 2 AND MIN(created_at) < ?", olderThan).
		Pluck("source_ref", &refs).Error
	if err != nil {
		return nil, err
	}
	return refs, nil
}
