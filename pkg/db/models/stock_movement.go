package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/smartinventory/inventory-backend/pkg/enums"
)

// StockMovement is one immutable entry in the movement log. Rows are only ever
// appended; corrections are recorded as new compensating movements.
type StockMovement struct {
	Seq            int64              `gorm:"column:seq;primaryKey;autoIncrement"`
	ID             uuid.UUID          `gorm:"column:id;type:uuid;not null;uniqueIndex:ux_stock_movements_id"`
	ProductID      uuid.UUID          `gorm:"column:product_id;type:uuid;not null;index:ix_stock_movements_pair"`
	LocationID     uuid.UUID          `gorm:"column:location_id;type:uuid;not null;index:ix_stock_movements_pair"`
	Kind           enums.MovementKind `gorm:"column:kind;type:text;not null"`
	QuantityDelta  int                `gorm:"column:quantity_delta;not null"`
	SourceRef      *string            `gorm:"column:source_ref;index:ix_stock_movements_source_ref"`
	IdempotencyKey string             `gorm:"column:idempotency_key;type:text;not null;uniqueIndex:ux_stock_movements_idem_key"`
	ActorUserID    uuid.UUID          `gorm:"column:actor_user_id;type:uuid;not null"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
}

// StockLevel is the materialized on-hand quantity per (product, location).
// It must always equal the fold of stock_movements for the same pair; the row
// also serves as the per-pair lock target for serialized writes.
type StockLevel struct {
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	LocationID uuid.UUID `gorm:"column:location_id;type:uuid;primaryKey"`
	OnHandQty  int       `gorm:"column:on_hand_qty;not null;default:0"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
