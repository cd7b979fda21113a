package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog reference entity. The stock core reads products but
// never mutates them; the SKU is immutable once assigned.
type Product struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	SKU          string          `gorm:"column:sku;type:text;not null;uniqueIndex:ux_products_sku"`
	Name         string          `gorm:"column:name;not null"`
	CategoryID   *uuid.UUID      `gorm:"column:category_id;type:uuid"`
	Category     *Category       `gorm:"foreignKey:CategoryID"`
	SupplierID   uuid.UUID       `gorm:"column:supplier_id;type:uuid;not null"`
	Supplier     *Supplier       `gorm:"foreignKey:SupplierID"`
	UnitCost     decimal.Decimal `gorm:"column:unit_cost;type:numeric(12,2);not null;default:0"`
	ReorderPoint int             `gorm:"column:reorder_point;not null;default:0"`
	ReorderQty   int             `gorm:"column:reorder_qty;not null;default:1"`
	IsActive     bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Category groups catalog products.
type Category struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// Supplier is the vendor a purchase order is addressed to.
type Supplier struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Contact   *string   `gorm:"column:contact"`
	Email     *string   `gorm:"column:email"`
	Phone     *string   `gorm:"column:phone"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Location is a stocking site (warehouse, storefront, backroom).
type Location struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null;uniqueIndex"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
