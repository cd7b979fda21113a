package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/smartinventory/inventory-backend/pkg/enums"
)

// PurchaseOrder is owned exclusively by the purchase order engine; lines are
// mutated only through its transitions. Cancelled orders are kept for audit.
type PurchaseOrder struct {
	ID          uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	Number      string                    `gorm:"column:number;type:text;not null;uniqueIndex:ux_purchase_orders_number"`
	SupplierID  uuid.UUID                 `gorm:"column:supplier_id;type:uuid;not null"`
	LocationID  uuid.UUID                 `gorm:"column:location_id;type:uuid;not null"`
	Status      enums.PurchaseOrderStatus `gorm:"column:status;type:text;not null;default:'draft'"`
	CreatedBy   uuid.UUID                 `gorm:"column:created_by;type:uuid;not null"`
	SentAt      *time.Time                `gorm:"column:sent_at"`
	ConfirmedAt *time.Time                `gorm:"column:confirmed_at"`
	ShippedAt   *time.Time                `gorm:"column:shipped_at"`
	ReceivedAt  *time.Time                `gorm:"column:received_at"`
	CancelledAt *time.Time                `gorm:"column:cancelled_at"`
	Lines       []PurchaseOrderLine       `gorm:"foreignKey:PurchaseOrderID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

// PartiallyReceived reports whether some but not all ordered quantity has
// arrived. It is derived from the lines, never stored as a status.
func (p PurchaseOrder) PartiallyReceived() bool {
	anyReceived := false
	fullyReceived := true
	for _, line := range p.Lines {
		if line.QtyReceived > 0 {
			anyReceived = true
		}
		if line.QtyReceived < line.QtyOrdered {
			fullyReceived = false
		}
	}
	return anyReceived && !fullyReceived
}

// FullyReceived reports whether every line has received at least its ordered
// quantity.
func (p PurchaseOrder) FullyReceived() bool {
	if len(p.Lines) == 0 {
		return false
	}
	for _, line := range p.Lines {
		if line.QtyReceived < line.QtyOrdered {
			return false
		}
	}
	return true
}

// PurchaseOrderLine records ordered versus received quantity for one product.
// QtyReceived accumulates across partial receipts and may exceed QtyOrdered
// when a supplier overships.
type PurchaseOrderLine struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PurchaseOrderID uuid.UUID `gorm:"column:purchase_order_id;type:uuid;not null;uniqueIndex:ux_po_lines_order_product"`
	ProductID       uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_po_lines_order_product"`
	QtyOrdered      int       `gorm:"column:qty_ordered;not null"`
	QtyReceived     int       `gorm:"column:qty_received;not null;default:0"`
	Position        int       `gorm:"column:position;not null;default:0"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Counter backs human-readable sequential numbering (purchase order numbers).
// The row is incremented under a row lock so numbers are gapless per name.
type Counter struct {
	Name      string    `gorm:"column:name;type:text;primaryKey"`
	Value     int64     `gorm:"column:value;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
