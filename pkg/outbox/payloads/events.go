package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/smartinventory/inventory-backend/pkg/enums"
)

// MovementRecordedEvent is emitted for every movement appended to the log.
type MovementRecordedEvent struct {
	MovementID    uuid.UUID          `json:"movement_id"`
	ProductID     uuid.UUID          `json:"product_id"`
	LocationID    uuid.UUID          `json:"location_id"`
	Kind          enums.MovementKind `json:"kind"`
	QuantityDelta int                `json:"quantity_delta"`
	OnHandAfter   int                `json:"on_hand_after"`
	SourceRef     *string            `json:"source_ref,omitempty"`
}

// PurchaseOrderCreatedEvent signals a new draft purchase order.
type PurchaseOrderCreatedEvent struct {
	PurchaseOrderID uuid.UUID `json:"purchase_order_id"`
	Number          string    `json:"number"`
	SupplierID      uuid.UUID `json:"supplier_id"`
	LocationID      uuid.UUID `json:"location_id"`
	LineCount       int       `json:"line_count"`
}

// PurchaseOrderStatusEvent is emitted on send/confirm/ship/cancel transitions.
type PurchaseOrderStatusEvent struct {
	PurchaseOrderID uuid.UUID                 `json:"purchase_order_id"`
	Number          string                    `json:"number"`
	FromStatus      enums.PurchaseOrderStatus `json:"from_status"`
	ToStatus        enums.PurchaseOrderStatus `json:"to_status"`
}

// ReceiptLineResult reports per-line receipt accounting.
type ReceiptLineResult struct {
	ProductID   uuid.UUID `json:"product_id"`
	QtyOrdered  int       `json:"qty_ordered"`
	QtyReceived int       `json:"qty_received"`
	OverReceipt bool      `json:"over_receipt"`
}

// PurchaseOrderReceivedEvent is emitted once per receipt, partial or full.
type PurchaseOrderReceivedEvent struct {
	PurchaseOrderID   uuid.UUID           `json:"purchase_order_id"`
	Number            string              `json:"number"`
	Lines             []ReceiptLineResult `json:"lines"`
	FullyReceived     bool                `json:"fully_received"`
	PartiallyReceived bool                `json:"partially_received"`
}

// TransferDiscrepancyEvent flags a transfer with only one recorded leg.
type TransferDiscrepancyEvent struct {
	SourceRef   string             `json:"source_ref"`
	ProductID   uuid.UUID          `json:"product_id"`
	LocationID  uuid.UUID          `json:"location_id"`
	PresentKind enums.MovementKind `json:"present_kind"`
	MissingKind enums.MovementKind `json:"missing_kind"`
	DetectedAt  time.Time          `json:"detected_at"`
}

// StockLevelDriftEvent flags a cached level that disagrees with the log fold.
type StockLevelDriftEvent struct {
	ProductID  uuid.UUID `json:"product_id"`
	LocationID uuid.UUID `json:"location_id"`
	CachedQty  int       `json:"cached_qty"`
	FoldQty    int       `json:"fold_qty"`
	DetectedAt time.Time `json:"detected_at"`
}
