package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateStockMovement OutboxAggregateType = "stock_movement"
	AggregatePurchaseOrder OutboxAggregateType = "purchase_order"
	AggregateStockLevel    OutboxAggregateType = "stock_level"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateStockMovement,
	AggregatePurchaseOrder,
	AggregateStockLevel,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventMovementRecorded            OutboxEventType = "movement_recorded"
	EventPurchaseOrderCreated        OutboxEventType = "purchase_order_created"
	EventPurchaseOrderSent           OutboxEventType = "purchase_order_sent"
	EventPurchaseOrderConfirmed      OutboxEventType = "purchase_order_confirmed"
	EventPurchaseOrderShipped        OutboxEventType = "purchase_order_shipped"
	EventPurchaseOrderReceived       OutboxEventType = "purchase_order_received"
	EventPurchaseOrderCancelled      OutboxEventType = "purchase_order_cancelled"
	EventTransferDiscrepancyDetected OutboxEventType = "transfer_discrepancy_detected"
	EventStockLevelDriftDetected     OutboxEventType = "stock_level_drift_detected"
)

var validOutboxEventTypes = []OutboxEventType{
	EventMovementRecorded,
	EventPurchaseOrderCreated,
	EventPurchaseOrderSent,
	EventPurchaseOrderConfirmed,
	EventPurchaseOrderShipped,
	EventPurchaseOrderReceived,
	EventPurchaseOrderCancelled,
	EventTransferDiscrepancyDetected,
	EventStockLevelDriftDetected,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
