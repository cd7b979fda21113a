package enums

import "fmt"

// PurchaseOrderStatus tracks the lifecycle of a purchase order.
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft     PurchaseOrderStatus = "draft"
	PurchaseOrderStatusSent      PurchaseOrderStatus = "sent"
	PurchaseOrderStatusConfirmed PurchaseOrderStatus = "confirmed"
	PurchaseOrderStatusShipped   PurchaseOrderStatus = "shipped"
	PurchaseOrderStatusReceived  PurchaseOrderStatus = "received"
	PurchaseOrderStatusCancelled PurchaseOrderStatus = "cancelled"
)

var validPurchaseOrderStatuses = []PurchaseOrderStatus{
	PurchaseOrderStatusDraft,
	PurchaseOrderStatusSent,
	PurchaseOrderStatusConfirmed,
	PurchaseOrderStatusShipped,
	PurchaseOrderStatusReceived,
	PurchaseOrderStatusCancelled,
}

// purchaseOrderTransitions is the closed transition table. Receiving is handled
// separately because a partial receipt keeps the order in its current status.
var purchaseOrderTransitions = map[PurchaseOrderStatus][]PurchaseOrderStatus{
	PurchaseOrderStatusDraft:     {PurchaseOrderStatusSent, PurchaseOrderStatusCancelled},
	PurchaseOrderStatusSent:      {PurchaseOrderStatusConfirmed, PurchaseOrderStatusReceived, PurchaseOrderStatusCancelled},
	PurchaseOrderStatusConfirmed: {PurchaseOrderStatusShipped, PurchaseOrderStatusReceived, PurchaseOrderStatusCancelled},
	PurchaseOrderStatusShipped:   {PurchaseOrderStatusReceived},
	PurchaseOrderStatusReceived:  {},
	PurchaseOrderStatusCancelled: {},
}

// String implements fmt.Stringer.
func (p PurchaseOrderStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PurchaseOrderStatus.
func (p PurchaseOrderStatus) IsValid() bool {
	for _, candidate := range validPurchaseOrderStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (p PurchaseOrderStatus) IsTerminal() bool {
	return p == PurchaseOrderStatusReceived || p == PurchaseOrderStatusCancelled
}

// CanTransitionTo reports whether the transition table allows moving to target.
func (p PurchaseOrderStatus) CanTransitionTo(target PurchaseOrderStatus) bool {
	for _, candidate := range purchaseOrderTransitions[p] {
		if candidate == target {
			return true
		}
	}
	return false
}

// CanReceive reports whether line receipts may be recorded in this status.
func (p PurchaseOrderStatus) CanReceive() bool {
	switch p {
	case PurchaseOrderStatusSent, PurchaseOrderStatusConfirmed, PurchaseOrderStatusShipped:
		return true
	}
	return false
}

// ParsePurchaseOrderStatus converts raw input into a PurchaseOrderStatus.
func ParsePurchaseOrderStatus(value string) (PurchaseOrderStatus, error) {
	for _, candidate := range validPurchaseOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase order status %q", value)
}
