package enums

import "fmt"

// MovementKind classifies a stock movement entry.
type MovementKind string

const (
	MovementKindReceive         MovementKind = "receive"
	MovementKindSale            MovementKind = "sale"
	MovementKindCountAdjustment MovementKind = "count_adjustment"
	MovementKindTransferOut     MovementKind = "transfer_out"
	MovementKindTransferIn      MovementKind = "transfer_in"
)

var validMovementKinds = []MovementKind{
	MovementKindReceive,
	MovementKindSale,
	MovementKindCountAdjustment,
	MovementKindTransferOut,
	MovementKindTransferIn,
}

// String implements fmt.Stringer.
func (m MovementKind) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MovementKind.
func (m MovementKind) IsValid() bool {
	for _, candidate := range validMovementKinds {
		if candidate == m {
			return true
		}
	}
	return false
}

// Decreases reports whether movements of this kind remove stock.
func (m MovementKind) Decreases() bool {
	return m == MovementKindSale || m == MovementKindTransferOut
}

// ParseMovementKind converts raw input into a MovementKind.
func ParseMovementKind(value string) (MovementKind, error) {
	for _, candidate := range validMovementKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement kind %q", value)
}
