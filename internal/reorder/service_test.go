package reorder

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/smartinventory/inventory-backend/internal/ledger"
	"github.com/smartinventory/inventory-backend/internal/purchaseorders"
	"github.com/smartinventory/inventory-backend/pkg/config"
	"github.com/smartinventory/inventory-backend/pkg/db/models"
	"github.com/smartinventory/inventory-backend/pkg/enums"
	pkgerrors "github.com/smartinventory/inventory-backend/pkg/errors"
)

type fakeCandidates struct {
	candidates []ledger.ReorderCandidate
	err        error
}

func (f fakeCandidates) ReorderCandidates(ctx context.Context, locationID *uuid.UUID) ([]ledger.ReorderCandidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	if locationID == nil {
		return f.candidates, nil
	}
	var filtered []ledger.ReorderCandidate
	for _, candidate := range f.candidates {
		if candidate.LocationID == *locationID {
			filtered = append(filtered, candidate)
		}
	}
	return filtered, nil
}

type fakeOrders struct {
	purchaseorders.Service
	created []purchaseorders.CreateInput
}

func (f *fakeOrders) Create(ctx context.Context, input purchaseorders.CreateInput) (*models.PurchaseOrder, error) {
	f.created = append(f.created, input)
	return &models.PurchaseOrder{
		ID:         uuid.New(),
		Number:     "PO-000042",
		SupplierID: input.SupplierID,
		LocationID: input.LocationID,
		Status:     enums.PurchaseOrderStatusDraft,
	}, nil
}

func candidate(supplierID, locationID uuid.UUID, onHand, point, qty int) ledger.ReorderCandidate {
	return ledger.ReorderCandidate{
		ProductID:    uuid.New(),
		SKU:          "SKU-" + uuid.NewString()[:8],
		ProductName:  "Widget",
		SupplierID:   supplierID,
		LocationID:   locationID,
		OnHand:       onHand,
		ReorderPoint: point,
		ReorderQty:   qty,
	}
}

func TestSuggestFixedLotStrategy(t *testing.T) {
	t.Parallel()
	supplierID := uuid.New()
	locationID := uuid.New()
	source := fakeCandidates{candidates: []ledger.ReorderCandidate{
		candidate(supplierID, locationID, 2, 10, 25),
		candidate(supplierID, locationID, 0, 5, 0),
	}}

	svc, err := NewService(source, &fakeOrders{}, config.StockConfig{ReorderStrategy: "fixed_lot"}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	suggestions, err := svc.Suggest(context.Background(), nil)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if len(suggestions) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(suggestions))
	}
	if suggestions[0].SuggestedQty != 25 {
		t.Fatalf("expected fixed lot of 25, got %d", suggestions[0].SuggestedQty)
	}
	if suggestions[1].SuggestedQty != 5 {
		t.Fatalf("expected deficit fallback of 5 when no reorder qty, got %d", suggestions[1].SuggestedQty)
	}
}

func TestSuggestTopUpStrategy(t *testing.T) {
	t.Parallel()
	supplierID := uuid.New()
	locationID := uuid.New()
	source := fakeCandidates{candidates: []ledger.ReorderCandidate{
		candidate(supplierID, locationID, 3, 10, 25),
	}}

	svc, err := NewService(source, &fakeOrders{}, config.StockConfig{ReorderStrategy: "top_up"}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	suggestions, err := svc.Suggest(context.Background(), nil)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if suggestions[0].SuggestedQty != 7 {
		t.Fatalf("expected top-up of 7, got %d", suggestions[0].SuggestedQty)
	}
}

func TestNewServiceRejectsUnknownStrategy(t *testing.T) {
	t.Parallel()
	_, err := NewService(fakeCandidates{}, &fakeOrders{}, config.StockConfig{ReorderStrategy: "clairvoyant"}, nil)
	if err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestDraftOrdersGroupsBySupplier(t *testing.T) {
	t.Parallel()
	supplierA := uuid.New()
	supplierB := uuid.New()
	locationID := uuid.New()
	otherLocation := uuid.New()
	source := fakeCandidates{candidates: []ledger.ReorderCandidate{
		candidate(supplierA, locationID, 1, 10, 20),
		candidate(supplierA, locationID, 4, 8, 15),
		candidate(supplierB, locationID, 0, 6, 12),
		candidate(supplierB, otherLocation, 0, 6, 12),
	}}
	orders := &fakeOrders{}

	svc, err := NewService(source, orders, config.StockConfig{ReorderStrategy: "fixed_lot"}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	result, err := svc.DraftOrders(context.Background(), locationID, purchaseorders.Actor{
		UserID: uuid.New(),
		Role:   enums.MemberRoleManager,
	})
	if err != nil {
		t.Fatalf("draft orders: %v", err)
	}
	if len(result.Orders) != 2 {
		t.Fatalf("expected one draft per supplier, got %d", len(result.Orders))
	}
	if result.LineCount != 3 {
		t.Fatalf("expected 3 lines across drafts, got %d", result.LineCount)
	}
	if len(orders.created) != 2 {
		t.Fatalf("expected 2 create calls, got %d", len(orders.created))
	}
	byLines := map[int]bool{}
	for _, input := range orders.created {
		if input.LocationID != locationID {
			t.Fatalf("expected drafts scoped to requested location, got %s", input.LocationID)
		}
		byLines[len(input.Lines)] = true
	}
	if !byLines[2] || !byLines[1] {
		t.Fatalf("expected drafts with 2 and 1 lines, got %v", byLines)
	}
}

func TestDraftOrdersRequiresLocation(t *testing.T) {
	t.Parallel()
	svc, err := NewService(fakeCandidates{}, &fakeOrders{}, config.StockConfig{}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	_, err = svc.DraftOrders(context.Background(), uuid.Nil, purchaseorders.Actor{UserID: uuid.New()})
	if err == nil {
		t.Fatal("expected validation error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
}
