package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/smartinventory/inventory-backend/internal/movements"
	"github.com/smartinventory/inventory-backend/pkg/config"
	"github.com/smartinventory/inventory-backend/pkg/db/models"
	"github.com/smartinventory/inventory-backend/pkg/enums"
	pkgerrors "github.com/smartinventory/inventory-backend/pkg/errors"
)

func receiveInput(productID, locationID uuid.UUID, qty int, key string) ApplyInput {
	return ApplyInput{
		Kind:           enums.MovementKindReceive,
		ProductID:      productID,
		LocationID:     locationID,
		Quantity:       qty,
		IdempotencyKey: key,
		ActorUserID:    uuid.New(),
		ActorRole:      enums.MemberRoleStaff,
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	t.Parallel()
	conn := newLedgerDB(t)
	svc := newTestService(t, conn, config.StockConfig{})
	ctx := context.Background()

	supplier := mustCreateTestSupplier(t, conn)
	product := mustCreateTestProduct(t, conn, supplier.ID, 0, 1)
	location := mustCreateTestLocation(t, conn, "main")

	input := receiveInput(product.ID, location.ID, 10, "scan-1")
	first, err := svc.Apply(ctx, input)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	second, err := svc.Apply(ctx, input)
	if err != nil {
		t.Fatalf("replay apply: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same movement id, got %s and %s", first.ID, second.ID)
	}

	onHand, err := svc.QuantityOf(ctx, product.ID, location.ID)
	if err != nil {
		t.Fatalf("quantity: %v", err)
	}
	if onHand != 10 {
		t.Fatalf("expected on-hand 10 after replay, got %d", onHand)
	}

	var eventCount int64
	if err := conn.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventMovementRecorded).
		Count(&eventCount).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if eventCount != 1 {
		t.Fatalf("expected 1 movement event, got %d", eventCount)
	}
}

func TestApplyRejectsNegativeStock(t *testing.T) {
	t.Parallel()
	conn := newLedgerDB(t)
	svc := newTestService(t, conn, config.StockConfig{})
	ctx := context.Background()

	supplier := mustCreateTestSupplier(t, conn)
	product := mustCreateTestProduct(t, conn, supplier.ID, 0, 1)
	location := mustCreateTestLocation(t, conn, "main")

	if _, err := svc.Apply(ctx, receiveInput(product.ID, location.ID, 5, "rcv-1")); err != nil {
		t.Fatalf("seed receive: %v", err)
	}

	_, err := svc.Apply(ctx, ApplyInput{
		Kind:           enums.MovementKindSale,
		ProductID:      product.ID,
		LocationID:     location.ID,
		Quantity:       8,
		IdempotencyKey: "sale-1",
		ActorUserID:    uuid.New(),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok || details["on_hand"] != 5 || details["requested"] != 8 {
		t.Fatalf("expected on-hand/requested details, got %+v", typed.Details())
	}

	onHand, err := svc.QuantityOf(ctx, product.ID, location.ID)
	if err != nil {
		t.Fatalf("quantity: %v", err)
	}
	if onHand != 5 {
		t.Fatalf("expected on-hand unchanged at 5, got %d", onHand)
	}

	if _, err := svc.Apply(ctx, ApplyInput{
		Kind:           enums.MovementKindSale,
		ProductID:      product.ID,
		LocationID:     location.ID,
		Quantity:       3,
		IdempotencyKey: "sale-2",
		ActorUserID:    uuid.New(),
	}); err != nil {
		t.Fatalf("valid sale: %v", err)
	}
	onHand, _ = svc.QuantityOf(ctx, product.ID, location.ID)
	if onHand != 2 {
		t.Fatalf("expected on-hand 2, got %d", onHand)
	}
}

func TestApplyAllowsNegativeWithOverride(t *testing.T) {
	t.Parallel()
	conn := newLedgerDB(t)
	svc := newTestService(t, conn, config.StockConfig{AllowNegative: true})
	ctx := context.Background()

	supplier := mustCreateTestSupplier(t, conn)
	product := mustCreateTestProduct(t, conn, supplier.ID, 0, 1)
	location := mustCreateTestLocation(t, conn, "main")

	if _, err := svc.Apply(ctx, ApplyInput{
		Kind:           enums.MovementKindSale,
		ProductID:      product.ID,
		LocationID:     location.ID,
		Quantity:       4,
		IdempotencyKey: "oversell",
		ActorUserID:    uuid.New(),
	}); err != nil {
		t.Fatalf("oversell with override: %v", err)
	}
	onHand, _ := svc.QuantityOf(ctx, product.ID, location.ID)
	if onHand != -4 {
		t.Fatalf("expected on-hand -4, got %d", onHand)
	}
}

func TestApplyCountAdjustment(t *testing.T) {
	t.Parallel()
	conn := newLedgerDB(t)
	svc := newTestService(t, conn, config.StockConfig{})
	ctx := context.Background()

	supplier := mustCreateTestSupplier(t, conn)
	product := mustCreateTestProduct(t, conn, supplier.ID, 0, 1)
	location := mustCreateTestLocation(t, conn, "main")

	if _, err := svc.Apply(ctx, receiveInput(product.ID, location.ID, 10, "rcv-1")); err != nil {
		t.Fatalf("seed receive: %v", err)
	}

	movement, err := svc.Apply(ctx, ApplyInput{
		Kind:           enums.MovementKindCountAdjustment,
		ProductID:      product.ID,
		LocationID:     location.ID,
		Quantity:       7,
		IdempotencyKey: "count-1",
		ActorUserID:    uuid.New(),
	})
	if err != nil {
		t.Fatalf("count adjustment: %v", err)
	}
	if movement.QuantityDelta != -3 {
		t.Fatalf("expected delta -3, got %d", movement.QuantityDelta)
	}
	onHand, _ := svc.QuantityOf(ctx, product.ID, location.ID)
	if onHand != 7 {
		t.Fatalf("expected on-hand 7, got %d", onHand)
	}

	_, err = svc.Apply(ctx, ApplyInput{
		Kind:           enums.MovementKindCountAdjustment,
		ProductID:      product.ID,
		LocationID:     location.ID,
		Quantity:       7,
		IdempotencyKey: "count-2",
		ActorUserID:    uuid.New(),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for unchanged count, got %v", err)
	}
}

func TestApplyRejectsUnknownReferences(t *testing.T) {
	t.Parallel()
	conn := newLedgerDB(t)
	svc := newTestService(t, conn, config.StockConfig{})
	ctx := context.Background()

	supplier := mustCreateTestSupplier(t, conn)
	product := mustCreateTestProduct(t, conn, supplier.ID, 0, 1)
	location := mustCreateTestLocation(t, conn, "main")

	_, err := svc.Apply(ctx, receiveInput(uuid.New(), location.ID, 5, "ghost-product"))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for unknown product, got %v", err)
	}

	_, err = svc.Apply(ctx, receiveInput(product.ID, uuid.New(), 5, "ghost-location"))
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for unknown location, got %v", err)
	}
}

func TestTransferAppliesBothLegs(t *testing.T) {
	t.Parallel()
	conn := newLedgerDB(t)
	svc := newTestService(t, conn, config.StockConfig{})
	ctx := context.Background()

	supplier := mustCreateTestSupplier(t, conn)
	product := mustCreateTestProduct(t, conn, supplier.ID, 0, 1)
	source := mustCreateTestLocation(t, conn, "warehouse")
	dest := mustCreateTestLocation(t, conn, "storefront")

	if _, err := svc.Apply(ctx, receiveInput(product.ID, source.ID, 10, "rcv-1")); err != nil {
		t.Fatalf("seed receive: %v", err)
	}

	result, err := svc.Transfer(ctx, TransferInput{
		ProductID:      product.ID,
		FromLocationID: source.ID,
		ToLocationID:   dest.ID,
		Quantity:       6,
		IdempotencyKey: "xfer-1",
		ActorUserID:    uuid.New(),
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if result.Out == nil || result.In == nil {
		t.Fatal("expected both transfer legs")
	}
	if result.Out.SourceRef == nil || result.In.SourceRef == nil || *result.Out.SourceRef != *result.In.SourceRef {
		t.Fatalf("expected shared source ref, got %v and %v", result.Out.SourceRef, result.In.SourceRef)
	}
	if result.Out.QuantityDelta != -6 || result.In.QuantityDelta != 6 {
		t.Fatalf("unexpected deltas %d and %d", result.Out.QuantityDelta, result.In.QuantityDelta)
	}

	fromQty, _ := svc.QuantityOf(ctx, product.ID, source.ID)
	toQty, _ := svc.QuantityOf(ctx, product.ID, dest.ID)
	if fromQty != 4 || toQty != 6 {
		t.Fatalf("expected 4/6 after transfer, got %d/%d", fromQty, toQty)
	}
}

func TestTransferIsIdempotent(t *testing.T) {
	t.Parallel()
	conn := newLedgerDB(t)
	svc := newTestService(t, conn, config.StockConfig{})
	ctx := context.Background()

	supplier := mustCreateTestSupplier(t, conn)
	product := mustCreateTestProduct(t, conn, supplier.ID, 0, 1)
	source := mustCreateTestLocation(t, conn, "warehouse")
	dest := mustCreateTestLocation(t, conn, "storefront")

	if _, err := svc.Apply(ctx, receiveInput(product.ID, source.ID, 10, "rcv-1")); err != nil {
		t.Fatalf("seed receive: %v", err)
	}

	input := TransferInput{
		ProductID:      product.ID,
		FromLocationID: source.ID,
		ToLocationID:   dest.ID,
		Quantity:       3,
		IdempotencyKey: "xfer-1",
		ActorUserID:    uuid.New(),
	}
	first, err := svc.Transfer(ctx, input)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	second, err := svc.Transfer(ctx, input)
	if err != nil {
		t.Fatalf("replay transfer: %v", err)
	}
	if first.Out.ID != second.Out.ID || first.In.ID != second.In.ID {
		t.Fatal("expected replay to return the original movements")
	}

	fromQty, _ := svc.QuantityOf(ctx, product.ID, source.ID)
	if fromQty != 7 {
		t.Fatalf("expected on-hand 7 after replay, got %d", fromQty)
	}
}

func TestTransferInsufficientStockLeavesNoTrace(t *testing.T) {
	t.Parallel()
	conn := newLedgerDB(t)
	svc := newTestService(t, conn, config.StockConfig{})
	ctx := context.Background()

	supplier := mustCreateTestSupplier(t, conn)
	product := mustCreateTestProduct(t, conn, supplier.ID, 0, 1)
	source := mustCreateTestLocation(t, conn, "warehouse")
	dest := mustCreateTestLocation(t, conn, "storefront")

	if _, err := svc.Apply(ctx, receiveInput(product.ID, source.ID, 2, "rcv-1")); err != nil {
		t.Fatalf("seed receive: %v", err)
	}

	_, err := svc.Transfer(ctx, TransferInput{
		ProductID:      product.ID,
		FromLocationID: source.ID,
		ToLocationID:   dest.ID,
		Quantity:       5,
		IdempotencyKey: "xfer-big",
		ActorUserID:    uuid.New(),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}

	fromQty, _ := svc.QuantityOf(ctx, product.ID, source.ID)
	toQty, _ := svc.QuantityOf(ctx, product.ID, dest.ID)
	if fromQty != 2 || toQty != 0 {
		t.Fatalf("expected 2/0 after failed transfer, got %d/%d", fromQty, toQty)
	}

	var moveCount int64
	if err := conn.Model(&models.StockMovement{}).
		Where("kind IN ?", []enums.MovementKind{enums.MovementKindTransferOut, enums.MovementKindTransferIn}).
		Count(&moveCount).Error; err != nil {
		t.Fatalf("count movements: %v", err)
	}
	if moveCount != 0 {
		t.Fatalf("expected no transfer movements, got %d", moveCount)
	}
}

func TestRecomputeRepairsDriftedLevel(t *testing.T) {
	t.Parallel()
	conn := newLedgerDB(t)
	svc := newTestService(t, conn, config.StockConfig{})
	ctx := context.Background()

	supplier := mustCreateTestSupplier(t, conn)
	product := mustCreateTestProduct(t, conn, supplier.ID, 0, 1)
	location := mustCreateTestLocation(t, conn, "main")

	if _, err := svc.Apply(ctx, receiveInput(product.ID, location.ID, 10, "rcv-1")); err != nil {
		t.Fatalf("seed receive: %v", err)
	}

	clean, err := svc.Recompute(ctx, product.ID, location.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if clean.Drifted || clean.OnHand != 10 {
		t.Fatalf("expected clean fold of 10, got %+v", clean)
	}

	// Corrupt the cache behind the service's back.
	err = conn.Model(&models.StockLevel{}).
		Where("product_id = ? AND location_id = ?", product.ID, location.ID).
		Update("on_hand_qty", 42).Error
	if err != nil {
		t.Fatalf("corrupt level: %v", err)
	}

	repaired, err := svc.Recompute(ctx, product.ID, location.ID)
	if err != nil {
		t.Fatalf("recompute drifted: %v", err)
	}
	if !repaired.Drifted || repaired.Previous != 42 || repaired.OnHand != 10 {
		t.Fatalf("expected drift repair 42->10, got %+v", repaired)
	}

	onHand, _ := svc.QuantityOf(ctx, product.ID, location.ID)
	if onHand != 10 {
		t.Fatalf("expected repaired on-hand 10, got %d", onHand)
	}

	var driftEvents int64
	if err := conn.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventStockLevelDriftDetected).
		Count(&driftEvents).Error; err != nil {
		t.Fatalf("count drift events: %v", err)
	}
	if driftEvents != 1 {
		t.Fatalf("expected 1 drift event, got %d", driftEvents)
	}
}

func TestReorderCandidatesOrdering(t *testing.T) {
	t.Parallel()
	conn := newLedgerDB(t)
	svc := newTestService(t, conn, config.StockConfig{})
	ctx := context.Background()

	supplier := mustCreateTestSupplier(t, conn)
	location := mustCreateTestLocation(t, conn, "main")

	// Deficits of 5, 2, and 9: expect 9, 5, 2.
	seed := []struct {
		reorderPoint int
		onHand       int
	}{
		{reorderPoint: 10, onHand: 5},
		{reorderPoint: 4, onHand: 2},
		{reorderPoint: 12, onHand: 3},
	}
	deficitToProduct := map[int]uuid.UUID{}
	for _, row := range seed {
		product := mustCreateTestProduct(t, conn, supplier.ID, row.reorderPoint, 10)
		if _, err := svc.Apply(ctx, receiveInput(product.ID, location.ID, row.onHand, product.SKU)); err != nil {
			t.Fatalf("seed stock: %v", err)
		}
		deficitToProduct[row.reorderPoint-row.onHand] = product.ID
	}

	// Comfortably stocked product must not appear.
	healthy := mustCreateTestProduct(t, conn, supplier.ID, 2, 5)
	if _, err := svc.Apply(ctx, receiveInput(healthy.ID, location.ID, 50, healthy.SKU)); err != nil {
		t.Fatalf("seed healthy stock: %v", err)
	}

	candidates, err := svc.ReorderCandidates(ctx, &location.ID)
	if err != nil {
		t.Fatalf("reorder candidates: %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(candidates))
	}
	wantOrder := []int{9, 5, 2}
	for i, deficit := range wantOrder {
		if candidates[i].Deficit() != deficit {
			t.Fatalf("position %d: expected deficit %d, got %d", i, deficit, candidates[i].Deficit())
		}
		if candidates[i].ProductID != deficitToProduct[deficit] {
			t.Fatalf("position %d: unexpected product", i)
		}
	}
}

func TestReconcileTransfersFlagsDanglingLeg(t *testing.T) {
	t.Parallel()
	conn := newLedgerDB(t)
	svc := newTestService(t, conn, config.StockConfig{})
	ctx := context.Background()

	supplier := mustCreateTestSupplier(t, conn)
	product := mustCreateTestProduct(t, conn, supplier.ID, 0, 1)
	location := mustCreateTestLocation(t, conn, "warehouse")

	danglingRef := "TR-" + uuid.NewString()
	dangling := &models.StockMovement{
		ID:             uuid.New(),
		ProductID:      product.ID,
		LocationID:     location.ID,
		Kind:           enums.MovementKindTransferOut,
		QuantityDelta:  -5,
		SourceRef:      &danglingRef,
		IdempotencyKey: uuid.NewString(),
		ActorUserID:    uuid.New(),
		CreatedAt:      time.Now().Add(-time.Hour),
	}
	if err := movements.NewRepository(conn).Insert(ctx, dangling); err != nil {
		t.Fatalf("seed dangling leg: %v", err)
	}

	found, err := svc.ReconcileTransfers(ctx, 15*time.Minute)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected 1 discrepancy, got %d", len(found))
	}
	disc := found[0]
	if disc.SourceRef != danglingRef || disc.PresentKind != enums.MovementKindTransferOut || disc.MissingKind != enums.MovementKindTransferIn {
		t.Fatalf("unexpected discrepancy %+v", disc)
	}

	// Re-running must not duplicate the alert event.
	if _, err := svc.ReconcileTransfers(ctx, 15*time.Minute); err != nil {
		t.Fatalf("reconcile again: %v", err)
	}
	var alertCount int64
	if err := conn.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventTransferDiscrepancyDetected).
		Count(&alertCount).Error; err != nil {
		t.Fatalf("count alerts: %v", err)
	}
	if alertCount != 1 {
		t.Fatalf("expected 1 alert event, got %d", alertCount)
	}
}

func TestQuantityOfMatchesFold(t *testing.T) {
	t.Parallel()
	conn := newLedgerDB(t)
	svc := newTestService(t, conn, config.StockConfig{})
	ctx := context.Background()

	supplier := mustCreateTestSupplier(t, conn)
	product := mustCreateTestProduct(t, conn, supplier.ID, 0, 1)
	location := mustCreateTestLocation(t, conn, "main")

	inputs := []ApplyInput{
		receiveInput(product.ID, location.ID, 10, "k1"),
		{Kind: enums.MovementKindSale, ProductID: product.ID, LocationID: location.ID, Quantity: 4, IdempotencyKey: "k2", ActorUserID: uuid.New()},
		receiveInput(product.ID, location.ID, 3, "k3"),
		{Kind: enums.MovementKindCountAdjustment, ProductID: product.ID, LocationID: location.ID, Quantity: 8, IdempotencyKey: "k4", ActorUserID: uuid.New()},
	}
	for _, input := range inputs {
		if _, err := svc.Apply(ctx, input); err != nil {
			t.Fatalf("apply %s: %v", input.IdempotencyKey, err)
		}
	}

	cached, err := svc.QuantityOf(ctx, product.ID, location.ID)
	if err != nil {
		t.Fatalf("quantity: %v", err)
	}
	fold, err := movements.NewRepository(conn).SumDeltas(ctx, product.ID, location.ID)
	if err != nil {
		t.Fatalf("fold: %v", err)
	}
	if cached != fold || cached != 8 {
		t.Fatalf("cache %d and fold %d should both be 8", cached, fold)
	}
}
