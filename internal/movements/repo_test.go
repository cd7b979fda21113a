package movements

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/smartinventory/inventory-backend/pkg/db/models"
	"github.com/smartinventory/inventory-backend/pkg/enums"
)

func newMovementsDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:movements_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.StockMovement{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func mustInsertMovement(t *testing.T, repo Repository, movement *models.StockMovement) *models.StockMovement {
	t.Helper()
	if movement.ID == uuid.Nil {
		movement.ID = uuid.New()
	}
	if movement.IdempotencyKey == "" {
		movement.IdempotencyKey = uuid.NewString()
	}
	if movement.ActorUserID == uuid.Nil {
		movement.ActorUserID = uuid.New()
	}
	if err := repo.Insert(context.Background(), movement); err != nil {
		t.Fatalf("insert movement: %v", err)
	}
	return movement
}

func TestRepositoryListForOrdersBySeq(t *testing.T) {
	t.Parallel()
	repo := NewRepository(newMovementsDB(t))
	ctx := context.Background()

	productID := uuid.New()
	locationID := uuid.New()
	otherProduct := uuid.New()

	first := mustInsertMovement(t, repo, &models.StockMovement{
		ProductID: productID, LocationID: locationID,
		Kind: enums.MovementKindReceive, QuantityDelta: 10,
	})
	second := mustInsertMovement(t, repo, &models.StockMovement{
		ProductID: productID, LocationID: locationID,
		Kind: enums.MovementKindSale, QuantityDelta: -3,
	})
	mustInsertMovement(t, repo, &models.StockMovement{
		ProductID: otherProduct, LocationID: locationID,
		Kind: enums.MovementKindReceive, QuantityDelta: 5,
	})

	listed, err := repo.ListFor(ctx, productID, locationID, 0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(listed))
	}
	if listed[0].ID != first.ID || listed[1].ID != second.ID {
		t.Fatalf("unexpected order: %v then %v", listed[0].ID, listed[1].ID)
	}

	resumed, err := repo.ListFor(ctx, productID, locationID, first.Seq, 10)
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if len(resumed) != 1 || resumed[0].ID != second.ID {
		t.Fatalf("expected only the second movement, got %d", len(resumed))
	}
}

func TestRepositorySumDeltas(t *testing.T) {
	t.Parallel()
	repo := NewRepository(newMovementsDB(t))
	ctx := context.Background()

	productID := uuid.New()
	locationID := uuid.New()

	for _, delta := range []int{10, -3, 7} {
		kind := enums.MovementKindReceive
		if delta < 0 {
			kind = enums.MovementKindSale
		}
		mustInsertMovement(t, repo, &models.StockMovement{
			ProductID: productID, LocationID: locationID,
			Kind: kind, QuantityDelta: delta,
		})
	}

	sum, err := repo.SumDeltas(ctx, productID, locationID)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if sum != 14 {
		t.Fatalf("expected 14, got %d", sum)
	}

	empty, err := repo.SumDeltas(ctx, uuid.New(), locationID)
	if err != nil {
		t.Fatalf("sum empty: %v", err)
	}
	if empty != 0 {
		t.Fatalf("expected 0 for untouched pair, got %d", empty)
	}
}

func TestRepositoryGetByIdempotencyKey(t *testing.T) {
	t.Parallel()
	repo := NewRepository(newMovementsDB(t))
	ctx := context.Background()

	inserted := mustInsertMovement(t, repo, &models.StockMovement{
		ProductID: uuid.New(), LocationID: uuid.New(),
		Kind: enums.MovementKindReceive, QuantityDelta: 4,
		IdempotencyKey: "scan-abc",
	})

	found, err := repo.GetByIdempotencyKey(ctx, "scan-abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found == nil || found.ID != inserted.ID {
		t.Fatalf("expected stored movement, got %+v", found)
	}

	missing, err := repo.GetByIdempotencyKey(ctx, "scan-missing")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown key, got %+v", missing)
	}
}

func TestRepositoryInsertRejectsDuplicateKey(t *testing.T) {
	t.Parallel()
	repo := NewRepository(newMovementsDB(t))

	mustInsertMovement(t, repo, &models.StockMovement{
		ProductID: uuid.New(), LocationID: uuid.New(),
		Kind: enums.MovementKindReceive, QuantityDelta: 1,
		IdempotencyKey: "dup-key",
	})

	err := repo.Insert(context.Background(), &models.StockMovement{
		ID:             uuid.New(),
		ProductID:      uuid.New(),
		LocationID:     uuid.New(),
		Kind:           enums.MovementKindReceive,
		QuantityDelta:  1,
		IdempotencyKey: "dup-key",
		ActorUserID:    uuid.New(),
	})
	if err == nil {
		t.Fatal("expected unique violation for duplicate idempotency key")
	}
}

func TestRepositoryOpenTransferRefs(t *testing.T) {
	t.Parallel()
	repo := NewRepository(newMovementsDB(t))
	ctx := context.Background()

	productID := uuid.New()
	fromLocation := uuid.New()
	toLocation := uuid.New()
	old := time.Now().Add(-time.Hour)

	completeRef := "TR-complete"
	mustInsertMovement(t, repo, &models.StockMovement{
		ProductID: productID, LocationID: fromLocation,
		Kind: enums.MovementKindTransferOut, QuantityDelta: -5,
		SourceRef: &completeRef, CreatedAt: old,
	})
	mustInsertMovement(t, repo, &models.StockMovement{
		ProductID: productID, LocationID: toLocation,
		Kind: enums.MovementKindTransferIn, QuantityDelta: 5,
		SourceRef: &completeRef, CreatedAt: old,
	})

	danglingRef := "TR-dangling"
	mustInsertMovement(t, repo, &models.StockMovement{
		ProductID: productID, LocationID: fromLocation,
		Kind: enums.MovementKindTransferOut, QuantityDelta: -2,
		SourceRef: &danglingRef, CreatedAt: old,
	})

	recentRef := "TR-recent"
	mustInsertMovement(t, repo, &models.StockMovement{
		ProductID: productID, LocationID: fromLocation,
		Kind: enums.MovementKindTransferOut, QuantityDelta: -1,
		SourceRef: &recentRef,
	})

	refs, err := repo.OpenTransferRefs(ctx, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("open transfer refs: %v", err)
	}
	if len(refs) != 1 || refs[0] != danglingRef {
		t.Fatalf("expected only %q, got %v", danglingRef, refs)
	}
}
