package scan

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/smartinventory/inventory-backend/internal/ledger"
	"github.com/smartinventory/inventory-backend/pkg/config"
	"github.com/smartinventory/inventory-backend/pkg/db/models"
	"github.com/smartinventory/inventory-backend/pkg/enums"
	pkgerrors "github.com/smartinventory/inventory-backend/pkg/errors"
)

type fakeResolver struct {
	products map[string]*models.Product
}

func (f *fakeResolver) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	return f.products[sku], nil
}

type fakeApplier struct {
	inputs []ledger.ApplyInput
}

func (f *fakeApplier) Apply(ctx context.Context, input ledger.ApplyInput) (*models.StockMovement, error) {
	f.inputs = append(f.inputs, input)
	return &models.StockMovement{
		ID:             uuid.New(),
		ProductID:      input.ProductID,
		LocationID:     input.LocationID,
		Kind:           input.Kind,
		QuantityDelta:  input.Quantity,
		IdempotencyKey: input.IdempotencyKey,
	}, nil
}

func scanTestConfig() config.ScanConfig {
	return config.ScanConfig{
		DebounceWindow: 100 * time.Millisecond,
		SessionTTL:     30 * time.Minute,
	}
}

func newScanService(t *testing.T, resolver *fakeResolver, applier *fakeApplier) (*service, *fakeClock) {
	t.Helper()
	svc, err := NewService(resolver, applier, scanTestConfig(), nil)
	if err != nil {
		t.Fatalf("new scan service: %v", err)
	}
	typed := svc.(*service)
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	typed.clock = clock.Now
	return typed, clock
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func validInput(sku, session string) IngestInput {
	return IngestInput{
		RawSKU:      sku,
		Quantity:    1,
		SessionID:   session,
		Kind:        enums.MovementKindReceive,
		LocationID:  uuid.New(),
		ActorUserID: uuid.New(),
		ActorRole:   enums.MemberRoleStaff,
	}
}

func TestIngestAcceptsKnownSKU(t *testing.T) {
	t.Parallel()
	product := &models.Product{ID: uuid.New(), SKU: "SKU-1"}
	resolver := &fakeResolver{products: map[string]*models.Product{"SKU-1": product}}
	applier := &fakeApplier{}
	svc, _ := newScanService(t, resolver, applier)

	result, err := svc.Ingest(context.Background(), validInput("SKU-1", "sess-1"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.ProductID != product.ID {
		t.Fatalf("expected product %s, got %s", product.ID, result.ProductID)
	}
	if result.IdempotencyKey == "" || result.Movement == nil {
		t.Fatalf("expected populated result, got %+v", result)
	}
	if len(applier.inputs) != 1 {
		t.Fatalf("expected 1 applied movement, got %d", len(applier.inputs))
	}
	if applier.inputs[0].IdempotencyKey != result.IdempotencyKey {
		t.Fatal("idempotency key should flow through to the ledger")
	}
}

func TestIngestRejectsUnknownSKU(t *testing.T) {
	t.Parallel()
	resolver := &fakeResolver{products: map[string]*models.Product{}}
	applier := &fakeApplier{}
	svc, _ := newScanService(t, resolver, applier)

	_, err := svc.Ingest(context.Background(), validInput("SKU-GHOST", "sess-1"))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnknownSKU {
		t.Fatalf("expected unknown sku error, got %v", err)
	}
	if len(applier.inputs) != 0 {
		t.Fatal("unknown sku must not produce a movement")
	}
}

func TestIngestValidation(t *testing.T) {
	t.Parallel()
	product := &models.Product{ID: uuid.New(), SKU: "SKU-1"}
	resolver := &fakeResolver{products: map[string]*models.Product{"SKU-1": product}}
	svc, _ := newScanService(t, resolver, &fakeApplier{})

	cases := []struct {
		name   string
		mutate func(*IngestInput)
	}{
		{"empty sku", func(in *IngestInput) { in.RawSKU = "  " }},
		{"zero quantity", func(in *IngestInput) { in.Quantity = 0 }},
		{"negative quantity", func(in *IngestInput) { in.Quantity = -2 }},
		{"missing session", func(in *IngestInput) { in.SessionID = "" }},
		{"bad kind", func(in *IngestInput) { in.Kind = "restock" }},
		{"missing location", func(in *IngestInput) { in.LocationID = uuid.Nil }},
		{"missing actor", func(in *IngestInput) { in.ActorUserID = uuid.Nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput("SKU-1", "sess-1")
			tc.mutate(&input)
			_, err := svc.Ingest(context.Background(), input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestIngestSuppressesRapidDuplicates(t *testing.T) {
	t.Parallel()
	product := &models.Product{ID: uuid.New(), SKU: "SKU-1"}
	resolver := &fakeResolver{products: map[string]*models.Product{"SKU-1": product}}
	applier := &fakeApplier{}
	svc, clock := newScanService(t, resolver, applier)
	ctx := context.Background()

	if _, err := svc.Ingest(ctx, validInput("SKU-1", "sess-1")); err != nil {
		t.Fatalf("first scan: %v", err)
	}

	clock.Advance(50 * time.Millisecond)
	_, err := svc.Ingest(ctx, validInput("SKU-1", "sess-1"))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDuplicateScan {
		t.Fatalf("expected duplicate scan error, got %v", err)
	}

	clock.Advance(150 * time.Millisecond)
	if _, err := svc.Ingest(ctx, validInput("SKU-1", "sess-1")); err != nil {
		t.Fatalf("scan after window: %v", err)
	}

	if len(applier.inputs) != 2 {
		t.Fatalf("expected exactly 2 movements, got %d", len(applier.inputs))
	}
	if applier.inputs[0].IdempotencyKey == applier.inputs[1].IdempotencyKey {
		t.Fatal("scans in different windows must use different keys")
	}
}

func TestIngestSeparateSessionsDoNotCollide(t *testing.T) {
	t.Parallel()
	product := &models.Product{ID: uuid.New(), SKU: "SKU-1"}
	resolver := &fakeResolver{products: map[string]*models.Product{"SKU-1": product}}
	applier := &fakeApplier{}
	svc, _ := newScanService(t, resolver, applier)
	ctx := context.Background()

	if _, err := svc.Ingest(ctx, validInput("SKU-1", "sess-1")); err != nil {
		t.Fatalf("session 1: %v", err)
	}
	if _, err := svc.Ingest(ctx, validInput("SKU-1", "sess-2")); err != nil {
		t.Fatalf("session 2: %v", err)
	}
	if len(applier.inputs) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(applier.inputs))
	}
}

func TestDebouncerPrune(t *testing.T) {
	t.Parallel()
	d := newDebouncer(100 * time.Millisecond)
	base := time.Unix(1700000000, 0)

	d.observe("sess|sku-a", base)
	d.observe("sess|sku-b", base.Add(25*time.Minute))
	if d.size() != 2 {
		t.Fatalf("expected 2 tracked scans, got %d", d.size())
	}

	d.prune(base.Add(30*time.Minute), 10*time.Minute)
	if d.size() != 1 {
		t.Fatalf("expected 1 tracked scan after prune, got %d", d.size())
	}
}
