package movements

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smartinventory/inventory-backend/pkg/db/models"
	pkgerrors "github.com/smartinventory/inventory-backend/pkg/errors"
)

type fakeRepo struct {
	Repository
	lastLimit    int
	lastSinceSeq int64
	movements    []models.StockMovement
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) ListFor(ctx context.Context, productID, locationID uuid.UUID, sinceSeq int64, limit int) ([]models.StockMovement, error) {
	f.lastSinceSeq = sinceSeq
	f.lastLimit = limit
	return f.movements, nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.StockMovement, error) {
	for i := range f.movements {
		if f.movements[i].ID == id {
			return &f.movements[i], nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) ListBySourceRef(ctx context.Context, sourceRef string) ([]models.StockMovement, error) {
	return f.movements, nil
}

func (f *fakeRepo) OpenTransferRefs(ctx context.Context, olderThan time.Time) ([]string, error) {
	return nil, nil
}

func TestServiceListForValidation(t *testing.T) {
	t.Parallel()
	svc, err := NewService(&fakeRepo{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.ListFor(context.Background(), ListMovementsInput{LocationID: uuid.New()})
	assertErrorCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.ListFor(context.Background(), ListMovementsInput{ProductID: uuid.New()})
	assertErrorCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.ListFor(context.Background(), ListMovementsInput{
		ProductID: uuid.New(), LocationID: uuid.New(), SinceSeq: -1,
	})
	assertErrorCode(t, err, pkgerrors.CodeValidation)
}

func TestServiceListForClampsLimit(t *testing.T) {
	t.Parallel()
	repo := &fakeRepo{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	input := ListMovementsInput{ProductID: uuid.New(), LocationID: uuid.New()}
	if _, err := svc.ListFor(context.Background(), input); err != nil {
		t.Fatalf("list: %v", err)
	}
	if repo.lastLimit != defaultListLimit {
		t.Fatalf("expected default limit %d, got %d", defaultListLimit, repo.lastLimit)
	}

	input.Limit = maxListLimit + 1
	if _, err := svc.ListFor(context.Background(), input); err != nil {
		t.Fatalf("list: %v", err)
	}
	if repo.lastLimit != maxListLimit {
		t.Fatalf("expected clamped limit %d, got %d", maxListLimit, repo.lastLimit)
	}
}

func TestServiceGetByIDNotFound(t *testing.T) {
	t.Parallel()
	svc, err := NewService(&fakeRepo{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.GetByID(context.Background(), uuid.New())
	assertErrorCode(t, err, pkgerrors.CodeNotFound)
}

func assertErrorCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	if typed.Code() != code {
		t.Fatalf("expected code %s, got %s", code, typed.Code())
	}
}
