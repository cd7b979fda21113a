package movements

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/smartinventory/inventory-backend/pkg/db/models"
	pkgerrors "github.com/smartinventory/inventory-backend/pkg/errors"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// Service exposes read access to the movement log. Writes go through the
// ledger so the negative-stock check and the cached level stay consistent.
type Service interface {
	ListFor(ctx context.Context, input ListMovementsInput) ([]models.StockMovement, error)
	ListBySourceRef(ctx context.Context, sourceRef string) ([]models.StockMovement, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.StockMovement, error)
}

// ListMovementsInput filters the movement log for one product/location pair.
type ListMovementsInput struct {
	ProductID  uuid.UUID
	LocationID uuid.UUID
	SinceSeq   int64
	Limit      int
}

type service struct {
	repo Repository
}

// NewService wires a movement query service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("movement repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListFor(ctx context.Context, input ListMovementsInput) ([]models.StockMovement, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.LocationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location id is required")
	}
	if input.SinceSeq < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "since seq must not be negative")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.repo.ListFor(ctx, input.ProductID, input.LocationID, input.SinceSeq, limit)
}

func (s *service) ListBySourceRef(ctx context.Context, sourceRef string) ([]models.StockMovement, error) {
	if sourceRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source ref is required")
	}
	return s.repo.ListBySourceRef(ctx, sourceRef)
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.StockMovement, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "movement id is required")
	}
	movement, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if movement == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "movement not found")
	}
	return movement, nil
}
