package reorder

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/smartinventory/inventory-backend/internal/ledger"
	"github.com/smartinventory/inventory-backend/internal/purchaseorders"
	"github.com/smartinventory/inventory-backend/pkg/config"
	pkgerrors "github.com/smartinventory/inventory-backend/pkg/errors"
	"github.com/smartinventory/inventory-backend/pkg/logger"
)

const (
	strategyFixedLot = "fixed_lot"
	strategyTopUp    = "top_up"
)

// Suggestion is one product the advisor recommends reordering.
type Suggestion struct {
	ProductID    uuid.UUID `json:"productId"`
	SKU          string    `json:"sku"`
	ProductName  string    `json:"productName"`
	SupplierID   uuid.UUID `json:"supplierId"`
	LocationID   uuid.UUID `json:"locationId"`
	OnHand       int       `json:"onHand"`
	ReorderPoint int       `json:"reorderPoint"`
	SuggestedQty int       `json:"suggestedQty"`
}

// DraftResult reports the draft orders created from the current suggestions.
type DraftResult struct {
	Orders    []DraftOrder `json:"orders"`
	Skipped   []Suggestion `json:"skipped,omitempty"`
	LineCount int          `json:"lineCount"`
}

// DraftOrder is one draft purchase order grouped by supplier.
type DraftOrder struct {
	PurchaseOrderID uuid.UUID `json:"purchaseOrderId"`
	Number          string    `json:"number"`
	SupplierID      uuid.UUID `json:"supplierId"`
	LineCount       int       `json:"lineCount"`
}

// Service turns low stock levels into reorder suggestions and draft orders.
type Service interface {
	Suggest(ctx context.Context, locationID *uuid.UUID) ([]Suggestion, error)
	DraftOrders(ctx context.Context, locationID uuid.UUID, actor purchaseorders.Actor) (*DraftResult, error)
}

type candidateSource interface {
	ReorderCandidates(ctx context.Context, locationID *uuid.UUID) ([]ledger.ReorderCandidate, error)
}

type service struct {
	candidates candidateSource
	orders     purchaseorders.Service
	cfg        config.StockConfig
	logg       *logger.Logger
}

// NewService wires the advisor against the ledger and the order engine.
func NewService(candidates candidateSource, orders purchaseorders.Service, cfg config.StockConfig, logg *logger.Logger) (Service, error) {
	if candidates == nil {
		return nil, fmt.Errorf("candidate source required")
	}
	if orders == nil {
		return nil, fmt.Errorf("purchase order service required")
	}
	switch cfg.ReorderStrategy {
	case "", strategyFixedLot, strategyTopUp:
	default:
		return nil, fmt.Errorf("unknown reorder strategy %q", cfg.ReorderStrategy)
	}
	return &service{
		candidates: candidates,
		orders:     orders,
		cfg:        cfg,
		logg:       logg,
	}, nil
}

func (s *service) Suggest(ctx context.Context, locationID *uuid.UUID) ([]Suggestion, error) {
	candidates, err := s.candidates.ReorderCandidates(ctx, locationID)
	if err != nil {
		return nil, err
	}
	suggestions := make([]Suggestion, 0, len(candidates))
	for _, candidate := range candidates {
		suggestions = append(suggestions, Suggestion{
			ProductID:    candidate.ProductID,
			SKU:          candidate.SKU,
			ProductName:  candidate.ProductName,
			SupplierID:   candidate.SupplierID,
			LocationID:   candidate.LocationID,
			OnHand:       candidate.OnHand,
			ReorderPoint: candidate.ReorderPoint,
			SuggestedQty: s.suggestedQty(candidate),
		})
	}
	return suggestions, nil
}

func (s *service) DraftOrders(ctx context.Context, locationID uuid.UUID, actor purchaseorders.Actor) (*DraftResult, error) {
	if locationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location id is required")
	}
	suggestions, err := s.Suggest(ctx, &locationID)
	if err != nil {
		return nil, err
	}

	result := &DraftResult{}
	bySupplier := make(map[uuid.UUID][]Suggestion)
	for _, suggestion := range suggestions {
		if suggestion.SuggestedQty <= 0 {
			result.Skipped = append(result.Skipped, suggestion)
			continue
		}
		bySupplier[suggestion.SupplierID] = append(bySupplier[suggestion.SupplierID], suggestion)
	}

	supplierIDs := make([]uuid.UUID, 0, len(bySupplier))
	for supplierID := range bySupplier {
		supplierIDs = append(supplierIDs, supplierID)
	}
	sort.Slice(supplierIDs, func(i, j int) bool {
		return supplierIDs[i].String() < supplierIDs[j].String()
	})

	for _, supplierID := range supplierIDs {
		group := bySupplier[supplierID]
		lines := make([]purchaseorders.LineInput, 0, len(group))
		for _, suggestion := range group {
			lines = append(lines, purchaseorders.LineInput{
				ProductID: suggestion.ProductID,
				Quantity:  suggestion.SuggestedQty,
			})
		}
		order, err := s.orders.Create(ctx, purchaseorders.CreateInput{
			SupplierID: supplierID,
			LocationID: locationID,
			Lines:      lines,
			Actor:      actor,
		})
		if err != nil {
			return nil, err
		}
		result.Orders = append(result.Orders, DraftOrder{
			PurchaseOrderID: order.ID,
			Number:          order.Number,
			SupplierID:      supplierID,
			LineCount:       len(lines),
		})
		result.LineCount += len(lines)
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"number":     order.Number,
				"supplier":   supplierID.String(),
				"line_count": len(lines),
			})
			s.logg.Info(logCtx, "reorder draft created")
		}
	}
	return result, nil
}

// suggestedQty applies the configured strategy. Fixed lot falls back to the
// deficit when a product carries no reorder quantity.
func (s *service) suggestedQty(candidate ledger.ReorderCandidate) int {
	if s.cfg.ReorderStrategy == strategyTopUp {
		return candidate.Deficit()
	}
	if candidate.ReorderQty > 0 {
		return candidate.ReorderQty
	}
	return candidate.Deficit()
}
