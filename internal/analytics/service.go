package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	movementWindow  = 30 * 24 * time.Hour
	defaultTopCount = 5
)

// Summary is the dashboard payload.
type Summary struct {
	ProductCount    int64           `json:"productCount"`
	LowStockCount   int64           `json:"lowStockCount"`
	OpenOrderCount  int64           `json:"openOrderCount"`
	MovementVolume  int64           `json:"movementVolume30d"`
	InventoryValue  decimal.Decimal `json:"inventoryValue"`
	TopMovers       []TopMover      `json:"topMovers"`
	GeneratedAt     time.Time       `json:"generatedAt"`
	WindowStartedAt time.Time       `json:"windowStartedAt"`
}

// Service assembles the inventory dashboard.
type Service interface {
	Summary(ctx context.Context) (*Summary, error)
	Valuation(ctx context.Context) (decimal.Decimal, error)
}

type service struct {
	repo  Repository
	clock func() time.Time
}

// NewService builds the analytics service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("analytics repository required")
	}
	return &service{repo: repo, clock: time.Now}, nil
}

func (s *service) Summary(ctx context.Context) (*Summary, error) {
	now := s.clock().UTC()
	since := now.Add(-movementWindow)

	products, err := s.repo.ProductCount(ctx)
	if err != nil {
		return nil, err
	}
	lowStock, err := s.repo.LowStockCount(ctx)
	if err != nil {
		return nil, err
	}
	openOrders, err := s.repo.OpenOrderCount(ctx)
	if err != nil {
		return nil, err
	}
	volume, err := s.repo.MovementVolumeSince(ctx, since)
	if err != nil {
		return nil, err
	}
	movers, err := s.repo.TopMoversSince(ctx, since, defaultTopCount)
	if err != nil {
		return nil, err
	}
	value, err := s.Valuation(ctx)
	if err != nil {
		return nil, err
	}

	return &Summary{
		ProductCount:    products,
		LowStockCount:   lowStock,
		OpenOrderCount:  openOrders,
		MovementVolume:  volume,
		InventoryValue:  value,
		TopMovers:       movers,
		GeneratedAt:     now,
		WindowStartedAt: since,
	}, nil
}

// Valuation sums on-hand quantity times unit cost across all stock levels.
func (s *service) Valuation(ctx context.Context) (decimal.Decimal, error) {
	rows, err := s.repo.ValuationRows(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.UnitCost.Mul(decimal.NewFromInt(int64(row.OnHand))))
	}
	return total, nil
}
