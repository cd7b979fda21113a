package cron

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/smartinventory/inventory-backend/internal/ledger"
	"github.com/smartinventory/inventory-backend/pkg/db/models"
	"github.com/smartinventory/inventory-backend/pkg/logger"
)

const defaultVerifySampleSize = 100

type levelLister interface {
	ListLevels(ctx context.Context, locationID *uuid.UUID) ([]models.StockLevel, error)
}

type levelRecomputer interface {
	Recompute(ctx context.Context, productID, locationID uuid.UUID) (*ledger.RecomputeResult, error)
}

// StockVerifyJobParams configure the cache-vs-fold verification sweep.
type StockVerifyJobParams struct {
	Logger     *logger.Logger
	Levels     levelLister
	Ledger     levelRecomputer
	SampleSize int
}

// NewStockVerifyJob folds a sample of stock levels from the movement log and
// repairs any cached quantity that drifted.
func NewStockVerifyJob(params StockVerifyJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Levels == nil {
		return nil, fmt.Errorf("level repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	sampleSize := params.SampleSize
	if sampleSize <= 0 {
		sampleSize = defaultVerifySampleSize
	}
	return &stockVerifyJob{
		logg:       params.Logger,
		levels:     params.Levels,
		ledger:     params.Ledger,
		sampleSize: sampleSize,
		shuffle:    rand.Shuffle,
	}, nil
}

type stockVerifyJob struct {
	logg       *logger.Logger
	levels     levelLister
	ledger     levelRecomputer
	sampleSize int
	shuffle    func(n int, swap func(i, j int))
}

func (j *stockVerifyJob) Name() string { return "stock-level-verify" }

func (j *stockVerifyJob) Run(ctx context.Context) error {
	levels, err := j.levels.ListLevels(ctx, nil)
	if err != nil {
		return fmt.Errorf("list stock levels: %w", err)
	}
	j.shuffle(len(levels), func(a, b int) {
		levels[a], levels[b] = levels[b], levels[a]
	})
	if len(levels) > j.sampleSize {
		levels = levels[:j.sampleSize]
	}

	var errs error
	drifted := 0
	for _, level := range levels {
		result, err := j.ledger.Recompute(ctx, level.ProductID, level.LocationID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("recompute %s/%s: %w", level.ProductID, level.LocationID, err))
			continue
		}
		if result.Drifted {
			drifted++
			logCtx := j.logg.WithFields(ctx, map[string]any{
				"product_id":  result.ProductID.String(),
				"location_id": result.LocationID.String(),
				"cached_qty":  result.Previous,
				"fold_qty":    result.OnHand,
			})
			j.logg.Warn(logCtx, "stock level drift repaired")
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"checked": len(levels),
		"drifted": drifted,
	})
	j.logg.Info(logCtx, "stock level verification complete")
	return errs
}
