package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/smartinventory/inventory-backend/internal/ledger"
	"github.com/smartinventory/inventory-backend/pkg/logger"
)

const defaultTransferGrace = 15 * time.Minute

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type transferReconciler interface {
	ReconcileTransfers(ctx context.Context, grace time.Duration) ([]ledger.TransferDiscrepancy, error)
}

// TransferReconcileJobParams configure the dangling transfer sweep.
type TransferReconcileJobParams struct {
	Logger *logger.Logger
	Ledger transferReconciler
	Grace  time.Duration
}

// NewTransferReconcileJob flags transfers whose opposite leg never landed.
func NewTransferReconcileJob(params TransferReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	grace := params.Grace
	if grace <= 0 {
		grace = defaultTransferGrace
	}
	return &transferReconcileJob{
		logg:   params.Logger,
		ledger: params.Ledger,
		grace:  grace,
	}, nil
}

type transferReconcileJob struct {
	logg   *logger.Logger
	ledger transferReconciler
	grace  time.Duration
}

func (j *transferReconcileJob) Name() string { return "transfer-reconcile" }

func (j *transferReconcileJob) Run(ctx context.Context) error {
	discrepancies, err := j.ledger.ReconcileTransfers(ctx, j.grace)
	if err != nil {
		return fmt.Errorf("transfer reconcile: %w", err)
	}
	for _, d := range discrepancies {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"source_ref":   d.SourceRef,
			"product_id":   d.ProductID.String(),
			"location_id":  d.LocationID.String(),
			"present_kind": d.PresentKind.String(),
			"missing_kind": d.MissingKind.String(),
		})
		j.logg.Warn(logCtx, "dangling transfer leg")
	}
	logCtx := j.logg.WithField(ctx, "discrepancies", len(discrepancies))
	j.logg.Info(logCtx, "transfer reconcile swept")
	return nil
}
