package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smartinventory/inventory-backend/internal/movements"
	"github.com/smartinventory/inventory-backend/pkg/config"
	dbpkg "github.com/smartinventory/inventory-backend/pkg/db"
	"github.com/smartinventory/inventory-backend/pkg/db/models"
	"github.com/smartinventory/inventory-backend/pkg/enums"
	pkgerrors "github.com/smartinventory/inventory-backend/pkg/errors"
	"github.com/smartinventory/inventory-backend/pkg/logger"
	"github.com/smartinventory/inventory-backend/pkg/outbox"
	"github.com/smartinventory/inventory-backend/pkg/outbox/payloads"
)

const transferRefPrefix = "TR-"

// Service maintains authoritative on-hand quantities by folding the movement
// log, and guards every write with the per-pair negative-stock check.
type Service interface {
	QuantityOf(ctx context.Context, productID, locationID uuid.UUID) (int, error)
	Apply(ctx context.Context, input ApplyInput) (*models.StockMovement, error)
	ApplyTx(ctx context.Context, tx *gorm.DB, input ApplyInput) (*models.StockMovement, error)
	Transfer(ctx context.Context, input TransferInput) (*TransferResult, error)
	Recompute(ctx context.Context, productID, locationID uuid.UUID) (*RecomputeResult, error)
	ReorderCandidates(ctx context.Context, locationID *uuid.UUID) ([]ReorderCandidate, error)
	ReconcileTransfers(ctx context.Context, grace time.Duration) ([]TransferDiscrepancy, error)
}

// ApplyInput describes one requested stock movement. Quantity is always the
// positive magnitude except for count adjustments, where it is the newly
// counted total.
type ApplyInput struct {
	Kind           enums.MovementKind
	ProductID      uuid.UUID
	LocationID     uuid.UUID
	Quantity       int
	IdempotencyKey string
	SourceRef      *string
	ActorUserID    uuid.UUID
	ActorRole      enums.MemberRole
}

// TransferInput moves quantity between two locations as one unit of work.
type TransferInput struct {
	ProductID      uuid.UUID
	FromLocationID uuid.UUID
	ToLocationID   uuid.UUID
	Quantity       int
	IdempotencyKey string
	ActorUserID    uuid.UUID
	ActorRole      enums.MemberRole
}

// TransferResult reports both legs of a completed transfer.
type TransferResult struct {
	SourceRef string
	Out       *models.StockMovement
	In        *models.StockMovement
}

// RecomputeResult reports the fold outcome for one pair.
type RecomputeResult struct {
	ProductID  uuid.UUID
	LocationID uuid.UUID
	OnHand     int
	Previous   int
	Drifted    bool
}

// TransferDiscrepancy describes a transfer with only one recorded leg.
type TransferDiscrepancy struct {
	SourceRef   string
	MovementID  uuid.UUID
	ProductID   uuid.UUID
	LocationID  uuid.UUID
	PresentKind enums.MovementKind
	MissingKind enums.MovementKind
}

// ReferenceChecker validates product and location references before a
// movement is accepted.
type ReferenceChecker interface {
	ProductExists(ctx context.Context, id uuid.UUID) (bool, error)
	LocationExists(ctx context.Context, id uuid.UUID) (bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	levels    Repository
	movements movements.Repository
	refs      ReferenceChecker
	outbox    *outbox.Service
	tx        txRunner
	cfg       config.StockConfig
	logg      *logger.Logger
}

// NewService wires the stock ledger with its collaborators.
func NewService(
	levels Repository,
	moves movements.Repository,
	refs ReferenceChecker,
	outboxSvc *outbox.Service,
	tx txRunner,
	cfg config.StockConfig,
	logg *logger.Logger,
) (Service, error) {
	if levels == nil {
		return nil, fmt.Errorf("stock level repository required")
	}
	if moves == nil {
		return nil, fmt.Errorf("movement repository required")
	}
	if refs == nil {
		return nil, fmt.Errorf("reference checker required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		levels:    levels,
		movements: moves,
		refs:      refs,
		outbox:    outboxSvc,
		tx:        tx,
		cfg:       cfg,
		logg:      logg,
	}, nil
}

func (s *service) QuantityOf(ctx context.Context, productID, locationID uuid.UUID) (int, error) {
	if productID == uuid.Nil || locationID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "product id and location id are required")
	}
	level, err := s.levels.GetLevel(ctx, productID, locationID)
	if err != nil {
		return 0, err
	}
	if level == nil {
		return 0, nil
	}
	return level.OnHandQty, nil
}

func (s *service) Apply(ctx context.Context, input ApplyInput) (*models.StockMovement, error) {
	if err := s.validateApply(input); err != nil {
		return nil, err
	}

	if existing, err := s.movements.GetByIdempotencyKey(ctx, input.IdempotencyKey); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	if err := s.checkReferences(ctx, input.ProductID, input.LocationID); err != nil {
		return nil, err
	}

	var movement *models.StockMovement
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		applied, err := s.applyInTx(ctx, tx, input)
		if err != nil {
			return err
		}
		movement = applied
		return nil
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_stock_movements_idem_key") || dbpkg.IsUniqueViolation(err, "stock_movements.idempotency_key") {
			return s.movements.GetByIdempotencyKey(ctx, input.IdempotencyKey)
		}
		return nil, err
	}
	return movement, nil
}

// ApplyTx applies a movement inside a caller-owned transaction so a larger
// unit of work (a purchase order receipt) commits or rolls back as one.
func (s *service) ApplyTx(ctx context.Context, tx *gorm.DB, input ApplyInput) (*models.StockMovement, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if err := s.validateApply(input); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, input.ProductID, input.LocationID); err != nil {
		return nil, err
	}
	return s.applyInTx(ctx, tx, input)
}

// applyInTx locks the pair's level row, re-checks idempotency under the lock,
// appends the movement, and updates the cached level.
func (s *service) applyInTx(ctx context.Context, tx *gorm.DB, input ApplyInput) (*models.StockMovement, error) {
	moves := s.movements.WithTx(tx)
	levels := s.levels.WithTx(tx)

	level, err := levels.LockLevel(ctx, input.ProductID, input.LocationID)
	if err != nil {
		return nil, err
	}

	if existing, err := moves.GetByIdempotencyKey(ctx, input.IdempotencyKey); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	delta, err := s.deltaFor(input, level.OnHandQty)
	if err != nil {
		return nil, err
	}

	movement := &models.StockMovement{
		ID:             uuid.New(),
		ProductID:      input.ProductID,
		LocationID:     input.LocationID,
		Kind:           input.Kind,
		QuantityDelta:  delta,
		SourceRef:      input.SourceRef,
		IdempotencyKey: input.IdempotencyKey,
		ActorUserID:    input.ActorUserID,
	}
	if err := moves.Insert(ctx, movement); err != nil {
		return nil, err
	}

	level.OnHandQty += delta
	if err := levels.SaveLevel(ctx, level); err != nil {
		return nil, err
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventMovementRecorded,
		AggregateType: enums.AggregateStockMovement,
		AggregateID:   movement.ID,
		Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: input.ActorRole.String()},
		Version:       1,
		Data: payloads.MovementRecordedEvent{
			MovementID:    movement.ID,
			ProductID:     movement.ProductID,
			LocationID:    movement.LocationID,
			Kind:          movement.Kind,
			QuantityDelta: movement.QuantityDelta,
			OnHandAfter:   level.OnHandQty,
			SourceRef:     movement.SourceRef,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, err
	}
	return movement, nil
}

func (s *service) validateApply(input ApplyInput) error {
	if !input.Kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid movement kind %q", input.Kind))
	}
	if input.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.LocationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "location id is required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor user id is required")
	}
	if strings.TrimSpace(input.IdempotencyKey) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	}
	if input.Kind == enums.MovementKindCountAdjustment {
		if input.Quantity < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "counted quantity must not be negative")
		}
		return nil
	}
	if input.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer")
	}
	return nil
}

func (s *service) deltaFor(input ApplyInput, onHand int) (int, error) {
	switch input.Kind {
	case enums.MovementKindCountAdjustment:
		delta := input.Quantity - onHand
		if delta == 0 {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "counted quantity matches current on-hand").
				WithDetails(map[string]any{"on_hand": onHand})
		}
		return delta, nil
	case enums.MovementKindSale, enums.MovementKindTransferOut:
		if onHand-input.Quantity < 0 && !s.cfg.AllowNegative {
			return 0, pkgerrors.New(pkgerrors.CodeInsufficientStock, "movement would drive on-hand quantity negative").
				WithDetails(map[string]any{
					"product_id":  input.ProductID.String(),
					"location_id": input.LocationID.String(),
					"on_hand":     onHand,
					"requested":   input.Quantity,
				})
		}
		return -input.Quantity, nil
	default:
		return input.Quantity, nil
	}
}

func (s *service) checkReferences(ctx context.Context, productID, locationID uuid.UUID) error {
	ok, err := s.refs.ProductExists(ctx, productID)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown product reference").
			WithDetails(map[string]any{"product_id": productID.String()})
	}
	ok, err = s.refs.LocationExists(ctx, locationID)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown location reference").
			WithDetails(map[string]any{"location_id": locationID.String()})
	}
	return nil
}

// Transfer applies both legs under one transaction so a crash can never
// commit only half of the movement pair.
func (s *service) Transfer(ctx context.Context, input TransferInput) (*TransferResult, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.FromLocationID == uuid.Nil || input.ToLocationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source and destination location ids are required")
	}
	if input.FromLocationID == input.ToLocationID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source and destination locations must differ")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor user id is required")
	}
	if strings.TrimSpace(input.IdempotencyKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	}

	outKey := input.IdempotencyKey + ":out"
	inKey := input.IdempotencyKey + ":in"

	if existing, err := s.movements.GetByIdempotencyKey(ctx, outKey); err != nil {
		return nil, err
	} else if existing != nil {
		return s.transferResultFor(ctx, existing, inKey)
	}

	if err := s.checkReferences(ctx, input.ProductID, input.FromLocationID); err != nil {
		return nil, err
	}
	ok, err := s.refs.LocationExists(ctx, input.ToLocationID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown location reference").
			WithDetails(map[string]any{"location_id": input.ToLocationID.String()})
	}

	sourceRef := transferRefPrefix + uuid.NewString()
	result := &TransferResult{SourceRef: sourceRef}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		levels := s.levels.WithTx(tx)

		// Lock both pair rows in a stable order to avoid deadlocks between
		// opposite-direction transfers.
		first, second := input.FromLocationID, input.ToLocationID
		if strings.Compare(second.String(), first.String()) < 0 {
			first, second = second, first
		}
		if _, err := levels.LockLevel(ctx, input.ProductID, first); err != nil {
			return err
		}
		if _, err := levels.LockLevel(ctx, input.ProductID, second); err != nil {
			return err
		}

		out, err := s.applyInTx(ctx, tx, ApplyInput{
			Kind:           enums.MovementKindTransferOut,
			ProductID:      input.ProductID,
			LocationID:     input.FromLocationID,
			Quantity:       input.Quantity,
			IdempotencyKey: outKey,
			SourceRef:      &sourceRef,
			ActorUserID:    input.ActorUserID,
			ActorRole:      input.ActorRole,
		})
		if err != nil {
			return err
		}
		in, err := s.applyInTx(ctx, tx, ApplyInput{
			Kind:           enums.MovementKindTransferIn,
			ProductID:      input.ProductID,
			LocationID:     input.ToLocationID,
			Quantity:       input.Quantity,
			IdempotencyKey: inKey,
			SourceRef:      &sourceRef,
			ActorUserID:    input.ActorUserID,
			ActorRole:      input.ActorRole,
		})
		if err != nil {
			return err
		}
		result.Out = out
		result.In = in
		return nil
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_stock_movements_idem_key") || dbpkg.IsUniqueViolation(err, "stock_movements.idempotency_key") {
			existing, lookupErr := s.movements.GetByIdempotencyKey(ctx, outKey)
			if lookupErr != nil {
				return nil, lookupErr
			}
			if existing != nil {
				return s.transferResultFor(ctx, existing, inKey)
			}
		}
		return nil, err
	}
	return result, nil
}

func (s *service) transferResultFor(ctx context.Context, out *models.StockMovement, inKey string) (*TransferResult, error) {
	in, err := s.movements.GetByIdempotencyKey(ctx, inKey)
	if err != nil {
		return nil, err
	}
	sourceRef := ""
	if out.SourceRef != nil {
		sourceRef = *out.SourceRef
	}
	return &TransferResult{SourceRef: sourceRef, Out: out, In: in}, nil
}

// Recompute folds the movement log from zero for the pair and repairs the
// cached level when it disagrees.
func (s *service) Recompute(ctx context.Context, productID, locationID uuid.UUID) (*RecomputeResult, error) {
	if productID == uuid.Nil || locationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id and location id are required")
	}

	result := &RecomputeResult{ProductID: productID, LocationID: locationID}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		levels := s.levels.WithTx(tx)
		moves := s.movements.WithTx(tx)

		level, err := levels.LockLevel(ctx, productID, locationID)
		if err != nil {
			return err
		}
		fold, err := moves.SumDeltas(ctx, productID, locationID)
		if err != nil {
			return err
		}
		result.Previous = level.OnHandQty
		result.OnHand = fold
		if fold == level.OnHandQty {
			return nil
		}
		result.Drifted = true
		level.OnHandQty = fold
		if err := levels.SaveLevel(ctx, level); err != nil {
			return err
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockLevelDriftDetected,
			AggregateType: enums.AggregateStockLevel,
			AggregateID:   productID,
			Version:       1,
			Data: payloads.StockLevelDriftEvent{
				ProductID:  productID,
				LocationID: locationID,
				CachedQty:  result.Previous,
				FoldQty:    fold,
				DetectedAt: time.Now().UTC(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	if result.Drifted && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"product_id":  productID.String(),
			"location_id": locationID.String(),
			"cached_qty":  result.Previous,
			"fold_qty":    result.OnHand,
		})
		s.logg.Warn(logCtx, "stock level cache drifted from movement log")
	}
	return result, nil
}

func (s *service) ReorderCandidates(ctx context.Context, locationID *uuid.UUID) ([]ReorderCandidate, error) {
	return s.levels.ListBelowReorder(ctx, locationID)
}

// ReconcileTransfers flags transfers whose opposite leg never landed within
// the grace period.
func (s *service) ReconcileTransfers(ctx context.Context, grace time.Duration) ([]TransferDiscrepancy, error) {
	if grace <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "grace period must be positive")
	}

	cutoff := time.Now().Add(-grace)
	refs, err := s.movements.OpenTransferRefs(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, nil
	}

	discrepancies := make([]TransferDiscrepancy, 0, len(refs))
	for _, ref := range refs {
		legs, err := s.movements.ListBySourceRef(ctx, ref)
		if err != nil {
			return nil, err
		}
		leg := firstTransferLeg(legs)
		if leg == nil {
			continue
		}
		missing := enums.MovementKindTransferIn
		if leg.Kind == enums.MovementKindTransferIn {
			missing = enums.MovementKindTransferOut
		}
		disc := TransferDiscrepancy{
			SourceRef:   ref,
			MovementID:  leg.ID,
			ProductID:   leg.ProductID,
			LocationID:  leg.LocationID,
			PresentKind: leg.Kind,
			MissingKind: missing,
		}
		discrepancies = append(discrepancies, disc)

		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventTransferDiscrepancyDetected,
				AggregateType: enums.AggregateStockMovement,
				AggregateID:   leg.ID,
				Version:       1,
				Data: payloads.TransferDiscrepancyEvent{
					SourceRef:   ref,
					ProductID:   leg.ProductID,
					LocationID:  leg.LocationID,
					PresentKind: leg.Kind,
					MissingKind: missing,
					DetectedAt:  time.Now().UTC(),
				},
			})
		})
		if err != nil {
			return nil, err
		}
	}
	return discrepancies, nil
}

func firstTransferLeg(legs []models.StockMovement) *models.StockMovement {
	for i := range legs {
		if legs[i].Kind == enums.MovementKindTransferOut || legs[i].Kind == enums.MovementKindTransferIn {
			return &legs[i]
		}
	}
	return nil
}
