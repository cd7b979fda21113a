package purchaseorders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smartinventory/inventory-backend/internal/ledger"
	"github.com/smartinventory/inventory-backend/pkg/db/models"
	"github.com/smartinventory/inventory-backend/pkg/enums"
	pkgerrors "github.com/smartinventory/inventory-backend/pkg/errors"
	"github.com/smartinventory/inventory-backend/pkg/logger"
	"github.com/smartinventory/inventory-backend/pkg/outbox"
	"github.com/smartinventory/inventory-backend/pkg/outbox/payloads"
)

// Service drives purchase orders through their status lifecycle. Receipts are
// the only path that writes RECEIVE movements into the stock ledger.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.PurchaseOrder, error)
	Get(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error)
	List(ctx context.Context, filter ListFilter) ([]models.PurchaseOrder, error)
	AddLine(ctx context.Context, id uuid.UUID, input LineInput, actor Actor) (*models.PurchaseOrder, error)
	UpdateLine(ctx context.Context, id uuid.UUID, input LineInput, actor Actor) (*models.PurchaseOrder, error)
	RemoveLine(ctx context.Context, id, productID uuid.UUID, actor Actor) (*models.PurchaseOrder, error)
	Send(ctx context.Context, id uuid.UUID, actor Actor) (*models.PurchaseOrder, error)
	Confirm(ctx context.Context, id uuid.UUID, actor Actor) (*models.PurchaseOrder, error)
	MarkShipped(ctx context.Context, id uuid.UUID, actor Actor) (*models.PurchaseOrder, error)
	Cancel(ctx context.Context, id uuid.UUID, actor Actor) (*models.PurchaseOrder, error)
	Receive(ctx context.Context, id uuid.UUID, input ReceiveInput, actor Actor) (*ReceiveResult, error)
}

// Actor identifies who triggered a mutation, for audit and events.
type Actor struct {
	UserID uuid.UUID
	Role   enums.MemberRole
}

// LineInput is one ordered product with its quantity.
type LineInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateInput opens a new draft order.
type CreateInput struct {
	SupplierID uuid.UUID
	LocationID uuid.UUID
	Lines      []LineInput
	Actor      Actor
}

// ReceiptLine is one received quantity for a product on the order.
type ReceiptLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// ReceiveInput records a shipment arrival, possibly partial.
type ReceiveInput struct {
	ReceiptID uuid.UUID
	Lines     []ReceiptLine
}

// ReceiveResult reports the order state after a receipt was applied.
type ReceiveResult struct {
	Order             *models.PurchaseOrder
	Lines             []payloads.ReceiptLineResult
	FullyReceived     bool
	PartiallyReceived bool
}

// ReferenceChecker validates the catalog references named on an order.
type ReferenceChecker interface {
	SupplierExists(ctx context.Context, id uuid.UUID) (bool, error)
	LocationExists(ctx context.Context, id uuid.UUID) (bool, error)
	ProductExists(ctx context.Context, id uuid.UUID) (bool, error)
}

type stockApplier interface {
	ApplyTx(ctx context.Context, tx *gorm.DB, input ledger.ApplyInput) (*models.StockMovement, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo   Repository
	refs   ReferenceChecker
	stock  stockApplier
	outbox *outbox.Service
	tx     txRunner
	logg   *logger.Logger
}

// NewService wires the purchase order engine with its collaborators.
func NewService(
	repo Repository,
	refs ReferenceChecker,
	stock stockApplier,
	outboxSvc *outbox.Service,
	tx txRunner,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("purchase order repository required")
	}
	if refs == nil {
		return nil, fmt.Errorf("reference checker required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock applier required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:   repo,
		refs:   refs,
		stock:  stock,
		outbox: outboxSvc,
		tx:     tx,
		logg:   logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.PurchaseOrder, error) {
	if input.SupplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id is required")
	}
	if input.LocationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location id is required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor user id is required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyOrder, "purchase order requires at least one line")
	}
	seen := make(map[uuid.UUID]struct{}, len(input.Lines))
	for _, line := range input.Lines {
		if err := s.validateLine(ctx, line); err != nil {
			return nil, err
		}
		if _, dup := seen[line.ProductID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate product on order").
				WithDetails(map[string]any{"product_id": line.ProductID.String()})
		}
		seen[line.ProductID] = struct{}{}
	}

	ok, err := s.refs.SupplierExists(ctx, input.SupplierID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown supplier reference").
			WithDetails(map[string]any{"supplier_id": input.SupplierID.String()})
	}
	ok, err = s.refs.LocationExists(ctx, input.LocationID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown location reference").
			WithDetails(map[string]any{"location_id": input.LocationID.String()})
	}

	var created *models.PurchaseOrder
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		number, err := repo.NextNumber(ctx)
		if err != nil {
			return err
		}
		po := &models.PurchaseOrder{
			ID:         uuid.New(),
			Number:     FormatNumber(number),
			SupplierID: input.SupplierID,
			LocationID: input.LocationID,
			Status:     enums.PurchaseOrderStatusDraft,
			CreatedBy:  input.Actor.UserID,
		}
		for i, line := range input.Lines {
			po.Lines = append(po.Lines, models.PurchaseOrderLine{
				ID:              uuid.New(),
				PurchaseOrderID: po.ID,
				ProductID:       line.ProductID,
				QtyOrdered:      line.Quantity,
				Position:        i,
			})
		}
		if err := repo.Create(ctx, po); err != nil {
			return err
		}
		created = po

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPurchaseOrderCreated,
			AggregateType: enums.AggregatePurchaseOrder,
			AggregateID:   po.ID,
			Actor:         actorRef(input.Actor),
			Version:       1,
			Data: payloads.PurchaseOrderCreatedEvent{
				PurchaseOrderID: po.ID,
				Number:          po.Number,
				SupplierID:      po.SupplierID,
				LocationID:      po.LocationID,
				LineCount:       len(po.Lines),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase order id is required")
	}
	po, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if po == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
	}
	return po, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]models.PurchaseOrder, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 {
		filter.Limit = 200
	}
	return s.repo.List(ctx, filter)
}

func (s *service) AddLine(ctx context.Context, id uuid.UUID, input LineInput, actor Actor) (*models.PurchaseOrder, error) {
	if err := s.validateLine(ctx, input); err != nil {
		return nil, err
	}
	return s.mutateDraft(ctx, id, actor, func(repo Repository, po *models.PurchaseOrder) error {
		for _, line := range po.Lines {
			if line.ProductID == input.ProductID {
				return pkgerrors.New(pkgerrors.CodeConflict, "product already on order").
					WithDetails(map[string]any{"product_id": input.ProductID.String()})
			}
		}
		line := &models.PurchaseOrderLine{
			ID:              uuid.New(),
			PurchaseOrderID: po.ID,
			ProductID:       input.ProductID,
			QtyOrdered:      input.Quantity,
			Position:        len(po.Lines),
		}
		if err := repo.CreateLine(ctx, line); err != nil {
			return err
		}
		po.Lines = append(po.Lines, *line)
		return nil
	})
}

func (s *service) UpdateLine(ctx context.Context, id uuid.UUID, input LineInput, actor Actor) (*models.PurchaseOrder, error) {
	if err := s.validateLine(ctx, input); err != nil {
		return nil, err
	}
	return s.mutateDraft(ctx, id, actor, func(repo Repository, po *models.PurchaseOrder) error {
		for i := range po.Lines {
			if po.Lines[i].ProductID == input.ProductID {
				po.Lines[i].QtyOrdered = input.Quantity
				return repo.SaveLine(ctx, &po.Lines[i])
			}
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "product not on order").
			WithDetails(map[string]any{"product_id": input.ProductID.String()})
	})
}

func (s *service) RemoveLine(ctx context.Context, id, productID uuid.UUID, actor Actor) (*models.PurchaseOrder, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return s.mutateDraft(ctx, id, actor, func(repo Repository, po *models.PurchaseOrder) error {
		for i := range po.Lines {
			if po.Lines[i].ProductID == productID {
				if err := repo.DeleteLine(ctx, po.Lines[i].ID); err != nil {
					return err
				}
				po.Lines = append(po.Lines[:i], po.Lines[i+1:]...)
				return nil
			}
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "product not on order").
			WithDetails(map[string]any{"product_id": productID.String()})
	})
}

func (s *service) Send(ctx context.Context, id uuid.UUID, actor Actor) (*models.PurchaseOrder, error) {
	return s.transition(ctx, id, actor, enums.PurchaseOrderStatusSent, enums.EventPurchaseOrderSent, func(po *models.PurchaseOrder, now time.Time) error {
		if len(po.Lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyOrder, "cannot send an order without lines").
				WithDetails(map[string]any{"number": po.Number})
		}
		po.SentAt = &now
		return nil
	})
}

func (s *service) Confirm(ctx context.Context, id uuid.UUID, actor Actor) (*models.PurchaseOrder, error) {
	return s.transition(ctx, id, actor, enums.PurchaseOrderStatusConfirmed, enums.EventPurchaseOrderConfirmed, func(po *models.PurchaseOrder, now time.Time) error {
		po.ConfirmedAt = &now
		return nil
	})
}

func (s *service) MarkShipped(ctx context.Context, id uuid.UUID, actor Actor) (*models.PurchaseOrder, error) {
	return s.transition(ctx, id, actor, enums.PurchaseOrderStatusShipped, enums.EventPurchaseOrderShipped, func(po *models.PurchaseOrder, now time.Time) error {
		po.ShippedAt = &now
		return nil
	})
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID, actor Actor) (*models.PurchaseOrder, error) {
	return s.transition(ctx, id, actor, enums.PurchaseOrderStatusCancelled, enums.EventPurchaseOrderCancelled, func(po *models.PurchaseOrder, now time.Time) error {
		po.CancelledAt = &now
		return nil
	})
}

func (s *service) Receive(ctx context.Context, id uuid.UUID, input ReceiveInput, actor Actor) (*ReceiveResult, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase order id is required")
	}
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor user id is required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receipt requires at least one line")
	}
	for _, line := range input.Lines {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "receipt line product id is required")
		}
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "receipt quantity must be a positive integer")
		}
	}
	receiptID := input.ReceiptID
	if receiptID == uuid.Nil {
		receiptID = uuid.New()
	}

	result := &ReceiveResult{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		po, err := repo.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if po == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
		}
		if !po.Status.CanReceive() {
			return invalidTransition(po, enums.PurchaseOrderStatusReceived)
		}

		lineByProduct := make(map[uuid.UUID]*models.PurchaseOrderLine, len(po.Lines))
		for i := range po.Lines {
			lineByProduct[po.Lines[i].ProductID] = &po.Lines[i]
		}

		sourceRef := po.ID.String()
		for _, receipt := range input.Lines {
			line, ok := lineByProduct[receipt.ProductID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeValidation, "received product is not on the order").
					WithDetails(map[string]any{
						"number":     po.Number,
						"product_id": receipt.ProductID.String(),
					})
			}
			line.QtyReceived += receipt.Quantity
			if err := repo.SaveLine(ctx, line); err != nil {
				return err
			}

			key := fmt.Sprintf("po-receipt:%s:%s:%s", po.ID, receiptID, receipt.ProductID)
			if _, err := s.stock.ApplyTx(ctx, tx, ledger.ApplyInput{
				Kind:           enums.MovementKindReceive,
				ProductID:      receipt.ProductID,
				LocationID:     po.LocationID,
				Quantity:       receipt.Quantity,
				IdempotencyKey: key,
				SourceRef:      &sourceRef,
				ActorUserID:    actor.UserID,
				ActorRole:      actor.Role,
			}); err != nil {
				return err
			}

			over := line.QtyReceived > line.QtyOrdered
			if over && s.logg != nil {
				logCtx := s.logg.WithFields(ctx, map[string]any{
					"number":       po.Number,
					"product_id":   receipt.ProductID.String(),
					"qty_ordered":  line.QtyOrdered,
					"qty_received": line.QtyReceived,
				})
				s.logg.Warn(logCtx, "over-receipt recorded")
			}
			result.Lines = append(result.Lines, payloads.ReceiptLineResult{
				ProductID:   receipt.ProductID,
				QtyOrdered:  line.QtyOrdered,
				QtyReceived: line.QtyReceived,
				OverReceipt: over,
			})
		}

		if po.FullyReceived() {
			now := time.Now().UTC()
			po.Status = enums.PurchaseOrderStatusReceived
			po.ReceivedAt = &now
		}
		if err := repo.Save(ctx, po); err != nil {
			return err
		}

		result.Order = po
		result.FullyReceived = po.FullyReceived()
		result.PartiallyReceived = po.PartiallyReceived()

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPurchaseOrderReceived,
			AggregateType: enums.AggregatePurchaseOrder,
			AggregateID:   po.ID,
			Actor:         actorRef(actor),
			Version:       1,
			Data: payloads.PurchaseOrderReceivedEvent{
				PurchaseOrderID:   po.ID,
				Number:            po.Number,
				Lines:             result.Lines,
				FullyReceived:     result.FullyReceived,
				PartiallyReceived: result.PartiallyReceived,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// mutateDraft runs fn against a locked order that must still be in DRAFT.
func (s *service) mutateDraft(ctx context.Context, id uuid.UUID, actor Actor, fn func(Repository, *models.PurchaseOrder) error) (*models.PurchaseOrder, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase order id is required")
	}
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor user id is required")
	}

	var updated *models.PurchaseOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		po, err := repo.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if po == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
		}
		if po.Status != enums.PurchaseOrderStatusDraft {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("lines can only change in %s, order %s is %s",
				enums.PurchaseOrderStatusDraft, po.Number, po.Status)).
				WithDetails(map[string]any{
					"number":         po.Number,
					"current_status": po.Status.String(),
				})
		}
		if err := fn(repo, po); err != nil {
			return err
		}
		if err := repo.Save(ctx, po); err != nil {
			return err
		}
		updated = po
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// transition moves the order to target if the state machine allows it, stamps
// the timestamp via fn, and emits the matching event.
func (s *service) transition(
	ctx context.Context,
	id uuid.UUID,
	actor Actor,
	target enums.PurchaseOrderStatus,
	eventType enums.OutboxEventType,
	fn func(*models.PurchaseOrder, time.Time) error,
) (*models.PurchaseOrder, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase order id is required")
	}
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor user id is required")
	}

	var updated *models.PurchaseOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		po, err := repo.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if po == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
		}
		if !po.Status.CanTransitionTo(target) {
			return invalidTransition(po, target)
		}
		from := po.Status
		po.Status = target
		if err := fn(po, time.Now().UTC()); err != nil {
			return err
		}
		if err := repo.Save(ctx, po); err != nil {
			return err
		}
		updated = po

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregatePurchaseOrder,
			AggregateID:   po.ID,
			Actor:         actorRef(actor),
			Version:       1,
			Data: payloads.PurchaseOrderStatusEvent{
				PurchaseOrderID: po.ID,
				Number:          po.Number,
				FromStatus:      from,
				ToStatus:        target,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) validateLine(ctx context.Context, line LineInput) error {
	if line.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "line product id is required")
	}
	if line.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be a positive integer")
	}
	ok, err := s.refs.ProductExists(ctx, line.ProductID)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown product reference").
			WithDetails(map[string]any{"product_id": line.ProductID.String()})
	}
	return nil
}

func invalidTransition(po *models.PurchaseOrder, attempted enums.PurchaseOrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("purchase order %s cannot move from %s to %s",
		po.Number, po.Status, attempted)).
		WithDetails(map[string]any{
			"number":           po.Number,
			"current_status":   po.Status.String(),
			"attempted_status": attempted.String(),
		})
}

func actorRef(actor Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()}
}
