package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smartinventory/inventory-backend/api/responses"
	"github.com/smartinventory/inventory-backend/api/validators"
	"github.com/smartinventory/inventory-backend/internal/ledger"
	"github.com/smartinventory/inventory-backend/internal/movements"
	"github.com/smartinventory/inventory-backend/pkg/db/models"
	"github.com/smartinventory/inventory-backend/pkg/enums"
	pkgerrors "github.com/smartinventory/inventory-backend/pkg/errors"
	"github.com/smartinventory/inventory-backend/pkg/logger"
)

type stockLevelLister interface {
	ListLevels(ctx context.Context, locationID *uuid.UUID) ([]models.StockLevel, error)
}

type applyMovementRequest struct {
	Kind           string    `json:"kind" validate:"required"`
	ProductID      uuid.UUID `json:"product_id" validate:"required"`
	LocationID     uuid.UUID `json:"location_id" validate:"required"`
	Quantity       int       `json:"quantity" validate:"required,min=0"`
	IdempotencyKey string    `json:"idempotency_key" validate:"required"`
	SourceRef      *string   `json:"source_ref,omitempty"`
}

type transferRequest struct {
	ProductID      uuid.UUID `json:"product_id" validate:"required"`
	FromLocationID uuid.UUID `json:"from_location_id" validate:"required"`
	ToLocationID   uuid.UUID `json:"to_location_id" validate:"required"`
	Quantity       int       `json:"quantity" validate:"required,min=1"`
	IdempotencyKey string    `json:"idempotency_key" validate:"required"`
}

type transferResponse struct {
	SourceRef string           `json:"source_ref"`
	Out       movementResponse `json:"out"`
	In        movementResponse `json:"in"`
}

type stockLevelResponse struct {
	ProductID  uuid.UUID `json:"product_id"`
	LocationID uuid.UUID `json:"location_id"`
	OnHandQty  int       `json:"on_hand_qty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StockApply records one movement against the ledger.
func StockApply(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		actor, err := requireStockWriter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body applyMovementRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		kind, err := enums.ParseMovementKind(strings.TrimSpace(body.Kind))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid movement kind"))
			return
		}

		movement, err := svc.Apply(r.Context(), ledger.ApplyInput{
			Kind:           kind,
			ProductID:      body.ProductID,
			LocationID:     body.LocationID,
			Quantity:       body.Quantity,
			IdempotencyKey: body.IdempotencyKey,
			SourceRef:      body.SourceRef,
			ActorUserID:    actor.UserID,
			ActorRole:      actor.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newMovementResponse(movement))
	}
}

// StockTransfer moves quantity between two locations atomically.
func StockTransfer(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		actor, err := requireStockWriter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body transferRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Transfer(r.Context(), ledger.TransferInput{
			ProductID:      body.ProductID,
			FromLocationID: body.FromLocationID,
			ToLocationID:   body.ToLocationID,
			Quantity:       body.Quantity,
			IdempotencyKey: body.IdempotencyKey,
			ActorUserID:    actor.UserID,
			ActorRole:      actor.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, transferResponse{
			SourceRef: result.SourceRef,
			Out:       newMovementResponse(result.Out),
			In:        newMovementResponse(result.In),
		})
	}
}

// StockLevels lists cached on-hand quantities, optionally scoped to a location.
func StockLevels(levels stockLevelLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if levels == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock levels unavailable"))
			return
		}

		locationID, err := queryUUID(r, "location_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := levels.ListLevels(r.Context(), locationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stock levels"))
			return
		}

		out := make([]stockLevelResponse, 0, len(rows))
		for _, row := range rows {
			out = append(out, stockLevelResponse{
				ProductID:  row.ProductID,
				LocationID: row.LocationID,
				OnHandQty:  row.OnHandQty,
				UpdatedAt:  row.UpdatedAt,
			})
		}
		responses.WriteSuccess(w, out)
	}
}

// StockOnHand reports the current quantity for one product/location pair.
func StockOnHand(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		locationID, err := pathUUID(r, "locationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		qty, err := svc.QuantityOf(r.Context(), productID, locationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"product_id":  productID,
			"location_id": locationID,
			"on_hand_qty": qty,
		})
	}
}

// StockRecompute folds the movement log for one pair and repairs the cached
// level if it drifted.
func StockRecompute(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		locationID, err := pathUUID(r, "locationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Recompute(r.Context(), productID, locationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"product_id":  result.ProductID,
			"location_id": result.LocationID,
			"on_hand_qty": result.OnHand,
			"previous":    result.Previous,
			"drifted":     result.Drifted,
		})
	}
}

// MovementList reads the movement log for one product/location pair, or by
// source_ref when that query parameter is present.
func MovementList(svc movements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "movement service unavailable"))
			return
		}

		if sourceRef := strings.TrimSpace(r.URL.Query().Get("source_ref")); sourceRef != "" {
			rows, err := svc.ListBySourceRef(r.Context(), sourceRef)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, newMovementResponses(rows))
			return
		}

		productID, err := queryUUID(r, "product_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		locationID, err := queryUUID(r, "location_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if productID == nil || locationID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product_id and location_id are required"))
			return
		}

		sinceSeq, err := parseQueryInt64(r, "since_seq")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListFor(r.Context(), movements.ListMovementsInput{
			ProductID:  *productID,
			LocationID: *locationID,
			SinceSeq:   sinceSeq,
			Limit:      limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newMovementResponses(rows))
	}
}

// MovementDetail returns a single movement by its id.
func MovementDetail(svc movements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "movement service unavailable"))
			return
		}

		id, err := pathUUID(r, "movementId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		movement, err := svc.GetByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newMovementResponse(movement))
	}
}

func requireStockWriter(r *http.Request) (actorContext, error) {
	actor, err := requireActor(r)
	if err != nil {
		return actorContext{}, err
	}
	if !actor.Role.CanMutateStock() {
		return actorContext{}, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot mutate stock")
	}
	return actor, nil
}

func parseQueryInt64(r *http.Request, key string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be a non-negative integer").WithDetails(map[string]any{"field": key})
	}
	return value, nil
}
