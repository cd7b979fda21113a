package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/smartinventory/inventory-backend/api/responses"
	"github.com/smartinventory/inventory-backend/api/validators"
	"github.com/smartinventory/inventory-backend/internal/scan"
	"github.com/smartinventory/inventory-backend/pkg/enums"
	pkgerrors "github.com/smartinventory/inventory-backend/pkg/errors"
	"github.com/smartinventory/inventory-backend/pkg/logger"
)

type scanIngestRequest struct {
	SKU        string    `json:"sku" validate:"required"`
	Quantity   int       `json:"quantity" validate:"omitempty,min=1"`
	SessionID  string    `json:"session_id" validate:"required"`
	Kind       string    `json:"kind" validate:"required"`
	LocationID uuid.UUID `json:"location_id" validate:"required"`
}

type scanIngestResponse struct {
	ProductID      uuid.UUID        `json:"product_id"`
	IdempotencyKey string           `json:"idempotency_key"`
	Movement       movementResponse `json:"movement"`
}

// ScanIngest accepts one raw barcode read and turns it into a ledger movement.
func ScanIngest(svc scan.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scan service unavailable"))
			return
		}

		actor, err := requireStockWriter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body scanIngestRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if body.Quantity == 0 {
			body.Quantity = 1
		}

		kind, err := enums.ParseMovementKind(strings.TrimSpace(body.Kind))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid movement kind"))
			return
		}

		result, err := svc.Ingest(r.Context(), scan.IngestInput{
			RawSKU:      body.SKU,
			Quantity:    body.Quantity,
			SessionID:   body.SessionID,
			Kind:        kind,
			LocationID:  body.LocationID,
			ActorUserID: actor.UserID,
			ActorRole:   actor.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, scanIngestResponse{
			ProductID:      result.ProductID,
			IdempotencyKey: result.IdempotencyKey,
			Movement:       newMovementResponse(result.Movement),
		})
	}
}
