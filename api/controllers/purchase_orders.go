package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smartinventory/inventory-backend/api/responses"
	"github.com/smartinventory/inventory-backend/api/validators"
	posvc "github.com/smartinventory/inventory-backend/internal/purchaseorders"
	"github.com/smartinventory/inventory-backend/pkg/db/models"
	"github.com/smartinventory/inventory-backend/pkg/enums"
	pkgerrors "github.com/smartinventory/inventory-backend/pkg/errors"
	"github.com/smartinventory/inventory-backend/pkg/logger"
	"github.com/smartinventory/inventory-backend/pkg/outbox/payloads"
)

type purchaseOrderLineRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type createPurchaseOrderRequest struct {
	SupplierID uuid.UUID                  `json:"supplier_id" validate:"required"`
	LocationID uuid.UUID                  `json:"location_id" validate:"required"`
	Lines      []purchaseOrderLineRequest `json:"lines"`
}

type receiveLineRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type receivePurchaseOrderRequest struct {
	ReceiptID *uuid.UUID           `json:"receipt_id,omitempty"`
	Lines     []receiveLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type purchaseOrderLineResponse struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	QtyOrdered  int       `json:"qty_ordered"`
	QtyReceived int       `json:"qty_received"`
	Position    int       `json:"position"`
}

type purchaseOrderResponse struct {
	ID                uuid.UUID                   `json:"id"`
	Number            string                      `json:"number"`
	SupplierID        uuid.UUID                   `json:"supplier_id"`
	LocationID        uuid.UUID                   `json:"location_id"`
	Status            string                      `json:"status"`
	CreatedBy         uuid.UUID                   `json:"created_by"`
	Lines             []purchaseOrderLineResponse `json:"lines"`
	PartiallyReceived bool                        `json:"partially_received"`
	FullyReceived     bool                        `json:"fully_received"`
	SentAt            *time.Time                  `json:"sent_at,omitempty"`
	ConfirmedAt       *time.Time                  `json:"confirmed_at,omitempty"`
	ShippedAt         *time.Time                  `json:"shipped_at,omitempty"`
	ReceivedAt        *time.Time                  `json:"received_at,omitempty"`
	CancelledAt       *time.Time                  `json:"cancelled_at,omitempty"`
	CreatedAt         time.Time                   `json:"created_at"`
	UpdatedAt         time.Time                   `json:"updated_at"`
}

type receiveResponse struct {
	Order             purchaseOrderResponse        `json:"order"`
	Lines             []payloads.ReceiptLineResult `json:"lines"`
	FullyReceived     bool                         `json:"fully_received"`
	PartiallyReceived bool                         `json:"partially_received"`
}

func newPurchaseOrderResponse(po *models.PurchaseOrder) purchaseOrderResponse {
	lines := make([]purchaseOrderLineResponse, 0, len(po.Lines))
	for _, line := range po.Lines {
		lines = append(lines, purchaseOrderLineResponse{
			ID:          line.ID,
			ProductID:   line.ProductID,
			QtyOrdered:  line.QtyOrdered,
			QtyReceived: line.QtyReceived,
			Position:    line.Position,
		})
	}
	return purchaseOrderResponse{
		ID:                po.ID,
		Number:            po.Number,
		SupplierID:        po.SupplierID,
		LocationID:        po.LocationID,
		Status:            string(po.Status),
		CreatedBy:         po.CreatedBy,
		Lines:             lines,
		PartiallyReceived: po.PartiallyReceived(),
		FullyReceived:     po.FullyReceived(),
		SentAt:            po.SentAt,
		ConfirmedAt:       po.ConfirmedAt,
		ShippedAt:         po.ShippedAt,
		ReceivedAt:        po.ReceivedAt,
		CancelledAt:       po.CancelledAt,
		CreatedAt:         po.CreatedAt,
		UpdatedAt:         po.UpdatedAt,
	}
}

// PurchaseOrderCreate opens a new draft order.
func PurchaseOrderCreate(svc posvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchase order service unavailable"))
			return
		}

		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createPurchaseOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make([]posvc.LineInput, 0, len(body.Lines))
		for _, line := range body.Lines {
			lines = append(lines, posvc.LineInput{ProductID: line.ProductID, Quantity: line.Quantity})
		}

		po, err := svc.Create(r.Context(), posvc.CreateInput{
			SupplierID: body.SupplierID,
			LocationID: body.LocationID,
			Lines:      lines,
			Actor:      posvc.Actor{UserID: actor.UserID, Role: actor.Role},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newPurchaseOrderResponse(po))
	}
}

// PurchaseOrderList filters orders by status, supplier, and location.
func PurchaseOrderList(svc posvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchase order service unavailable"))
			return
		}

		var filter posvc.ListFilter
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParsePurchaseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			filter.Status = &status
		}

		supplierID, err := queryUUID(r, "supplier_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.SupplierID = supplierID

		locationID, err := queryUUID(r, "location_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.LocationID = locationID

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.Limit = limit

		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 100000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.Offset = offset

		orders, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]purchaseOrderResponse, 0, len(orders))
		for i := range orders {
			out = append(out, newPurchaseOrderResponse(&orders[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// PurchaseOrderDetail returns one order with its lines.
func PurchaseOrderDetail(svc posvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchase order service unavailable"))
			return
		}

		id, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		po, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPurchaseOrderResponse(po))
	}
}

// PurchaseOrderAddLine appends a product line to a draft order.
func PurchaseOrderAddLine(svc posvc.Service, logg *logger.Logger) http.HandlerFunc {
	return lineMutation(svc, logg, func(r *http.Request, id uuid.UUID, line posvc.LineInput, actor posvc.Actor) (*models.PurchaseOrder, error) {
		return svc.AddLine(r.Context(), id, line, actor)
	})
}

// PurchaseOrderUpdateLine changes the ordered quantity of a draft line.
func PurchaseOrderUpdateLine(svc posvc.Service, logg *logger.Logger) http.HandlerFunc {
	return lineMutation(svc, logg, func(r *http.Request, id uuid.UUID, line posvc.LineInput, actor posvc.Actor) (*models.PurchaseOrder, error) {
		return svc.UpdateLine(r.Context(), id, line, actor)
	})
}

// PurchaseOrderRemoveLine drops a product line from a draft order.
func PurchaseOrderRemoveLine(svc posvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchase order service unavailable"))
			return
		}

		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		po, err := svc.RemoveLine(r.Context(), id, productID, posvc.Actor{UserID: actor.UserID, Role: actor.Role})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPurchaseOrderResponse(po))
	}
}

// PurchaseOrderSend marks a draft as sent to the supplier.
func PurchaseOrderSend(svc posvc.Service, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(svc, logg, func(r *http.Request, id uuid.UUID, actor posvc.Actor) (*models.PurchaseOrder, error) {
		return svc.Send(r.Context(), id, actor)
	})
}

// PurchaseOrderConfirm records the supplier's confirmation.
func PurchaseOrderConfirm(svc posvc.Service, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(svc, logg, func(r *http.Request, id uuid.UUID, actor posvc.Actor) (*models.PurchaseOrder, error) {
		return svc.Confirm(r.Context(), id, actor)
	})
}

// PurchaseOrderShip records that the supplier dispatched the shipment.
func PurchaseOrderShip(svc posvc.Service, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(svc, logg, func(r *http.Request, id uuid.UUID, actor posvc.Actor) (*models.PurchaseOrder, error) {
		return svc.MarkShipped(r.Context(), id, actor)
	})
}

// PurchaseOrderCancel aborts an order that has not shipped yet.
func PurchaseOrderCancel(svc posvc.Service, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(svc, logg, func(r *http.Request, id uuid.UUID, actor posvc.Actor) (*models.PurchaseOrder, error) {
		return svc.Cancel(r.Context(), id, actor)
	})
}

// PurchaseOrderReceive books received quantities and posts the matching
// ledger movements in the same transaction.
func PurchaseOrderReceive(svc posvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchase order service unavailable"))
			return
		}

		actor, err := requireStockWriter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body receivePurchaseOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := posvc.ReceiveInput{}
		if body.ReceiptID != nil {
			input.ReceiptID = *body.ReceiptID
		}
		for _, line := range body.Lines {
			input.Lines = append(input.Lines, posvc.ReceiptLine{ProductID: line.ProductID, Quantity: line.Quantity})
		}

		result, err := svc.Receive(r.Context(), id, input, posvc.Actor{UserID: actor.UserID, Role: actor.Role})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, receiveResponse{
			Order:             newPurchaseOrderResponse(result.Order),
			Lines:             result.Lines,
			FullyReceived:     result.FullyReceived,
			PartiallyReceived: result.PartiallyReceived,
		})
	}
}

func lineMutation(
	svc posvc.Service,
	logg *logger.Logger,
	fn func(*http.Request, uuid.UUID, posvc.LineInput, posvc.Actor) (*models.PurchaseOrder, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchase order service unavailable"))
			return
		}

		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body purchaseOrderLineRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		po, err := fn(r, id, posvc.LineInput{ProductID: body.ProductID, Quantity: body.Quantity}, posvc.Actor{UserID: actor.UserID, Role: actor.Role})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPurchaseOrderResponse(po))
	}
}

func transitionHandler(
	svc posvc.Service,
	logg *logger.Logger,
	fn func(*http.Request, uuid.UUID, posvc.Actor) (*models.PurchaseOrder, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchase order service unavailable"))
			return
		}

		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		po, err := fn(r, id, posvc.Actor{UserID: actor.UserID, Role: actor.Role})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPurchaseOrderResponse(po))
	}
}
