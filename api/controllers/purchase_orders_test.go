package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	posvc "github.com/smartinventory/inventory-backend/internal/purchaseorders"
	"github.com/smartinventory/inventory-backend/pkg/db/models"
	"github.com/smartinventory/inventory-backend/pkg/enums"
	pkgerrors "github.com/smartinventory/inventory-backend/pkg/errors"
)

type stubPurchaseOrderService struct {
	posvc.Service

	createInput  posvc.CreateInput
	createResp   *models.PurchaseOrder
	sendID       uuid.UUID
	sendActor    posvc.Actor
	sendResp     *models.PurchaseOrder
	sendErr      error
	receiveID    uuid.UUID
	receiveInput posvc.ReceiveInput
	receiveResp  *posvc.ReceiveResult
}

func (s *stubPurchaseOrderService) Create(_ context.Context, input posvc.CreateInput) (*models.PurchaseOrder, error) {
	s.createInput = input
	return s.createResp, nil
}

func (s *stubPurchaseOrderService) Send(_ context.Context, id uuid.UUID, actor posvc.Actor) (*models.PurchaseOrder, error) {
	s.sendID = id
	s.sendActor = actor
	return s.sendResp, s.sendErr
}

func (s *stubPurchaseOrderService) Receive(_ context.Context, id uuid.UUID, input posvc.ReceiveInput, _ posvc.Actor) (*posvc.ReceiveResult, error) {
	s.receiveID = id
	s.receiveInput = input
	return s.receiveResp, nil
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func draftOrder(supplierID, locationID, createdBy uuid.UUID) *models.PurchaseOrder {
	return &models.PurchaseOrder{
		ID:         uuid.New(),
		Number:     "PO-000001",
		SupplierID: supplierID,
		LocationID: locationID,
		Status:     enums.PurchaseOrderStatusDraft,
		CreatedBy:  createdBy,
		Lines: []models.PurchaseOrderLine{
			{ID: uuid.New(), ProductID: uuid.New(), QtyOrdered: 4},
		},
	}
}

func TestPurchaseOrderCreateMapsRequest(t *testing.T) {
	userID := uuid.New()
	supplierID := uuid.New()
	locationID := uuid.New()
	productID := uuid.New()
	svc := &stubPurchaseOrderService{createResp: draftOrder(supplierID, locationID, userID)}
	handler := PurchaseOrderCreate(svc, nil)

	body, _ := json.Marshal(map[string]any{
		"supplier_id": supplierID,
		"location_id": locationID,
		"lines":       []map[string]any{{"product_id": productID, "quantity": 4}},
	})
	req := httptest.NewRequest(http.MethodPost, "/purchase-orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = actorRequest(req, userID, enums.MemberRoleManager)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", rec.Code, rec.Body.String())
	}
	if svc.createInput.SupplierID != supplierID {
		t.Fatalf("expected supplier forwarded")
	}
	if len(svc.createInput.Lines) != 1 || svc.createInput.Lines[0].Quantity != 4 {
		t.Fatalf("expected one line with quantity 4, got %+v", svc.createInput.Lines)
	}
	if svc.createInput.Actor.UserID != userID {
		t.Fatalf("expected actor forwarded")
	}
	var payload struct {
		Data purchaseOrderResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload.Data.Number != "PO-000001" {
		t.Fatalf("expected number mapped got %s", payload.Data.Number)
	}
	if payload.Data.Status != "draft" {
		t.Fatalf("expected draft status got %s", payload.Data.Status)
	}
}

func TestPurchaseOrderSendSurfacesStateConflict(t *testing.T) {
	orderID := uuid.New()
	svc := &stubPurchaseOrderService{
		sendErr: pkgerrors.New(pkgerrors.CodeStateConflict, "purchase order PO-000001 cannot move from received to sent"),
	}
	handler := PurchaseOrderSend(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/purchase-orders/"+orderID.String()+"/send", nil)
	req = withURLParam(req, "orderId", orderID.String())
	req = actorRequest(req, uuid.New(), enums.MemberRoleManager)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d body=%s", rec.Code, rec.Body.String())
	}
	if svc.sendID != orderID {
		t.Fatalf("expected order id forwarded")
	}
}

func TestPurchaseOrderSendRejectsBadID(t *testing.T) {
	handler := PurchaseOrderSend(&stubPurchaseOrderService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/purchase-orders/not-a-uuid/send", nil)
	req = withURLParam(req, "orderId", "not-a-uuid")
	req = actorRequest(req, uuid.New(), enums.MemberRoleManager)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestPurchaseOrderReceiveForwardsLines(t *testing.T) {
	orderID := uuid.New()
	productID := uuid.New()
	order := draftOrder(uuid.New(), uuid.New(), uuid.New())
	order.Status = enums.PurchaseOrderStatusSent
	svc := &stubPurchaseOrderService{receiveResp: &posvc.ReceiveResult{Order: order, PartiallyReceived: true}}
	handler := PurchaseOrderReceive(svc, nil)

	body, _ := json.Marshal(map[string]any{
		"lines": []map[string]any{{"product_id": productID, "quantity": 3}},
	})
	req := httptest.NewRequest(http.MethodPost, "/purchase-orders/"+orderID.String()+"/receive", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = withURLParam(req, "orderId", orderID.String())
	req = actorRequest(req, uuid.New(), enums.MemberRoleStaff)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", rec.Code, rec.Body.String())
	}
	if svc.receiveID != orderID {
		t.Fatalf("expected order id forwarded")
	}
	if len(svc.receiveInput.Lines) != 1 || svc.receiveInput.Lines[0].Quantity != 3 {
		t.Fatalf("expected receipt line forwarded, got %+v", svc.receiveInput.Lines)
	}
}
