package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/smartinventory/inventory-backend/internal/scan"
	"github.com/smartinventory/inventory-backend/pkg/db/models"
	"github.com/smartinventory/inventory-backend/pkg/enums"
	pkgerrors "github.com/smartinventory/inventory-backend/pkg/errors"
)

type stubScanService struct {
	input scan.IngestInput
	resp  *scan.Result
	err   error
}

func (s *stubScanService) Ingest(_ context.Context, input scan.IngestInput) (*scan.Result, error) {
	s.input = input
	return s.resp, s.err
}

func TestScanIngestDefaultsQuantityToOne(t *testing.T) {
	productID := uuid.New()
	svc := &stubScanService{resp: &scan.Result{
		ProductID:      productID,
		IdempotencyKey: "scan-key",
		Movement:       &models.StockMovement{ID: uuid.New(), ProductID: productID, QuantityDelta: 1},
	}}
	handler := ScanIngest(svc, nil)

	body, _ := json.Marshal(map[string]any{
		"sku":         "WIDGET-1",
		"session_id":  "gun-7",
		"kind":        "receive",
		"location_id": uuid.New(),
	})
	req := httptest.NewRequest(http.MethodPost, "/scans", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = actorRequest(req, uuid.New(), enums.MemberRoleStaff)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", rec.Code, rec.Body.String())
	}
	if svc.input.Quantity != 1 {
		t.Fatalf("expected default quantity 1 got %d", svc.input.Quantity)
	}
	if svc.input.RawSKU != "WIDGET-1" {
		t.Fatalf("expected sku forwarded got %s", svc.input.RawSKU)
	}
}

func TestScanIngestSurfacesDuplicate(t *testing.T) {
	svc := &stubScanService{err: pkgerrors.New(pkgerrors.CodeDuplicateScan, "scan suppressed as a duplicate read")}
	handler := ScanIngest(svc, nil)

	body, _ := json.Marshal(map[string]any{
		"sku":         "WIDGET-1",
		"quantity":    2,
		"session_id":  "gun-7",
		"kind":        "receive",
		"location_id": uuid.New(),
	})
	req := httptest.NewRequest(http.MethodPost, "/scans", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = actorRequest(req, uuid.New(), enums.MemberRoleStaff)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeDuplicateScan) {
		t.Fatalf("expected duplicate scan code got %s", payload.Error.Code)
	}
}
