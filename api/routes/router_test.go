package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/smartinventory/inventory-backend/internal/analytics"
	"github.com/smartinventory/inventory-backend/internal/auth"
	"github.com/smartinventory/inventory-backend/internal/catalog"
	"github.com/smartinventory/inventory-backend/internal/ledger"
	"github.com/smartinventory/inventory-backend/internal/movements"
	"github.com/smartinventory/inventory-backend/internal/purchaseorders"
	"github.com/smartinventory/inventory-backend/internal/reorder"
	"github.com/smartinventory/inventory-backend/internal/scan"
	"github.com/smartinventory/inventory-backend/internal/users"
	pkgAuth "github.com/smartinventory/inventory-backend/pkg/auth"
	"github.com/smartinventory/inventory-backend/pkg/auth/session"
	"github.com/smartinventory/inventory-backend/pkg/config"
	"github.com/smartinventory/inventory-backend/pkg/db/models"
	"github.com/smartinventory/inventory-backend/pkg/enums"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(context.Context, string) (bool, error) { return true, nil }

type stubAnalytics struct {
	analytics.Service
}

func (stubAnalytics) Summary(context.Context) (*analytics.Summary, error) {
	return &analytics.Summary{ProductCount: 3, InventoryValue: decimal.RequireFromString("12.50")}, nil
}

type stubLevels struct{}

func (stubLevels) ListLevels(_ context.Context, _ *uuid.UUID) ([]models.StockLevel, error) {
	return []models.StockLevel{{ProductID: uuid.New(), LocationID: uuid.New(), OnHandQty: 9}}, nil
}

type noopAuth struct{ auth.Service }

type noopUsers struct{ users.Service }

type noopCatalog struct{ catalog.Service }

type noopLedger struct{ ledger.Service }

type noopMovements struct{ movements.Service }

type noopScan struct{ scan.Service }

type noopPOs struct{ purchaseorders.Service }

type noopReorder struct{ reorder.Service }

func testDeps() Deps {
	return Deps{
		Config: &config.Config{
			App: config.AppConfig{Env: "test", Port: "8080"},
			JWT: config.JWTConfig{Secret: "secret", Issuer: "smartinventory", ExpirationMinutes: 15},
		},
		DB:             stubPinger{},
		SessionManager: stubSessionChecker{},
		Auth:           noopAuth{},
		Users:          noopUsers{},
		Catalog:        noopCatalog{},
		Ledger:         noopLedger{},
		Movements:      noopMovements{},
		StockLevels:    stubLevels{},
		Scans:          noopScan{},
		PurchaseOrders: noopPOs{},
		Reorder:        noopReorder{},
		Analytics:      stubAnalytics{},
	}
}

func mintToken(t *testing.T, cfg config.JWTConfig, role enums.MemberRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestRouterHealthAndPublicRoutes(t *testing.T) {
	router := NewRouter(testDeps())

	for _, path := range []string{"/health/live", "/health/ready", "/api/public/ping"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d body=%s", path, rec.Code, rec.Body.String())
		}
	}
}

func TestRouterRejectsUnauthenticatedPrivateRoutes(t *testing.T) {
	router := NewRouter(testDeps())

	for _, path := range []string{"/api/v1/ping", "/api/v1/stock/levels", "/api/admin/v1/ping"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", path, rec.Code)
		}
	}
}

func TestRouterServesStockLevelsWithToken(t *testing.T) {
	deps := testDeps()
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stock/levels", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, deps.Config.JWT, enums.MemberRoleStaff))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Data []struct {
			OnHandQty int `json:"on_hand_qty"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if len(payload.Data) != 1 || payload.Data[0].OnHandQty != 9 {
		t.Fatalf("unexpected levels payload: %s", rec.Body.String())
	}
}

func TestRouterAdminRoutesRequireAdminRole(t *testing.T) {
	deps := testDeps()
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, deps.Config.JWT, enums.MemberRoleStaff))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, deps.Config.JWT, enums.MemberRoleAdmin))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", rec.Code)
	}
}

func TestRouterAnalyticsSummary(t *testing.T) {
	deps := testDeps()
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/summary", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, deps.Config.JWT, enums.MemberRoleViewer))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Data analytics.Summary `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload.Data.ProductCount != 3 {
		t.Fatalf("expected product count 3 got %d", payload.Data.ProductCount)
	}
}
