package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/smartinventory/inventory-backend/api/controllers"
	"github.com/smartinventory/inventory-backend/api/middleware"
	"github.com/smartinventory/inventory-backend/internal/analytics"
	"github.com/smartinventory/inventory-backend/internal/auth"
	"github.com/smartinventory/inventory-backend/internal/catalog"
	"github.com/smartinventory/inventory-backend/internal/ledger"
	"github.com/smartinventory/inventory-backend/internal/movements"
	"github.com/smartinventory/inventory-backend/internal/purchaseorders"
	"github.com/smartinventory/inventory-backend/internal/reorder"
	"github.com/smartinventory/inventory-backend/internal/scan"
	"github.com/smartinventory/inventory-backend/internal/users"
	"github.com/smartinventory/inventory-backend/pkg/auth/session"
	"github.com/smartinventory/inventory-backend/pkg/config"
	"github.com/smartinventory/inventory-backend/pkg/db"
	"github.com/smartinventory/inventory-backend/pkg/db/models"
	"github.com/smartinventory/inventory-backend/pkg/logger"
	pkgredis "github.com/smartinventory/inventory-backend/pkg/redis"
)

type stockLevelLister interface {
	ListLevels(ctx context.Context, locationID *uuid.UUID) ([]models.StockLevel, error)
}

// Deps bundles everything the HTTP surface needs. cmd/api builds one of
// these after wiring the services.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Redis          *pkgredis.Client
	SessionManager session.AccessSessionChecker

	Auth           auth.Service
	Users          users.Service
	Catalog        catalog.Service
	Ledger         ledger.Service
	Movements      movements.Service
	StockLevels    stockLevelLister
	Scans          scan.Service
	PurchaseOrders purchaseorders.Service
	Reorder        reorder.Service
	Analytics      analytics.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	// Typed-nil guards: a nil *redis.Client must not reach the interface
	// parameters below.
	var cachePinger interface {
		Ping(ctx context.Context) error
	}
	var idemStore pkgredis.IdempotencyStore
	var ratelimitStore interface {
		IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	}
	if deps.Redis != nil {
		cachePinger = deps.Redis
		idemStore = deps.Redis
		ratelimitStore = deps.Redis
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins...),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, cachePinger))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Post("/validate", controllers.PublicValidate(logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, ratelimitStore, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))
			r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
			r.Get("/me", controllers.AuthMe(deps.Auth, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(deps.Catalog, logg))
			r.Post("/", controllers.ProductCreate(deps.Catalog, logg))
			r.Get("/{productId}", controllers.ProductDetail(deps.Catalog, logg))
			r.Patch("/{productId}", controllers.ProductUpdate(deps.Catalog, logg))
		})
		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", controllers.SupplierList(deps.Catalog, logg))
			r.Post("/", controllers.SupplierCreate(deps.Catalog, logg))
			r.Patch("/{supplierId}", controllers.SupplierUpdate(deps.Catalog, logg))
		})
		r.Route("/locations", func(r chi.Router) {
			r.Get("/", controllers.LocationList(deps.Catalog, logg))
			r.Post("/", controllers.LocationCreate(deps.Catalog, logg))
		})
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.CategoryList(deps.Catalog, logg))
			r.Post("/", controllers.CategoryCreate(deps.Catalog, logg))
		})

		r.Route("/stock", func(r chi.Router) {
			r.Post("/movements", controllers.StockApply(deps.Ledger, logg))
			r.Get("/movements", controllers.MovementList(deps.Movements, logg))
			r.Get("/movements/{movementId}", controllers.MovementDetail(deps.Movements, logg))
			r.Post("/transfers", controllers.StockTransfer(deps.Ledger, logg))
			r.Get("/levels", controllers.StockLevels(deps.StockLevels, logg))
			r.Get("/levels/{productId}/{locationId}", controllers.StockOnHand(deps.Ledger, logg))
			r.Post("/levels/{productId}/{locationId}/recompute", controllers.StockRecompute(deps.Ledger, logg))
		})

		r.Post("/scans", controllers.ScanIngest(deps.Scans, logg))

		r.Route("/purchase-orders", func(r chi.Router) {
			r.Get("/", controllers.PurchaseOrderList(deps.PurchaseOrders, logg))
			r.Post("/", controllers.PurchaseOrderCreate(deps.PurchaseOrders, logg))
			r.Get("/{orderId}", controllers.PurchaseOrderDetail(deps.PurchaseOrders, logg))
			r.Post("/{orderId}/lines", controllers.PurchaseOrderAddLine(deps.PurchaseOrders, logg))
			r.Patch("/{orderId}/lines", controllers.PurchaseOrderUpdateLine(deps.PurchaseOrders, logg))
			r.Delete("/{orderId}/lines/{productId}", controllers.PurchaseOrderRemoveLine(deps.PurchaseOrders, logg))
			r.Post("/{orderId}/send", controllers.PurchaseOrderSend(deps.PurchaseOrders, logg))
			r.Post("/{orderId}/confirm", controllers.PurchaseOrderConfirm(deps.PurchaseOrders, logg))
			r.Post("/{orderId}/ship", controllers.PurchaseOrderShip(deps.PurchaseOrders, logg))
			r.Post("/{orderId}/cancel", controllers.PurchaseOrderCancel(deps.PurchaseOrders, logg))
			r.Post("/{orderId}/receive", controllers.PurchaseOrderReceive(deps.PurchaseOrders, logg))
		})

		r.Route("/reorder", func(r chi.Router) {
			r.Get("/suggestions", controllers.ReorderSuggest(deps.Reorder, logg))
			r.Post("/draft", controllers.ReorderDraft(deps.Reorder, logg))
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/summary", controllers.AnalyticsSummary(deps.Analytics, logg))
			r.Get("/valuation", controllers.AnalyticsValuation(deps.Analytics, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Get("/ping", controllers.AdminPing())
		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.AdminListUsers(deps.Users, logg))
			r.Post("/", controllers.AdminCreateUser(deps.Users, logg))
			r.Get("/{userId}", controllers.AdminGetUser(deps.Users, logg))
		})
	})

	return r
}
