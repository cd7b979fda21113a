package purchaseorders

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/smartinventory/inventory-backend/internal/ledger"
	"github.com/smartinventory/inventory-backend/internal/movements"
	"github.com/smartinventory/inventory-backend/pkg/config"
	"github.com/smartinventory/inventory-backend/pkg/db/models"
	"github.com/smartinventory/inventory-backend/pkg/outbox"
)

func newPurchaseOrderDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:po_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = conn.AutoMigrate(
		&models.Supplier{},
		&models.Category{},
		&models.Location{},
		&models.Product{},
		&models.StockMovement{},
		&models.StockLevel{},
		&models.PurchaseOrder{},
		&models.PurchaseOrderLine{},
		&models.Counter{},
		&models.OutboxEvent{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubRefs struct {
	db *gorm.DB
}

func (s stubRefs) SupplierExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Supplier{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (s stubRefs) LocationExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Location{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (s stubRefs) ProductExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func newTestService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), nil)
	stock, err := ledger.NewService(
		ledger.NewRepository(conn),
		movements.NewRepository(conn),
		stubRefs{db: conn},
		outboxSvc,
		gormTxRunner{db: conn},
		config.StockConfig{},
		nil,
	)
	if err != nil {
		t.Fatalf("new ledger service: %v", err)
	}
	svc, err := NewService(
		NewRepository(conn),
		stubRefs{db: conn},
		stock,
		outboxSvc,
		gormTxRunner{db: conn},
		nil,
	)
	if err != nil {
		t.Fatalf("new purchase order service: %v", err)
	}
	return svc
}

func mustCreateTestSupplier(t *testing.T, tx *gorm.DB) *models.Supplier {
	t.Helper()
	supplier := &models.Supplier{
		ID:       uuid.New(),
		Name:     fmt.Sprintf("Supplier-%s", uuid.NewString()),
		IsActive: true,
	}
	if err := tx.Create(supplier).Error; err != nil {
		t.Fatalf("create supplier: %v", err)
	}
	return supplier
}

func mustCreateTestLocation(t *testing.T, tx *gorm.DB) *models.Location {
	t.Helper()
	location := &models.Location{
		ID:       uuid.New(),
		Name:     fmt.Sprintf("Location-%s", uuid.NewString()),
		IsActive: true,
	}
	if err := tx.Create(location).Error; err != nil {
		t.Fatalf("create location: %v", err)
	}
	return location
}

func mustCreateTestProduct(t *testing.T, tx *gorm.DB, supplierID uuid.UUID) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:         uuid.New(),
		SKU:        fmt.Sprintf("SKU-%s", uuid.NewString()),
		Name:       "Test Product",
		SupplierID: supplierID,
		ReorderQty: 10,
		IsActive:   true,
	}
	if err := tx.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}
