package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/smartinventory/inventory-backend/pkg/db/models"
)

// ProductDTO is the API-facing view of a catalog product.
type ProductDTO struct {
	ID           uuid.UUID       `json:"id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	CategoryID   *uuid.UUID      `json:"categoryId,omitempty"`
	CategoryName *string         `json:"categoryName,omitempty"`
	SupplierID   uuid.UUID       `json:"supplierId"`
	SupplierName *string         `json:"supplierName,omitempty"`
	UnitCost     decimal.Decimal `json:"unitCost"`
	ReorderPoint int             `json:"reorderPoint"`
	ReorderQty   int             `json:"reorderQty"`
	IsActive     bool            `json:"isActive"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// NewProductDTO maps the model with its preloaded references.
func NewProductDTO(product *models.Product) *ProductDTO {
	dto := &ProductDTO{
		ID:           product.ID,
		SKU:          product.SKU,
		Name:         product.Name,
		CategoryID:   product.CategoryID,
		SupplierID:   product.SupplierID,
		UnitCost:     product.UnitCost,
		ReorderPoint: product.ReorderPoint,
		ReorderQty:   product.ReorderQty,
		IsActive:     product.IsActive,
		CreatedAt:    product.CreatedAt,
		UpdatedAt:    product.UpdatedAt,
	}
	if product.Category != nil {
		dto.CategoryName = &product.Category.Name
	}
	if product.Supplier != nil {
		dto.SupplierName = &product.Supplier.Name
	}
	return dto
}

// ProductListDTO is one cursor page of products.
type ProductListDTO struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"nextCursor,omitempty"`
}

// SupplierDTO is the API-facing view of a supplier.
type SupplierDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Contact   *string   `json:"contact,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewSupplierDTO maps the model.
func NewSupplierDTO(supplier *models.Supplier) *SupplierDTO {
	return &SupplierDTO{
		ID:        supplier.ID,
		Name:      supplier.Name,
		Contact:   supplier.Contact,
		Email:     supplier.Email,
		Phone:     supplier.Phone,
		IsActive:  supplier.IsActive,
		CreatedAt: supplier.CreatedAt,
	}
}

// LocationDTO is the API-facing view of a stocking site.
type LocationDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewLocationDTO maps the model.
func NewLocationDTO(location *models.Location) *LocationDTO {
	return &LocationDTO{
		ID:        location.ID,
		Name:      location.Name,
		IsActive:  location.IsActive,
		CreatedAt: location.CreatedAt,
	}
}

// CategoryDTO is the API-facing view of a product category.
type CategoryDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// NewCategoryDTO maps the model.
func NewCategoryDTO(category *models.Category) *CategoryDTO {
	return &CategoryDTO{ID: category.ID, Name: category.Name}
}
