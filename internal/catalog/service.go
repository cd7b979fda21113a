package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/smartinventory/inventory-backend/pkg/db"
	"github.com/smartinventory/inventory-backend/pkg/db/models"
	pkgerrors "github.com/smartinventory/inventory-backend/pkg/errors"
	"github.com/smartinventory/inventory-backend/pkg/pagination"
)

// Service manages the reference entities the stock core reads: products,
// suppliers, locations, and categories. It also backs the existence checks
// used by the ledger and the purchase order engine.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, filter ProductListFilter, params pagination.Params) (*ProductListDTO, error)

	CreateSupplier(ctx context.Context, input CreateSupplierInput) (*SupplierDTO, error)
	UpdateSupplier(ctx context.Context, id uuid.UUID, input UpdateSupplierInput) (*SupplierDTO, error)
	ListSuppliers(ctx context.Context, activeOnly bool) ([]SupplierDTO, error)

	CreateLocation(ctx context.Context, input CreateLocationInput) (*LocationDTO, error)
	ListLocations(ctx context.Context, activeOnly bool) ([]LocationDTO, error)

	CreateCategory(ctx context.Context, name string) (*CategoryDTO, error)
	ListCategories(ctx context.Context) ([]CategoryDTO, error)

	GetProductBySKU(ctx context.Context, sku string) (*models.Product, error)
	ProductExists(ctx context.Context, id uuid.UUID) (bool, error)
	SupplierExists(ctx context.Context, id uuid.UUID) (bool, error)
	LocationExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	SKU          string
	Name         string
	CategoryID   *uuid.UUID
	SupplierID   uuid.UUID
	UnitCost     decimal.Decimal
	ReorderPoint int
	ReorderQty   int
}

// UpdateProductInput holds optional mutation values. The SKU is immutable.
type UpdateProductInput struct {
	Name         *string
	CategoryID   *uuid.UUID
	SupplierID   *uuid.UUID
	UnitCost     *decimal.Decimal
	ReorderPoint *int
	ReorderQty   *int
	IsActive     *bool
}

// CreateSupplierInput holds the payload to register a supplier.
type CreateSupplierInput struct {
	Name    string
	Contact *string
	Email   *string
	Phone   *string
}

// UpdateSupplierInput holds optional supplier mutations.
type UpdateSupplierInput struct {
	Name     *string
	Contact  *string
	Email    *string
	Phone    *string
	IsActive *bool
}

// CreateLocationInput holds the payload to register a stocking site.
type CreateLocationInput struct {
	Name string
}

type service struct {
	repo Repository
}

// NewService builds the catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	input.SKU = strings.TrimSpace(input.SKU)
	input.Name = strings.TrimSpace(input.Name)
	if input.SKU == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.SupplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id is required")
	}
	if input.UnitCost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit cost cannot be negative")
	}
	if input.ReorderPoint < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reorder point cannot be negative")
	}
	if input.ReorderQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reorder quantity cannot be negative")
	}

	if err := s.ensureSupplier(ctx, input.SupplierID); err != nil {
		return nil, err
	}
	if input.CategoryID != nil {
		if err := s.ensureCategory(ctx, *input.CategoryID); err != nil {
			return nil, err
		}
	}

	product := &models.Product{
		ID:           uuid.New(),
		SKU:          input.SKU,
		Name:         input.Name,
		CategoryID:   input.CategoryID,
		SupplierID:   input.SupplierID,
		UnitCost:     input.UnitCost,
		ReorderPoint: input.ReorderPoint,
		ReorderQty:   input.ReorderQty,
		IsActive:     true,
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already in use").
				WithDetails(map[string]any{"sku": input.SKU})
		}
		return nil, err
	}
	return s.GetProduct(ctx, product.ID)
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		product.Name = name
	}
	if input.SupplierID != nil {
		if err := s.ensureSupplier(ctx, *input.SupplierID); err != nil {
			return nil, err
		}
		product.SupplierID = *input.SupplierID
	}
	if input.CategoryID != nil {
		if err := s.ensureCategory(ctx, *input.CategoryID); err != nil {
			return nil, err
		}
		product.CategoryID = input.CategoryID
	}
	if input.UnitCost != nil {
		if input.UnitCost.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit cost cannot be negative")
		}
		product.UnitCost = *input.UnitCost
	}
	if input.ReorderPoint != nil {
		if *input.ReorderPoint < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reorder point cannot be negative")
		}
		product.ReorderPoint = *input.ReorderPoint
	}
	if input.ReorderQty != nil {
		if *input.ReorderQty < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reorder quantity cannot be negative")
		}
		product.ReorderQty = *input.ReorderQty
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	product.Category = nil
	product.Supplier = nil
	if err := s.repo.SaveProduct(ctx, product); err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, product.ID)
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return NewProductDTO(product), nil
}

func (s *service) ListProducts(ctx context.Context, filter ProductListFilter, params pagination.Params) (*ProductListDTO, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	page, err := s.repo.ListProducts(ctx, filter, params)
	if err != nil {
		return nil, err
	}
	result := &ProductListDTO{
		Products:   make([]ProductDTO, 0, len(page.Products)),
		NextCursor: page.NextCursor,
	}
	for i := range page.Products {
		result.Products = append(result.Products, *NewProductDTO(&page.Products[i]))
	}
	return result, nil
}

func (s *service) CreateSupplier(ctx context.Context, input CreateSupplierInput) (*SupplierDTO, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	supplier := &models.Supplier{
		ID:       uuid.New(),
		Name:     input.Name,
		Contact:  input.Contact,
		Email:    input.Email,
		Phone:    input.Phone,
		IsActive: true,
	}
	if err := s.repo.CreateSupplier(ctx, supplier); err != nil {
		return nil, err
	}
	return NewSupplierDTO(supplier), nil
}

func (s *service) UpdateSupplier(ctx context.Context, id uuid.UUID, input UpdateSupplierInput) (*SupplierDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id is required")
	}
	supplier, err := s.repo.GetSupplierByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		supplier.Name = name
	}
	if input.Contact != nil {
		supplier.Contact = input.Contact
	}
	if input.Email != nil {
		supplier.Email = input.Email
	}
	if input.Phone != nil {
		supplier.Phone = input.Phone
	}
	if input.IsActive != nil {
		supplier.IsActive = *input.IsActive
	}
	if err := s.repo.SaveSupplier(ctx, supplier); err != nil {
		return nil, err
	}
	return NewSupplierDTO(supplier), nil
}

func (s *service) ListSuppliers(ctx context.Context, activeOnly bool) ([]SupplierDTO, error) {
	suppliers, err := s.repo.ListSuppliers(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	result := make([]SupplierDTO, 0, len(suppliers))
	for i := range suppliers {
		result = append(result, *NewSupplierDTO(&suppliers[i]))
	}
	return result, nil
}

func (s *service) CreateLocation(ctx context.Context, input CreateLocationInput) (*LocationDTO, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	location := &models.Location{
		ID:       uuid.New(),
		Name:     input.Name,
		IsActive: true,
	}
	if err := s.repo.CreateLocation(ctx, location); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "location name already in use").
				WithDetails(map[string]any{"name": input.Name})
		}
		return nil, err
	}
	return NewLocationDTO(location), nil
}

func (s *service) ListLocations(ctx context.Context, activeOnly bool) ([]LocationDTO, error) {
	locations, err := s.repo.ListLocations(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	result := make([]LocationDTO, 0, len(locations))
	for i := range locations {
		result = append(result, *NewLocationDTO(&locations[i]))
	}
	return result, nil
}

func (s *service) CreateCategory(ctx context.Context, name string) (*CategoryDTO, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	category := &models.Category{ID: uuid.New(), Name: name}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "category name already in use").
				WithDetails(map[string]any{"name": name})
		}
		return nil, err
	}
	return NewCategoryDTO(category), nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]CategoryDTO, 0, len(categories))
	for i := range categories {
		result = append(result, *NewCategoryDTO(&categories[i]))
	}
	return result, nil
}

func (s *service) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	return s.repo.GetProductBySKU(ctx, sku)
}

func (s *service) ProductExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.repo.ProductExists(ctx, id)
}

func (s *service) SupplierExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.repo.SupplierExists(ctx, id)
}

func (s *service) LocationExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.repo.LocationExists(ctx, id)
}

func (s *service) ensureSupplier(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.SupplierExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown supplier reference").
			WithDetails(map[string]any{"supplier_id": id.String()})
	}
	return nil
}

func (s *service) ensureCategory(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.CategoryExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown category reference").
			WithDetails(map[string]any{"category_id": id.String()})
	}
	return nil
}
