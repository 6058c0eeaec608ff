package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/openbooks/backend/internal/domain/catalog"
	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/openbooks/backend/internal/domain/shared/valueobject"
)

// CatalogService manages products and warehouses
type CatalogService struct {
	productRepo   catalog.ProductRepository
	warehouseRepo catalog.WarehouseRepository
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(productRepo catalog.ProductRepository, warehouseRepo catalog.WarehouseRepository) *CatalogService {
	return &CatalogService{
		productRepo:   productRepo,
		warehouseRepo: warehouseRepo,
	}
}

// CreateProduct creates a new product
func (s *CatalogService) CreateProduct(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	if _, err := s.productRepo.FindBySKU(ctx, req.SKU); err == nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("SKU %s already exists", req.SKU))
	}

	product, err := catalog.NewProduct(
		req.SKU,
		req.Name,
		req.Unit,
		valueobject.NewMoneyUSD(req.Price),
		valueobject.NewMoneyUSD(req.CostPrice),
	)
	if err != nil {
		return nil, err
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	response := ToProductResponse(product)
	return &response, nil
}

// GetProduct retrieves a product by ID
func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToProductResponse(product)
	return &response, nil
}

// ListProducts retrieves products with pagination
func (s *CatalogService) ListProducts(ctx context.Context, filter shared.Filter) ([]ProductResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	products, err := s.productRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.productRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]ProductResponse, 0, len(products))
	for idx := range products {
		responses = append(responses, ToProductResponse(&products[idx]))
	}
	return responses, total, nil
}

// UpdateProduct updates a product's name and pricing
func (s *CatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if err := product.Rename(*req.Name); err != nil {
			return nil, err
		}
	}
	if req.Price != nil || req.CostPrice != nil {
		price := product.Price
		costPrice := product.CostPrice
		if req.Price != nil {
			price = *req.Price
		}
		if req.CostPrice != nil {
			costPrice = *req.CostPrice
		}
		if err := product.UpdatePricing(valueobject.NewMoneyUSD(price), valueobject.NewMoneyUSD(costPrice)); err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	response := ToProductResponse(product)
	return &response, nil
}

// DeactivateProduct soft-deactivates a product. Products referenced by
// movements are never deleted.
func (s *CatalogService) DeactivateProduct(ctx context.Context, id uuid.UUID) error {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	product.Deactivate()
	return s.productRepo.Save(ctx, product)
}

// CreateWarehouse creates a new warehouse
func (s *CatalogService) CreateWarehouse(ctx context.Context, req CreateWarehouseRequest) (*WarehouseResponse, error) {
	if _, err := s.warehouseRepo.FindByCode(ctx, req.Code); err == nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("Warehouse code %s already exists", req.Code))
	}

	warehouse, err := catalog.NewWarehouse(req.Code, req.Name, req.Address)
	if err != nil {
		return nil, err
	}

	if err := s.warehouseRepo.Save(ctx, warehouse); err != nil {
		return nil, err
	}

	response := ToWarehouseResponse(warehouse)
	return &response, nil
}

// GetWarehouse retrieves a warehouse by ID
func (s *CatalogService) GetWarehouse(ctx context.Context, id uuid.UUID) (*WarehouseResponse, error) {
	warehouse, err := s.warehouseRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToWarehouseResponse(warehouse)
	return &response, nil
}

// ListWarehouses retrieves warehouses with pagination
func (s *CatalogService) ListWarehouses(ctx context.Context, filter shared.Filter) ([]WarehouseResponse, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}

	warehouses, err := s.warehouseRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]WarehouseResponse, 0, len(warehouses))
	for idx := range warehouses {
		responses = append(responses, ToWarehouseResponse(&warehouses[idx]))
	}
	return responses, nil
}
