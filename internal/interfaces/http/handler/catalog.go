package handler

import (
	"github.com/gin-gonic/gin"
	catalogapp "github.com/openbooks/backend/internal/application/catalog"
	"github.com/openbooks/backend/internal/interfaces/http/dto"
)

// CatalogHandler handles product and warehouse endpoints
type CatalogHandler struct {
	BaseHandler
	catalogService *catalogapp.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalogService *catalogapp.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// RegisterRoutes registers catalog routes
func (h *CatalogHandler) RegisterRoutes(rg *gin.RouterGroup) {
	catalog := rg.Group("/catalog")
	{
		products := catalog.Group("/products")
		{
			products.POST("", h.CreateProduct)
			products.GET("", h.ListProducts)
			products.GET("/:id", h.GetProduct)
			products.PUT("/:id", h.UpdateProduct)
			products.POST("/:id/deactivate", h.DeactivateProduct)
		}

		warehouses := catalog.Group("/warehouses")
		{
			warehouses.POST("", h.CreateWarehouse)
			warehouses.GET("", h.ListWarehouses)
			warehouses.GET("/:id", h.GetWarehouse)
		}
	}
}

// CreateProduct creates a product
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req catalogapp.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	product, err := h.catalogService.CreateProduct(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, product)
}

// GetProduct retrieves a product by ID
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	product, err := h.catalogService.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, product)
}

// ListProducts retrieves products with pagination
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := req.ToFilter()
	products, total, err := h.catalogService.ListProducts(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, products, total, filter.Page, filter.PageSize)
}

// UpdateProduct updates a product's name and pricing
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	var req catalogapp.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	product, err := h.catalogService.UpdateProduct(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, product)
}

// DeactivateProduct marks a product inactive. Products referenced by
// movements are never deleted.
func (h *CatalogHandler) DeactivateProduct(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	if err := h.catalogService.DeactivateProduct(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// CreateWarehouse creates a warehouse
func (h *CatalogHandler) CreateWarehouse(c *gin.Context) {
	var req catalogapp.CreateWarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	warehouse, err := h.catalogService.CreateWarehouse(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, warehouse)
}

// GetWarehouse retrieves a warehouse by ID
func (h *CatalogHandler) GetWarehouse(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid warehouse ID")
		return
	}

	warehouse, err := h.catalogService.GetWarehouse(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, warehouse)
}

// ListWarehouses retrieves warehouses with pagination
func (h *CatalogHandler) ListWarehouses(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	warehouses, err := h.catalogService.ListWarehouses(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, warehouses)
}
