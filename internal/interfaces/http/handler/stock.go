package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	stockapp "github.com/openbooks/backend/internal/application/stock"
	"github.com/openbooks/backend/internal/interfaces/http/dto"
)

// StockHandler handles read-only stock endpoints. Stock is never mutated
// directly over HTTP; movements happen only through transaction apply.
type StockHandler struct {
	BaseHandler
	stockService *stockapp.StockService
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(stockService *stockapp.StockService) *StockHandler {
	return &StockHandler{stockService: stockService}
}

// RegisterRoutes registers stock routes
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	stock := rg.Group("/stock")
	{
		stock.GET("/items", h.ListItems)
		stock.GET("/items/:warehouseId/:productId", h.GetItem)
		stock.GET("/items/:warehouseId/:productId/movements", h.Movements)
		stock.GET("/items/:warehouseId/:productId/valuation", h.Valuation)
		stock.GET("/items/:warehouseId/:productId/reconcile", h.Reconcile)
	}
}

// ReconcileResponse reports the outcome of a log-vs-counter check
type ReconcileResponse struct {
	Consistent bool `json:"consistent"`
}

func (h *StockHandler) itemKey(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	warehouseID, ok := parseUUIDParam(c, "warehouseId")
	if !ok {
		h.BadRequest(c, "Invalid warehouse ID")
		return uuid.Nil, uuid.Nil, false
	}
	productID, ok := parseUUIDParam(c, "productId")
	if !ok {
		h.BadRequest(c, "Invalid product ID")
		return uuid.Nil, uuid.Nil, false
	}
	return warehouseID, productID, true
}

// ListItems retrieves stock items with pagination
func (h *StockHandler) ListItems(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	items, err := h.stockService.List(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, items)
}

// GetItem retrieves the stock item for a warehouse-product pair
func (h *StockHandler) GetItem(c *gin.Context) {
	warehouseID, productID, ok := h.itemKey(c)
	if !ok {
		return
	}

	item, err := h.stockService.GetItem(c.Request.Context(), warehouseID, productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, item)
}

// Movements retrieves the movement log for a stock item
func (h *StockHandler) Movements(c *gin.Context) {
	warehouseID, productID, ok := h.itemKey(c)
	if !ok {
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	movements, err := h.stockService.Movements(c.Request.Context(), warehouseID, productID, req.ToFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, movements)
}

// Valuation retrieves the costed value of a stock item
func (h *StockHandler) Valuation(c *gin.Context) {
	warehouseID, productID, ok := h.itemKey(c)
	if !ok {
		return
	}

	valuation, err := h.stockService.Valuation(c.Request.Context(), warehouseID, productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, valuation)
}

// Reconcile checks that the on-hand counter matches the movement log
func (h *StockHandler) Reconcile(c *gin.Context) {
	warehouseID, productID, ok := h.itemKey(c)
	if !ok {
		return
	}

	if err := h.stockService.Reconcile(c.Request.Context(), warehouseID, productID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ReconcileResponse{Consistent: true})
}
