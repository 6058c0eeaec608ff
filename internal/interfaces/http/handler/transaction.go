package handler

import (
	"github.com/gin-gonic/gin"
	accountingapp "github.com/openbooks/backend/internal/application/accounting"
	tradeapp "github.com/openbooks/backend/internal/application/trade"
)

// TransactionHandler handles business transaction endpoints. All lifecycle
// actions are expressed as sub-resources of the transaction.
type TransactionHandler struct {
	BaseHandler
	coordinator    *tradeapp.TransactionCoordinator
	accountService *accountingapp.AccountService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(coordinator *tradeapp.TransactionCoordinator, accountService *accountingapp.AccountService) *TransactionHandler {
	return &TransactionHandler{
		coordinator:    coordinator,
		accountService: accountService,
	}
}

// RegisterRoutes registers transaction routes
func (h *TransactionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	transactions := rg.Group("/transactions")
	{
		transactions.POST("", h.Create)
		transactions.GET("", h.List)
		transactions.GET("/:id", h.Get)
		transactions.DELETE("/:id", h.DeleteDraft)
		transactions.POST("/:id/items", h.AddItem)
		transactions.PUT("/:id/items/:itemId", h.UpdateItem)
		transactions.DELETE("/:id/items/:itemId", h.RemoveItem)
		transactions.POST("/:id/payment", h.RecordPayment)
		transactions.POST("/:id/submit", h.Submit)
		transactions.POST("/:id/apply", h.Apply)
		transactions.POST("/:id/complete", h.Complete)
		transactions.POST("/:id/reverse", h.Reverse)
		transactions.GET("/:id/journal", h.Journal)
	}
}

// Create creates a draft transaction
func (h *TransactionHandler) Create(c *gin.Context) {
	var req tradeapp.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	tx, err := h.coordinator.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, tx)
}

// Get retrieves a transaction by ID
func (h *TransactionHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid transaction ID")
		return
	}

	tx, err := h.coordinator.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tx)
}

// List retrieves transactions with filters and pagination
func (h *TransactionHandler) List(c *gin.Context) {
	var filter tradeapp.TransactionListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	transactions, total, err := h.coordinator.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, transactions, total, filter.Page, filter.PageSize)
}

// DeleteDraft deletes a draft transaction
func (h *TransactionHandler) DeleteDraft(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid transaction ID")
		return
	}

	if err := h.coordinator.DeleteDraft(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// AddItem adds a line item to a draft
func (h *TransactionHandler) AddItem(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid transaction ID")
		return
	}

	var req tradeapp.AddTransactionItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	tx, err := h.coordinator.AddItem(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tx)
}

// UpdateItem changes a line item quantity on a draft
func (h *TransactionHandler) UpdateItem(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid transaction ID")
		return
	}
	itemID, ok := parseUUIDParam(c, "itemId")
	if !ok {
		h.BadRequest(c, "Invalid item ID")
		return
	}

	var req tradeapp.UpdateTransactionItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	tx, err := h.coordinator.UpdateItem(c.Request.Context(), id, itemID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tx)
}

// RemoveItem removes a line item from a draft
func (h *TransactionHandler) RemoveItem(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid transaction ID")
		return
	}
	itemID, ok := parseUUIDParam(c, "itemId")
	if !ok {
		h.BadRequest(c, "Invalid item ID")
		return
	}

	tx, err := h.coordinator.RemoveItem(c.Request.Context(), id, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tx)
}

// RecordPayment records an upfront payment against a draft or pending
// transaction
func (h *TransactionHandler) RecordPayment(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid transaction ID")
		return
	}

	var req tradeapp.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	tx, err := h.coordinator.RecordPayment(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tx)
}

// Submit moves a draft to pending
func (h *TransactionHandler) Submit(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid transaction ID")
		return
	}

	tx, err := h.coordinator.Submit(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tx)
}

// Apply approves a pending transaction and posts its stock movements and
// journal entries atomically.
func (h *TransactionHandler) Apply(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid transaction ID")
		return
	}

	tx, err := h.coordinator.Apply(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tx)
}

// Complete marks an applied sale as completed
func (h *TransactionHandler) Complete(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid transaction ID")
		return
	}

	tx, err := h.coordinator.Complete(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tx)
}

// Reverse cancels or returns an applied transaction, undoing its stock
// and ledger effects.
func (h *TransactionHandler) Reverse(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid transaction ID")
		return
	}

	var req tradeapp.ReverseTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.coordinator.Reverse(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Journal retrieves the journal entries posted for a transaction
func (h *TransactionHandler) Journal(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid transaction ID")
		return
	}

	entries, err := h.accountService.JournalByTransaction(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entries)
}
