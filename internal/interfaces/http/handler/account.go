package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	accountingapp "github.com/openbooks/backend/internal/application/accounting"
	"github.com/openbooks/backend/internal/interfaces/http/dto"
)

// AccountHandler handles ledger account endpoints
type AccountHandler struct {
	BaseHandler
	accountService *accountingapp.AccountService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accountService *accountingapp.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// RegisterRoutes registers account routes
func (h *AccountHandler) RegisterRoutes(rg *gin.RouterGroup) {
	accounts := rg.Group("/accounts")
	{
		accounts.POST("", h.Create)
		accounts.GET("", h.List)
		accounts.GET("/:id", h.Get)
		accounts.POST("/:id/deactivate", h.Deactivate)
		accounts.GET("/:id/balance", h.Balance)
		accounts.GET("/:id/journal", h.Journal)
	}
}

// Create creates a ledger account
func (h *AccountHandler) Create(c *gin.Context) {
	var req accountingapp.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	account, err := h.accountService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, account)
}

// Get retrieves an account by ID
func (h *AccountHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid account ID")
		return
	}

	account, err := h.accountService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, account)
}

// List retrieves accounts with pagination
func (h *AccountHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	accounts, err := h.accountService.List(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, accounts)
}

// Deactivate marks an account inactive
func (h *AccountHandler) Deactivate(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid account ID")
		return
	}

	if err := h.accountService.Deactivate(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Balance derives the account balance from its journal entries. An
// optional as_of query parameter (RFC 3339) restricts the entries summed.
func (h *AccountHandler) Balance(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid account ID")
		return
	}

	var asOf *time.Time
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.BadRequest(c, "as_of must be an RFC 3339 timestamp")
			return
		}
		asOf = &parsed
	}

	balance, err := h.accountService.BalanceOf(c.Request.Context(), id, asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, balance)
}

// Journal retrieves the entry history for an account
func (h *AccountHandler) Journal(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid account ID")
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	entries, err := h.accountService.JournalByAccount(c.Request.Context(), id, req.ToFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entries)
}
