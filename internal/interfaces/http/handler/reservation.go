package handler

import (
	"github.com/gin-gonic/gin"
	stockapp "github.com/openbooks/backend/internal/application/stock"
)

// ReservationHandler handles stock reservation endpoints
type ReservationHandler struct {
	BaseHandler
	reservationService *stockapp.ReservationService
}

// NewReservationHandler creates a new ReservationHandler
func NewReservationHandler(reservationService *stockapp.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservationService: reservationService}
}

// RegisterRoutes registers reservation routes
func (h *ReservationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	reservations := rg.Group("/reservations")
	{
		reservations.POST("", h.Reserve)
		reservations.GET("/:id", h.Get)
		reservations.POST("/:id/release", h.Release)
	}
}

// Reserve places a soft hold on available stock
func (h *ReservationHandler) Reserve(c *gin.Context) {
	var req stockapp.ReserveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	reservation, err := h.reservationService.Reserve(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, reservation)
}

// Get retrieves a reservation by ID
func (h *ReservationHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid reservation ID")
		return
	}

	reservation, err := h.reservationService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, reservation)
}

// Release returns a held quantity to visible stock
func (h *ReservationHandler) Release(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid reservation ID")
		return
	}

	if err := h.reservationService.Release(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
