package handler

import (
	"context"

	"github.com/dailyrent/service-booking/internal/application"
	"github.com/dailyrent/service-booking/pkg/auth"
	"github.com/dailyrent/service-booking/pkg/middleware"
	"github.com/dailyrent/service-booking/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BookingService is the booking lifecycle as seen by the HTTP layer.
type BookingService interface {
	CreateBooking(ctx context.Context, tenantID uuid.UUID, req application.CreateBookingRequest) (*application.BookingDTO, error)
	ListOwnerBookings(ctx context.Context, propertyID, ownerID uuid.UUID) ([]application.BookingDTO, error)
	ListTenantBookings(ctx context.Context, tenantID uuid.UUID) ([]application.BookingDTO, error)
	ApproveBooking(ctx context.Context, bookingID, ownerID uuid.UUID) (*application.BookingDTO, error)
	RejectBooking(ctx context.Context, bookingID, ownerID uuid.UUID) (*application.BookingDTO, error)
	CancelBooking(ctx context.Context, bookingID, tenantID uuid.UUID) (*application.BookingDTO, error)
	InitiatePayment(ctx context.Context, bookingID, tenantID uuid.UUID) (*application.PaymentInitiation, error)
	MarkPaidAndCollect(ctx context.Context, bookingID, ownerID uuid.UUID) (*application.PayoutDTO, error)
	GetBookingPayment(ctx context.Context, bookingID, userID uuid.UUID) (*application.PaymentDTO, error)
}

// BookingHandler handles HTTP requests for bookings and their payments.
type BookingHandler struct {
	service BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	bookings := r.Group("/bookings")
	bookings.Use(middleware.AuthMiddleware(jwtManager))
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListTenantBookings)
		bookings.GET("/property/:propertyId", h.ListOwnerBookings)
		bookings.PATCH("/:id/approve", h.ApproveBooking)
		bookings.PATCH("/:id/reject", h.RejectBooking)
		bookings.PATCH("/:id/cancel", h.CancelBooking)
		bookings.POST("/:id/pay", h.InitiatePayment)
		bookings.POST("/:id/collect", h.Collect)
		bookings.GET("/:id/payment", h.GetPayment)
	}
}

// CreateBooking handles POST /api/v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req application.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.CreateBooking(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto)
}

// ListTenantBookings handles GET /api/v1/bookings
func (h *BookingHandler) ListTenantBookings(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	list, err := h.service.ListTenantBookings(c.Request.Context(), userID)
	respondList(c, list, err)
}

// ListOwnerBookings handles GET /api/v1/bookings/property/:propertyId
func (h *BookingHandler) ListOwnerBookings(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	propertyID, ok := paramUUID(c, "propertyId")
	if !ok {
		return
	}

	list, err := h.service.ListOwnerBookings(c.Request.Context(), propertyID, userID)
	respondList(c, list, err)
}

func respondList(c *gin.Context, list []application.BookingDTO, err error) {
	switch {
	case err != nil:
		response.Error(c, err)
	case len(list) == 0:
		response.NoContent(c)
	default:
		response.Success(c, list)
	}
}

// ApproveBooking handles PATCH /api/v1/bookings/:id/approve
func (h *BookingHandler) ApproveBooking(c *gin.Context) {
	h.transition(c, h.service.ApproveBooking)
}

// RejectBooking handles PATCH /api/v1/bookings/:id/reject
func (h *BookingHandler) RejectBooking(c *gin.Context) {
	h.transition(c, h.service.RejectBooking)
}

// CancelBooking handles PATCH /api/v1/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	h.transition(c, h.service.CancelBooking)
}

func (h *BookingHandler) transition(c *gin.Context, fn func(ctx context.Context, bookingID, userID uuid.UUID) (*application.BookingDTO, error)) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	bookingID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	dto, err := fn(c.Request.Context(), bookingID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}

// InitiatePayment handles POST /api/v1/bookings/:id/pay
func (h *BookingHandler) InitiatePayment(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	bookingID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	init, err := h.service.InitiatePayment(c.Request.Context(), bookingID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, init)
}

// Collect handles POST /api/v1/bookings/:id/collect
func (h *BookingHandler) Collect(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	bookingID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	payout, err := h.service.MarkPaidAndCollect(c.Request.Context(), bookingID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, payout)
}

// GetPayment handles GET /api/v1/bookings/:id/payment
func (h *BookingHandler) GetPayment(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	bookingID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	dto, err := h.service.GetBookingPayment(c.Request.Context(), bookingID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}
