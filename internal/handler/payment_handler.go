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

// PaymentLookup resolves payments for their tenant or property owner.
type PaymentLookup interface {
	GetPayment(ctx context.Context, paymentID, userID uuid.UUID) (*application.PaymentDTO, error)
}

// PaymentHandler handles HTTP requests for payment lookups.
type PaymentHandler struct {
	service PaymentLookup
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service PaymentLookup) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// RegisterRoutes registers the payment routes on the given router group.
func (h *PaymentHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	payments := r.Group("/payments")
	payments.Use(middleware.AuthMiddleware(jwtManager))
	{
		payments.GET("/:id", h.GetPayment)
	}
}

// GetPayment handles GET /api/v1/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	paymentID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	dto, err := h.service.GetPayment(c.Request.Context(), paymentID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}
