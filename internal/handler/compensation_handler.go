package handler

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/dailyrent/service-booking/internal/application"
	"github.com/dailyrent/service-booking/pkg/auth"
	"github.com/dailyrent/service-booking/pkg/middleware"
	"github.com/dailyrent/service-booking/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	maxProofPhotos    = 10
	maxMultipartBytes = 32 << 20
)

// CompensationService is the compensation engine as seen by the HTTP layer.
type CompensationService interface {
	CreateRequest(ctx context.Context, tenantID uuid.UUID, in application.CreateCompensationInput) (*application.CompensationDTO, error)
	ApproveRequest(ctx context.Context, requestID, ownerID uuid.UUID, amount decimal.Decimal) (*application.CompensationDTO, error)
	RejectRequest(ctx context.Context, requestID, ownerID uuid.UUID) (*application.CompensationDTO, error)
	DeleteRequest(ctx context.Context, requestID, userID uuid.UUID) error
	GetByID(ctx context.Context, requestID uuid.UUID) (*application.CompensationDTO, error)
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*application.CompensationDTO, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (*application.BalanceDTO, error)
}

// CompensationHandler handles HTTP requests for compensation claims and balances.
type CompensationHandler struct {
	service CompensationService
}

// NewCompensationHandler creates a new CompensationHandler.
func NewCompensationHandler(service CompensationService) *CompensationHandler {
	return &CompensationHandler{service: service}
}

// RegisterRoutes registers compensation and balance routes.
func (h *CompensationHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	requireAuth := middleware.AuthMiddleware(jwtManager)

	comp := r.Group("/compensations")
	comp.Use(requireAuth)
	{
		comp.POST("", h.CreateRequest)
		comp.GET("/:id", h.GetRequest)
		comp.GET("/booking/:bookingId", h.GetByBooking)
		comp.PATCH("/:id/approve", h.ApproveRequest)
		comp.PATCH("/:id/reject", h.RejectRequest)
		comp.DELETE("/:id", h.DeleteRequest)
	}

	r.GET("/balance", requireAuth, h.GetBalance)
}

// CreateRequest handles POST /api/v1/compensations (multipart/form-data).
// Fields: booking_id, description, requested_amount, photos (repeated file).
func (h *CompensationHandler) CreateRequest(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxMultipartBytes)
	form, err := c.MultipartForm()
	if err != nil {
		response.BadRequest(c, "invalid multipart form")
		return
	}

	bookingID, err := uuid.Parse(c.PostForm("booking_id"))
	if err != nil {
		response.BadRequest(c, "invalid booking_id")
		return
	}
	amount, err := decimal.NewFromString(c.PostForm("requested_amount"))
	if err != nil {
		response.BadRequest(c, "invalid requested_amount")
		return
	}

	files := form.File["photos"]
	if len(files) > maxProofPhotos {
		response.BadRequest(c, "too many photos")
		return
	}

	photos, closeAll, err := openPhotos(files)
	defer closeAll()
	if err != nil {
		response.BadRequest(c, "cannot read uploaded photo")
		return
	}

	dto, err := h.service.CreateRequest(c.Request.Context(), userID, application.CreateCompensationInput{
		BookingID:       bookingID,
		Description:     c.PostForm("description"),
		RequestedAmount: amount,
		Photos:          photos,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto)
}

func openPhotos(files []*multipart.FileHeader) ([]application.ProofPhoto, func(), error) {
	var opened []io.Closer
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	photos := make([]application.ProofPhoto, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, err
		}
		opened = append(opened, f)
		photos = append(photos, application.ProofPhoto{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Content:     f,
		})
	}
	return photos, closeAll, nil
}

// GetRequest handles GET /api/v1/compensations/:id
func (h *CompensationHandler) GetRequest(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	dto, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}

// GetByBooking handles GET /api/v1/compensations/booking/:bookingId
func (h *CompensationHandler) GetByBooking(c *gin.Context) {
	id, ok := paramUUID(c, "bookingId")
	if !ok {
		return
	}
	dto, err := h.service.GetByBookingID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}

// ApproveRequest handles PATCH /api/v1/compensations/:id/approve
func (h *CompensationHandler) ApproveRequest(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req application.ApproveCompensationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.ApproveRequest(c.Request.Context(), id, userID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}

// RejectRequest handles PATCH /api/v1/compensations/:id/reject
func (h *CompensationHandler) RejectRequest(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	dto, err := h.service.RejectRequest(c.Request.Context(), id, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}

// DeleteRequest handles DELETE /api/v1/compensations/:id
func (h *CompensationHandler) DeleteRequest(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteRequest(c.Request.Context(), id, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// GetBalance handles GET /api/v1/balance
func (h *CompensationHandler) GetBalance(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	dto, err := h.service.GetBalance(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}
