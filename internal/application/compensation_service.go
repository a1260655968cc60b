package application

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dailyrent/service-booking/internal/adapter"
	"github.com/dailyrent/service-booking/internal/domain/booking"
	"github.com/dailyrent/service-booking/internal/domain/compensation"
	"github.com/dailyrent/service-booking/internal/domain/ledger"
	"github.com/dailyrent/service-booking/internal/domain/payment"
	"github.com/dailyrent/service-booking/internal/domain/property"
	"github.com/dailyrent/service-booking/internal/events"
	"github.com/dailyrent/service-booking/internal/saga"
	"github.com/dailyrent/service-booking/pkg/clock"
	"github.com/dailyrent/service-booking/pkg/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProofPhoto is one uploaded file attached to a compensation claim.
type ProofPhoto struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// CreateCompensationInput is a tenant's compensation claim.
type CreateCompensationInput struct {
	BookingID       uuid.UUID
	Description     string
	RequestedAmount decimal.Decimal
	Photos          []ProofPhoto
}

// CompensationService handles damage compensation claims and the balance
// credits they produce.
type CompensationService struct {
	requests  compensation.RequestRepository
	bookings  booking.BookingRepository
	payments  payment.PaymentRepository
	catalog   property.Catalog
	ledger    ledger.Repository
	blobs     adapter.BlobStore
	tx        Transactor
	publisher EventPublisher
	clock     clock.Clock
	logger    *zap.Logger
}

// NewCompensationService creates a new CompensationService.
func NewCompensationService(
	requests compensation.RequestRepository,
	bookings booking.BookingRepository,
	payments payment.PaymentRepository,
	catalog property.Catalog,
	ledgerRepo ledger.Repository,
	blobs adapter.BlobStore,
	tx Transactor,
	publisher EventPublisher,
	clk clock.Clock,
	logger *zap.Logger,
) *CompensationService {
	return &CompensationService{
		requests:  requests,
		bookings:  bookings,
		payments:  payments,
		catalog:   catalog,
		ledger:    ledgerRepo,
		blobs:     blobs,
		tx:        tx,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
	}
}

// CreateRequest uploads the proof photos and stores the claim. Either the
// claim is stored with all of its photos, or nothing is left behind.
func (s *CompensationService) CreateRequest(ctx context.Context, tenantID uuid.UUID, in CreateCompensationInput) (*CompensationDTO, error) {
	if !in.RequestedAmount.IsPositive() {
		return nil, domain.NewBadRequestError("requested amount must be positive")
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, domain.NewBadRequestError("description is required")
	}

	b, err := s.bookings.FindByID(ctx, in.BookingID)
	if err != nil {
		return nil, err
	}
	if !b.IsTenant(tenantID) {
		return nil, domain.NewBadRequestError("only the tenant can request compensation for this booking")
	}

	p, err := s.payments.FindLatestByBookingID(ctx, b.ID())
	if err != nil && !domain.IsNotFound(err) {
		return nil, domain.AsInternal("failed to load payment", err)
	}
	if p == nil || !p.Paid() {
		return nil, domain.NewConflictError("booking has not been paid")
	}

	if _, err := s.requests.FindByBookingID(ctx, b.ID()); err == nil {
		return nil, domain.NewConflictError("compensation has already been requested for this booking")
	} else if !domain.IsNotFound(err) {
		return nil, domain.AsInternal("failed to load compensation request", err)
	}

	keys := make([]string, len(in.Photos))
	var req *compensation.Request

	sg := saga.New("create_compensation_request", s.logger)
	for i, photo := range in.Photos {
		keys[i] = adapter.NewBlobKey(photo.Filename)
		sg.AddStep(saga.Step{
			Name: fmt.Sprintf("upload_photo_%d", i),
			Execute: func(ctx context.Context) error {
				if err := s.blobs.Upload(ctx, keys[i], photo.Content, photo.Size, photo.ContentType); err != nil {
					return domain.NewInternalError("failed to upload proof photo", err)
				}
				return nil
			},
			Compensate: func(ctx context.Context) error {
				return s.blobs.Delete(ctx, keys[i])
			},
		})
	}
	sg.AddStep(saga.Step{
		Name: "persist_request",
		Execute: func(ctx context.Context) error {
			var err error
			req, err = compensation.NewRequest(b.ID(), b.PropertyID(), tenantID, in.Description, in.RequestedAmount, keys, s.clock.Now())
			if err != nil {
				return err
			}
			return s.requests.Save(ctx, req)
		},
	})

	if err := sg.Execute(ctx); err != nil {
		return nil, domain.AsInternal("failed to create compensation request", err)
	}

	s.logger.Info("compensation requested",
		zap.String("request_id", req.ID().String()),
		zap.String("booking_id", b.ID().String()),
		zap.Int("photos", len(keys)),
	)
	s.publish(ctx, events.CompensationCreated, req)

	dto := toCompensationDTO(req)
	return &dto, nil
}

// ApproveRequest resolves a pending claim for amount and credits the tenant's
// balance in the same transaction.
func (s *CompensationService) ApproveRequest(ctx context.Context, requestID, ownerID uuid.UUID, amount decimal.Decimal) (*CompensationDTO, error) {
	var req *compensation.Request
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if req, err = s.ownedRequest(ctx, requestID, ownerID); err != nil {
			return err
		}

		b, err := s.bookings.FindByID(ctx, req.BookingID())
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if err := req.Approve(amount, b.TotalPrice(), now); err != nil {
			return err
		}
		if err := s.requests.Update(ctx, req); err != nil {
			return err
		}

		entry, err := ledger.NewCredit(req.TenantID(), amount, ledger.ReasonCompensationApproved, req.ID(), now)
		if err != nil {
			return err
		}
		return s.ledger.Credit(ctx, entry)
	})
	if err != nil {
		return nil, domain.AsInternal("failed to approve compensation request", err)
	}

	s.logger.Info("compensation approved",
		zap.String("request_id", req.ID().String()),
		zap.String("amount", amount.String()),
	)
	s.publish(ctx, events.CompensationApproved, req)

	dto := toCompensationDTO(req)
	return &dto, nil
}

// RejectRequest resolves a pending claim without payment.
func (s *CompensationService) RejectRequest(ctx context.Context, requestID, ownerID uuid.UUID) (*CompensationDTO, error) {
	var req *compensation.Request
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if req, err = s.ownedRequest(ctx, requestID, ownerID); err != nil {
			return err
		}
		if err := req.Reject(s.clock.Now()); err != nil {
			return err
		}
		return s.requests.Update(ctx, req)
	})
	if err != nil {
		return nil, domain.AsInternal("failed to reject compensation request", err)
	}

	s.publish(ctx, events.CompensationRejected, req)
	dto := toCompensationDTO(req)
	return &dto, nil
}

// DeleteRequest withdraws a pending claim. The tenant who filed it or the
// property owner may delete it. Proof photos are removed afterwards on a best
// effort basis.
func (s *CompensationService) DeleteRequest(ctx context.Context, requestID, userID uuid.UUID) error {
	var req *compensation.Request
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if req, err = s.requests.FindByID(ctx, requestID); err != nil {
			return err
		}
		if req.TenantID() != userID {
			owned, err := s.catalog.IsOwnedBy(ctx, req.PropertyID(), userID)
			if err != nil {
				return err
			}
			if !owned {
				return domain.NewBadRequestError("only the tenant or the property owner can delete this request")
			}
		}
		if err := req.CanDelete(); err != nil {
			return err
		}
		return s.requests.Delete(ctx, req)
	})
	if err != nil {
		return domain.AsInternal("failed to delete compensation request", err)
	}

	for _, key := range req.ProofPhotos() {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to delete proof photo", zap.String("key", key), zap.Error(err))
		}
	}

	s.logger.Info("compensation request deleted", zap.String("request_id", requestID.String()))
	s.publish(ctx, events.CompensationDeleted, req)
	return nil
}

// GetByID returns a claim by id.
func (s *CompensationService) GetByID(ctx context.Context, requestID uuid.UUID) (*CompensationDTO, error) {
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	dto := toCompensationDTO(req)
	return &dto, nil
}

// GetByBookingID returns the claim filed for a booking.
func (s *CompensationService) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*CompensationDTO, error) {
	req, err := s.requests.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	dto := toCompensationDTO(req)
	return &dto, nil
}

// GetBalance returns the user's balance and its ledger entries.
func (s *CompensationService) GetBalance(ctx context.Context, userID uuid.UUID) (*BalanceDTO, error) {
	balance, err := s.ledger.Balance(ctx, userID)
	if err != nil {
		return nil, domain.AsInternal("failed to load balance", err)
	}
	entries, err := s.ledger.ListEntries(ctx, userID)
	if err != nil {
		return nil, domain.AsInternal("failed to load ledger entries", err)
	}

	dto := &BalanceDTO{UserID: userID, Balance: balance, Entries: make([]LedgerEntryDTO, len(entries))}
	for i, e := range entries {
		dto.Entries[i] = toLedgerEntryDTO(e)
	}
	return dto, nil
}

func (s *CompensationService) ownedRequest(ctx context.Context, requestID, ownerID uuid.UUID) (*compensation.Request, error) {
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	owned, err := s.catalog.IsOwnedBy(ctx, req.PropertyID(), ownerID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, domain.NewBadRequestError("you are not the owner of this property")
	}
	return req, nil
}

func (s *CompensationService) publish(ctx context.Context, eventType string, req *compensation.Request) {
	s.publisher.Publish(ctx, events.TopicCompensationEvents, eventType, events.CompensationEvent{
		RequestID:       req.ID(),
		BookingID:       req.BookingID(),
		TenantID:        req.TenantID(),
		Status:          string(req.Status()),
		RequestedAmount: req.RequestedAmount(),
		ApprovedAmount:  req.ApprovedAmount(),
		OccurredAt:      s.clock.Now(),
	})
}
