package application

import (
	"context"
	"fmt"

	"github.com/dailyrent/service-booking/internal/domain/booking"
	"github.com/dailyrent/service-booking/internal/domain/compensation"
	"github.com/dailyrent/service-booking/internal/domain/payment"
	"github.com/dailyrent/service-booking/internal/domain/property"
	"github.com/dailyrent/service-booking/internal/events"
	"github.com/dailyrent/service-booking/pkg/clock"
	"github.com/dailyrent/service-booking/pkg/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BookingService drives the booking lifecycle: creation, owner decisions,
// tenant cancellation, payment and the owner's payout.
type BookingService struct {
	bookings      booking.BookingRepository
	payments      payment.PaymentRepository
	compensations compensation.RequestRepository
	catalog       property.Catalog
	settlement    *SettlementService
	tx            Transactor
	publisher     EventPublisher
	clock         clock.Clock
	logger        *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	bookings booking.BookingRepository,
	payments payment.PaymentRepository,
	compensations compensation.RequestRepository,
	catalog property.Catalog,
	settlement *SettlementService,
	tx Transactor,
	publisher EventPublisher,
	clk clock.Clock,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		bookings:      bookings,
		payments:      payments,
		compensations: compensations,
		catalog:       catalog,
		settlement:    settlement,
		tx:            tx,
		publisher:     publisher,
		clock:         clk,
		logger:        logger,
	}
}

// CreateBooking prices and stores a pending booking for the tenant.
func (s *BookingService) CreateBooking(ctx context.Context, tenantID uuid.UUID, req CreateBookingRequest) (*BookingDTO, error) {
	guests := booking.Guests{Adults: req.AdultsCount, Children: req.ChildrenCount, HasPets: req.HasPets}
	checkIn, checkOut := req.CheckInDate.UTC(), req.CheckOutDate.UTC()
	if err := booking.ValidateStay(checkIn, checkOut, guests); err != nil {
		return nil, err
	}

	price, err := s.catalog.GetPricePerDay(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}

	var b *booking.Booking
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		overlapping, err := s.bookings.HasOverlapping(ctx, tenantID, req.PropertyID, checkIn, checkOut)
		if err != nil {
			return err
		}
		if overlapping {
			return domain.NewConflictError("you already have a booking of this property on these dates")
		}

		b, err = booking.NewBooking(req.PropertyID, tenantID, checkIn, checkOut, guests, price, s.clock.Now())
		if err != nil {
			return err
		}
		return s.bookings.Save(ctx, b)
	})
	if err != nil {
		return nil, domain.AsInternal("failed to create booking", err)
	}

	s.logger.Info("booking created",
		zap.String("booking_id", b.ID().String()),
		zap.String("property_id", b.PropertyID().String()),
		zap.String("total_price", b.TotalPrice().String()),
	)
	s.publisher.Publish(ctx, events.TopicBookingEvents, events.BookingCreated, events.BookingCreatedEvent{
		BookingID:  b.ID(),
		PropertyID: b.PropertyID(),
		TenantID:   b.TenantID(),
		CheckIn:    b.CheckIn(),
		CheckOut:   b.CheckOut(),
		TotalPrice: b.TotalPrice(),
		OccurredAt: s.clock.Now(),
	})

	dto := toBookingDTO(b, nil)
	return &dto, nil
}

// ListOwnerBookings returns the property's bookings, except cancelled ones,
// for its owner. An empty result is not an error.
func (s *BookingService) ListOwnerBookings(ctx context.Context, propertyID, ownerID uuid.UUID) ([]BookingDTO, error) {
	if err := s.requireOwner(ctx, propertyID, ownerID); err != nil {
		return nil, err
	}

	list, err := s.bookings.ListByProperty(ctx, propertyID)
	if err != nil {
		return nil, domain.AsInternal("failed to list bookings", err)
	}
	return s.annotate(ctx, list, false)
}

// ListTenantBookings returns the tenant's bookings with property display fields.
func (s *BookingService) ListTenantBookings(ctx context.Context, tenantID uuid.UUID) ([]BookingDTO, error) {
	list, err := s.bookings.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, domain.AsInternal("failed to list bookings", err)
	}
	return s.annotate(ctx, list, true)
}

// annotate joins each booking with its latest payment and, optionally, its property.
func (s *BookingService) annotate(ctx context.Context, list []*booking.Booking, withProperties bool) ([]BookingDTO, error) {
	if len(list) == 0 {
		return []BookingDTO{}, nil
	}

	ids := make([]uuid.UUID, len(list))
	propertyIDs := make([]uuid.UUID, 0, len(list))
	for i, b := range list {
		ids[i] = b.ID()
		propertyIDs = append(propertyIDs, b.PropertyID())
	}

	latest, err := s.payments.LatestByBookingIDs(ctx, ids)
	if err != nil {
		return nil, domain.AsInternal("failed to load payments", err)
	}

	var summaries map[uuid.UUID]property.Summary
	if withProperties {
		if summaries, err = s.catalog.GetSummaries(ctx, propertyIDs); err != nil {
			return nil, domain.AsInternal("failed to load properties", err)
		}
	}

	dtos := make([]BookingDTO, len(list))
	for i, b := range list {
		dto := toBookingDTO(b, latest[b.ID()])
		if sum, ok := summaries[b.PropertyID()]; ok {
			dto = withProperty(dto, sum)
		}
		dtos[i] = dto
	}
	return dtos, nil
}

// ApproveBooking accepts a pending booking. Only one booking per property
// may be approved; the check and the update share a serializable transaction
// and a partial unique index backs them up.
func (s *BookingService) ApproveBooking(ctx context.Context, bookingID, ownerID uuid.UUID) (*BookingDTO, error) {
	var b *booking.Booking
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if b, err = s.ownedBooking(ctx, bookingID, ownerID); err != nil {
			return err
		}

		taken, err := s.bookings.HasApprovedBooking(ctx, b.PropertyID(), b.ID())
		if err != nil {
			return err
		}
		if taken {
			return domain.NewConflictError("property already has an approved booking")
		}

		if err := b.Approve(s.clock.Now()); err != nil {
			return err
		}
		return s.bookings.Update(ctx, b)
	})
	if err != nil {
		return nil, domain.AsInternal("failed to approve booking", err)
	}

	s.publishStatus(ctx, events.BookingApproved, b, ownerID)
	dto := toBookingDTO(b, nil)
	return &dto, nil
}

// RejectBooking declines a pending booking.
func (s *BookingService) RejectBooking(ctx context.Context, bookingID, ownerID uuid.UUID) (*BookingDTO, error) {
	var b *booking.Booking
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if b, err = s.ownedBooking(ctx, bookingID, ownerID); err != nil {
			return err
		}
		if err := b.Reject(s.clock.Now()); err != nil {
			return err
		}
		return s.bookings.Update(ctx, b)
	})
	if err != nil {
		return nil, domain.AsInternal("failed to reject booking", err)
	}

	s.publishStatus(ctx, events.BookingRejected, b, ownerID)
	dto := toBookingDTO(b, nil)
	return &dto, nil
}

// CancelBooking lets the tenant withdraw a pending or approved booking.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, tenantID uuid.UUID) (*BookingDTO, error) {
	var b *booking.Booking
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if b, err = s.bookings.FindByID(ctx, bookingID); err != nil {
			return err
		}
		if !b.IsTenant(tenantID) {
			return domain.NewBadRequestError("only the tenant can cancel this booking")
		}
		if err := b.Cancel(s.clock.Now()); err != nil {
			return err
		}
		return s.bookings.Update(ctx, b)
	})
	if err != nil {
		return nil, domain.AsInternal("failed to cancel booking", err)
	}

	s.publishStatus(ctx, events.BookingCancelled, b, tenantID)
	dto := toBookingDTO(b, nil)
	return &dto, nil
}

// InitiatePayment starts the tenant's payment of an approved booking.
func (s *BookingService) InitiatePayment(ctx context.Context, bookingID, tenantID uuid.UUID) (*PaymentInitiation, error) {
	b, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.IsTenant(tenantID) {
		return nil, domain.NewBadRequestError("only the tenant can pay for this booking")
	}
	if b.Status() != booking.StatusApproved {
		return nil, domain.NewConflictError("booking must be approved before payment")
	}

	return s.settlement.CreatePayment(ctx, CreatePaymentInput{
		BookingID:   b.ID(),
		UserID:      tenantID,
		Amount:      b.TotalPrice(),
		Description: fmt.Sprintf("Booking %s", b.ID()),
	})
}

// MarkPaidAndCollect completes a paid, approved booking and reports the
// owner's payout: the total less any approved compensation.
func (s *BookingService) MarkPaidAndCollect(ctx context.Context, bookingID, ownerID uuid.UUID) (*PayoutDTO, error) {
	var (
		b           *booking.Booking
		compensated decimal.Decimal
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		compensated = decimal.Zero
		var err error
		if b, err = s.ownedBooking(ctx, bookingID, ownerID); err != nil {
			return err
		}
		if b.Status() != booking.StatusApproved {
			return domain.NewInvalidStateError(string(b.Status()), string(booking.StatusCompleted))
		}

		p, err := s.payments.FindLatestByBookingID(ctx, b.ID())
		if err != nil && !domain.IsNotFound(err) {
			return err
		}
		if p == nil || !p.Paid() {
			return domain.NewConflictError("booking has not been paid")
		}

		req, err := s.compensations.FindByBookingID(ctx, b.ID())
		switch {
		case err == nil:
			compensated = req.ApprovedOrZero()
		case !domain.IsNotFound(err):
			return err
		}

		if err := b.Complete(s.clock.Now()); err != nil {
			return err
		}
		return s.bookings.Update(ctx, b)
	})
	if err != nil {
		return nil, domain.AsInternal("failed to complete booking", err)
	}

	payout := b.Payout(compensated)
	s.logger.Info("booking completed",
		zap.String("booking_id", b.ID().String()),
		zap.String("payout", payout.String()),
	)
	s.publisher.Publish(ctx, events.TopicBookingEvents, events.BookingCompleted, events.BookingCompletedEvent{
		BookingID:    b.ID(),
		PropertyID:   b.PropertyID(),
		OwnerID:      ownerID,
		TotalPrice:   b.TotalPrice(),
		Compensation: compensated,
		Payout:       payout,
		OccurredAt:   s.clock.Now(),
	})

	return &PayoutDTO{
		BookingID:    b.ID(),
		TotalPrice:   b.TotalPrice(),
		Compensation: compensated,
		Payout:       payout,
	}, nil
}

// GetBookingPayment returns the latest payment of a booking to its tenant or owner.
func (s *BookingService) GetBookingPayment(ctx context.Context, bookingID, userID uuid.UUID) (*PaymentDTO, error) {
	b, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.IsTenant(userID) {
		if err := s.requireOwner(ctx, b.PropertyID(), userID); err != nil {
			return nil, err
		}
	}

	p, err := s.payments.FindLatestByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	dto := toPaymentDTO(p)
	return &dto, nil
}

// GetPayment returns a payment by id to the booking's tenant or the property owner.
func (s *BookingService) GetPayment(ctx context.Context, paymentID, userID uuid.UUID) (*PaymentDTO, error) {
	dto, err := s.settlement.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	b, err := s.bookings.FindByID(ctx, dto.BookingID)
	if err != nil {
		return nil, err
	}
	if !b.IsTenant(userID) {
		if err := s.requireOwner(ctx, b.PropertyID(), userID); err != nil {
			return nil, err
		}
	}
	return dto, nil
}

func (s *BookingService) ownedBooking(ctx context.Context, bookingID, ownerID uuid.UUID) (*booking.Booking, error) {
	b, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(ctx, b.PropertyID(), ownerID); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BookingService) requireOwner(ctx context.Context, propertyID, userID uuid.UUID) error {
	owned, err := s.catalog.IsOwnedBy(ctx, propertyID, userID)
	if err != nil {
		return err
	}
	if !owned {
		return domain.NewBadRequestError("you are not the owner of this property")
	}
	return nil
}

func (s *BookingService) publishStatus(ctx context.Context, eventType string, b *booking.Booking, actorID uuid.UUID) {
	s.logger.Info("booking status changed",
		zap.String("booking_id", b.ID().String()),
		zap.String("status", string(b.Status())),
	)
	s.publisher.Publish(ctx, events.TopicBookingEvents, eventType, events.BookingStatusEvent{
		BookingID:  b.ID(),
		PropertyID: b.PropertyID(),
		TenantID:   b.TenantID(),
		ActorID:    actorID,
		Status:     string(b.Status()),
		OccurredAt: s.clock.Now(),
	})
}
