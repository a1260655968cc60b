package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dailyrent/service-booking/internal/adapter"
	"github.com/dailyrent/service-booking/internal/domain/payment"
	"github.com/dailyrent/service-booking/internal/events"
	"github.com/dailyrent/service-booking/internal/saga"
	"github.com/dailyrent/service-booking/internal/scheduler"
	"github.com/dailyrent/service-booking/pkg/clock"
	"github.com/dailyrent/service-booking/pkg/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TaskPollPaymentStatus is the scheduler kind of the payment polling task.
const TaskPollPaymentStatus = "payment.poll_status"

// PollPaymentPayload identifies one polling attempt.
type PollPaymentPayload struct {
	ExternalID string    `json:"external_id"`
	PaymentID  uuid.UUID `json:"payment_id"`
	Attempt    int       `json:"attempt"`
}

// SettlementConfig holds gateway and polling settings.
type SettlementConfig struct {
	Currency     string
	ReturnURL    string
	InitialDelay time.Duration
	PollInterval time.Duration
	MaxAttempts  int
}

// CreatePaymentInput describes a payment for a booking.
type CreatePaymentInput struct {
	BookingID   uuid.UUID
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Description string
}

// SettlementService creates gateway payments and reconciles their status
// through a self-rescheduling polling task.
type SettlementService struct {
	payments  payment.PaymentRepository
	gateway   adapter.PaymentGateway
	tx        Transactor
	scheduler TaskScheduler
	publisher EventPublisher
	clock     clock.Clock
	cfg       SettlementConfig
	logger    *zap.Logger
}

// NewSettlementService creates a new SettlementService.
func NewSettlementService(
	payments payment.PaymentRepository,
	gateway adapter.PaymentGateway,
	tx Transactor,
	sched TaskScheduler,
	publisher EventPublisher,
	clk clock.Clock,
	cfg SettlementConfig,
	logger *zap.Logger,
) *SettlementService {
	return &SettlementService{
		payments:  payments,
		gateway:   gateway,
		tx:        tx,
		scheduler: sched,
		publisher: publisher,
		clock:     clk,
		cfg:       cfg,
		logger:    logger,
	}
}

// CreatePayment registers a payment at the gateway, stores it and schedules
// the first status poll. A gateway payment whose local record cannot be
// stored is cancelled again.
func (s *SettlementService) CreatePayment(ctx context.Context, in CreatePaymentInput) (*PaymentInitiation, error) {
	active, err := s.payments.HasActivePayment(ctx, in.BookingID)
	if err != nil {
		return nil, domain.AsInternal("failed to check existing payments", err)
	}
	if active {
		return nil, domain.NewConflictError("booking already has a payment in process")
	}

	p, err := payment.NewPayment(in.BookingID, in.UserID, in.Amount, s.cfg.Currency, s.clock.Now())
	if err != nil {
		return nil, err
	}

	sg := saga.New("create_payment", s.logger)
	sg.AddStep(saga.Step{
		Name: "create_gateway_payment",
		Execute: func(ctx context.Context) error {
			created, err := s.gateway.CreatePayment(ctx, adapter.CreatePaymentRequest{
				Amount:         p.Amount(),
				Currency:       p.Currency(),
				Description:    in.Description,
				ReturnURL:      s.cfg.ReturnURL,
				IdempotencyKey: p.IdempotencyKey(),
				Metadata: map[string]string{
					"booking_id": in.BookingID.String(),
					"payment_id": p.ID().String(),
				},
			})
			if err != nil {
				return domain.NewInternalError("failed to create payment at gateway", err)
			}
			return p.AttachGateway(created.ExternalID, created.Status, created.ConfirmationURL)
		},
		Compensate: func(ctx context.Context) error {
			if p.ExternalID() == "" {
				return nil
			}
			return s.gateway.CancelPayment(ctx, p.ExternalID(), uuid.NewString())
		},
	})
	sg.AddStep(saga.Step{
		Name: "persist_payment",
		Execute: func(ctx context.Context) error {
			return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
				if err := s.payments.Save(ctx, p); err != nil {
					return err
				}
				return s.schedulePoll(ctx, s.cfg.InitialDelay, PollPaymentPayload{
					ExternalID: p.ExternalID(),
					PaymentID:  p.ID(),
					Attempt:    0,
				})
			})
		},
	})

	if err := sg.Execute(ctx); err != nil {
		s.logger.Error("failed to create payment",
			zap.String("booking_id", in.BookingID.String()),
			zap.Error(err),
		)
		return nil, domain.AsInternal("failed to create payment", err)
	}

	s.logger.Info("payment created",
		zap.String("payment_id", p.ID().String()),
		zap.String("external_id", p.ExternalID()),
		zap.String("booking_id", in.BookingID.String()),
	)
	s.publisher.Publish(ctx, events.TopicPaymentEvents, events.PaymentCreated, events.PaymentCreatedEvent{
		PaymentID:  p.ID(),
		ExternalID: p.ExternalID(),
		BookingID:  p.BookingID(),
		UserID:     p.UserID(),
		Amount:     p.Amount(),
		Currency:   p.Currency(),
		OccurredAt: s.clock.Now(),
	})

	return &PaymentInitiation{
		PaymentID:       p.ID(),
		ExternalID:      p.ExternalID(),
		ConfirmationURL: p.ConfirmationURL(),
	}, nil
}

// HandlePollTask is the scheduler handler for TaskPollPaymentStatus.
func (s *SettlementService) HandlePollTask(ctx context.Context, task scheduler.Task) error {
	var in PollPaymentPayload
	if err := task.Decode(&in); err != nil {
		// A payload that cannot be decoded will never succeed.
		s.logger.Error("dropping malformed payment poll task", zap.String("task_id", task.ID.String()), zap.Error(err))
		return nil
	}
	return s.PollPaymentStatus(ctx, in)
}

// PollPaymentStatus runs one polling attempt. It is safe to run again for
// the same attempt: missing or terminal payments are left alone, and the
// successor attempt is enqueued at most once.
//
// Losing an optimistic-lock race to another poll of the same payment ends
// this run quietly. Any other storage error is returned so that the
// dispatcher redelivers the attempt.
func (s *SettlementService) PollPaymentStatus(ctx context.Context, in PollPaymentPayload) error {
	log := s.logger.With(
		zap.String("payment_id", in.PaymentID.String()),
		zap.String("external_id", in.ExternalID),
		zap.Int("attempt", in.Attempt),
	)

	if in.Attempt >= s.cfg.MaxAttempts {
		log.Warn("payment polling abandoned after max attempts")
		return nil
	}

	p, err := s.payments.FindByID(ctx, in.PaymentID)
	if err != nil {
		if domain.IsNotFound(err) {
			log.Info("payment no longer exists, polling stopped")
			return nil
		}
		return err
	}
	if p.Status().IsTerminal() {
		return nil
	}

	status, err := s.gateway.GetPaymentStatus(ctx, in.ExternalID)
	if err != nil {
		log.Warn("gateway status check failed, retrying on next attempt", zap.Error(err))
		return s.scheduleNext(ctx, in)
	}

	var changed bool
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		changed = false
		var err error
		if p, err = s.payments.FindByID(ctx, in.PaymentID); err != nil {
			return err
		}
		if p.Status().IsTerminal() {
			return nil
		}
		if changed, err = p.ApplyGatewayStatus(status.Status, s.clock.Now()); err != nil {
			return err
		}
		if err := s.payments.Update(ctx, p); err != nil {
			return err
		}
		if p.Status().IsTerminal() {
			return nil
		}
		return s.scheduleNext(ctx, in)
	})
	switch {
	case errors.Is(err, domain.ErrStaleVersion):
		log.Info("payment changed concurrently, leaving it to the other poll", zap.Error(err))
		return nil
	case domain.IsNotFound(err):
		log.Info("payment no longer exists, polling stopped")
		return nil
	case err != nil:
		return err
	}

	log.Info("payment status checked", zap.String("status", string(p.Status())), zap.Bool("paid", p.Paid()))
	if changed {
		s.publisher.Publish(ctx, events.TopicPaymentEvents, events.PaymentStatusChanged, events.PaymentStatusChangedEvent{
			PaymentID:  p.ID(),
			ExternalID: p.ExternalID(),
			BookingID:  p.BookingID(),
			Status:     string(p.Status()),
			Paid:       p.Paid(),
			OccurredAt: s.clock.Now(),
		})
	}
	return nil
}

func (s *SettlementService) scheduleNext(ctx context.Context, in PollPaymentPayload) error {
	next := in
	next.Attempt++
	return s.schedulePoll(ctx, s.cfg.PollInterval, next)
}

// schedulePoll enqueues one attempt under a key unique to the payment and
// attempt number, so replays of an attempt cannot fork the chain.
func (s *SettlementService) schedulePoll(ctx context.Context, delay time.Duration, in PollPaymentPayload) error {
	key := fmt.Sprintf("%s:%s:%d", TaskPollPaymentStatus, in.PaymentID, in.Attempt)
	_, err := s.scheduler.ScheduleUnique(ctx, delay, TaskPollPaymentStatus, key, in)
	return err
}

// GetPayment returns a payment by id.
func (s *SettlementService) GetPayment(ctx context.Context, paymentID uuid.UUID) (*PaymentDTO, error) {
	p, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	dto := toPaymentDTO(p)
	return &dto, nil
}
