package adapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/dailyrent/service-booking/internal/domain/payment"
	"github.com/dailyrent/service-booking/pkg/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MockPaymentGateway simulates the gateway for development. Every payment
// it creates succeeds on the first status check.
type MockPaymentGateway struct {
	mu       sync.Mutex
	payments map[string]payment.Status
	logger   *zap.Logger
}

// NewMockPaymentGateway creates a new mock gateway.
func NewMockPaymentGateway(logger *zap.Logger) *MockPaymentGateway {
	return &MockPaymentGateway{payments: make(map[string]payment.Status), logger: logger}
}

// CreatePayment returns a pending payment with a fake confirmation page.
func (m *MockPaymentGateway) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatedPayment, error) {
	externalID := fmt.Sprintf("mock_%s", uuid.NewString())

	m.mu.Lock()
	m.payments[externalID] = payment.StatusPending
	m.mu.Unlock()

	m.logger.Info("[MOCK GATEWAY] payment created",
		zap.String("external_id", externalID),
		zap.String("amount", req.Amount.StringFixed(2)),
		zap.String("currency", req.Currency),
	)

	return &CreatedPayment{
		ExternalID:      externalID,
		Status:          payment.StatusPending,
		ConfirmationURL: req.ReturnURL + "?mock_payment=" + externalID,
	}, nil
}

// GetPaymentStatus settles pending payments as succeeded.
func (m *MockPaymentGateway) GetPaymentStatus(ctx context.Context, externalID string) (*PaymentStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, ok := m.payments[externalID]
	if !ok {
		return nil, domain.NewNotFoundError("Gateway payment", externalID)
	}
	if !status.IsTerminal() {
		status = payment.StatusSucceeded
		m.payments[externalID] = status
	}

	m.logger.Info("[MOCK GATEWAY] payment checked",
		zap.String("external_id", externalID),
		zap.String("status", string(status)),
	)
	return &PaymentStatus{Status: status, Paid: status == payment.StatusSucceeded}, nil
}

// CancelPayment marks a non-terminal payment canceled.
func (m *MockPaymentGateway) CancelPayment(ctx context.Context, externalID, idempotencyKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if status, ok := m.payments[externalID]; ok && !status.IsTerminal() {
		m.payments[externalID] = payment.StatusCanceled
	}
	m.logger.Info("[MOCK GATEWAY] payment cancelled", zap.String("external_id", externalID))
	return nil
}
