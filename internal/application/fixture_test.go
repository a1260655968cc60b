package application

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/dailyrent/service-booking/internal/adapter"
	"github.com/dailyrent/service-booking/internal/catalog"
	"github.com/dailyrent/service-booking/internal/domain/payment"
	"github.com/dailyrent/service-booking/internal/domain/property"
	"github.com/dailyrent/service-booking/internal/repository"
	"github.com/dailyrent/service-booking/internal/scheduler"
	"github.com/dailyrent/service-booking/internal/testsupport"
	"github.com/dailyrent/service-booking/pkg/clock"
	"github.com/dailyrent/service-booking/pkg/database"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testStart = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func july(d int) time.Time {
	return time.Date(2025, 7, d, 0, 0, 0, 0, time.UTC)
}

// --- fakes ---

type publishedEvent struct {
	Topic string
	Type  string
	Data  interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (r *recordingPublisher) Publish(ctx context.Context, topic, eventType string, data interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, publishedEvent{Topic: topic, Type: eventType, Data: data})
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type fakeGateway struct {
	mu          sync.Mutex
	createErr   error
	statusErr   error
	status      payment.Status
	created     []adapter.CreatePaymentRequest
	statusCalls int
	cancelled   []string
}

func (f *fakeGateway) CreatePayment(ctx context.Context, req adapter.CreatePaymentRequest) (*adapter.CreatedPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	id := "ext-" + req.IdempotencyKey
	return &adapter.CreatedPayment{
		ExternalID:      id,
		Status:          payment.StatusPending,
		ConfirmationURL: "https://pay.example.com/confirm/" + id,
	}, nil
}

func (f *fakeGateway) GetPaymentStatus(ctx context.Context, externalID string) (*adapter.PaymentStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return &adapter.PaymentStatus{Status: f.status, Paid: f.status == payment.StatusSucceeded}, nil
}

func (f *fakeGateway) CancelPayment(ctx context.Context, externalID, idempotencyKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, externalID)
	return nil
}

// failingBlobStore fails every upload after the first ok ones.
type failingBlobStore struct {
	adapter.BlobStore
	ok      int
	uploads int
}

func (f *failingBlobStore) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	f.uploads++
	if f.uploads > f.ok {
		return errors.New("bucket unavailable")
	}
	return f.BlobStore.Upload(ctx, key, r, size, contentType)
}

// --- fixture ---

type fixture struct {
	t   *testing.T
	ctx context.Context
	db  *gorm.DB

	clock     *clock.Fixed
	gateway   *fakeGateway
	publisher *recordingPublisher
	fs        afero.Fs
	blobs     *adapter.FSBlobStore

	properties    *repository.PropertyRepositoryImpl
	bookingsRepo  *repository.BookingRepositoryImpl
	paymentsRepo  *repository.PaymentRepositoryImpl
	requestsRepo  *repository.CompensationRepositoryImpl
	ledgerRepo    *repository.LedgerRepositoryImpl
	dispatcher    *scheduler.Dispatcher
	catalog       *catalog.PropertyCatalog
	settlement    *SettlementService
	bookings      *BookingService
	compensations *CompensationService
}

var testSettlementConfig = SettlementConfig{
	Currency:     "RUB",
	ReturnURL:    "https://dailyrent.example.com/bookings",
	InitialDelay: time.Minute,
	PollInterval: 5 * time.Minute,
	MaxAttempts:  10,
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testsupport.NewSQLite(t, repository.Models()...)
	logger := zap.NewNop()

	f := &fixture{
		t:            t,
		ctx:          context.Background(),
		db:           db,
		clock:        clock.NewFixed(testStart),
		gateway:      &fakeGateway{status: payment.StatusPending},
		publisher:    &recordingPublisher{},
		fs:           afero.NewMemMapFs(),
		properties:   repository.NewPropertyRepository(db),
		bookingsRepo: repository.NewBookingRepository(db),
		paymentsRepo: repository.NewPaymentRepository(db),
		requestsRepo: repository.NewCompensationRepository(db),
		ledgerRepo:   repository.NewLedgerRepository(db),
	}

	blobs, err := adapter.NewFSBlobStore(f.fs, "/blobs")
	require.NoError(t, err)
	f.blobs = blobs

	f.catalog = catalog.NewPropertyCatalog(f.properties, 100, time.Minute, logger)
	t.Cleanup(f.catalog.Stop)

	tx := database.NewTransactor(db, sql.LevelDefault)
	sched := scheduler.NewScheduler(db, f.clock)
	f.dispatcher = scheduler.NewDispatcher(db, f.clock, scheduler.DispatcherConfig{Batch: 10}, logger)

	f.settlement = NewSettlementService(f.paymentsRepo, f.gateway, tx, sched, f.publisher, f.clock, testSettlementConfig, logger)
	f.dispatcher.Register(TaskPollPaymentStatus, f.settlement.HandlePollTask)

	f.bookings = NewBookingService(f.bookingsRepo, f.paymentsRepo, f.requestsRepo, f.catalog, f.settlement, tx, f.publisher, f.clock, logger)
	f.compensations = NewCompensationService(f.requestsRepo, f.bookingsRepo, f.paymentsRepo, f.catalog, f.ledgerRepo, f.blobs, tx, f.publisher, f.clock, logger)
	return f
}

func (f *fixture) addProperty(ownerID uuid.UUID, price int64) uuid.UUID {
	f.t.Helper()
	id := uuid.New()
	require.NoError(f.t, f.properties.Upsert(f.ctx, property.Summary{
		ID:          id,
		OwnerID:     ownerID,
		Title:       "Flat on Bauman street",
		City:        "Kazan",
		PricePerDay: decimal.NewFromInt(price),
		UpdatedAt:   testStart,
	}))
	return id
}

func (f *fixture) createBooking(propertyID, tenantID uuid.UUID, in, out time.Time) *BookingDTO {
	f.t.Helper()
	dto, err := f.bookings.CreateBooking(f.ctx, tenantID, CreateBookingRequest{
		PropertyID:   propertyID,
		CheckInDate:  in,
		CheckOutDate: out,
		AdultsCount:  2,
	})
	require.NoError(f.t, err)
	return dto
}

// approvedBooking returns an approved booking of a fresh property.
func (f *fixture) approvedBooking() (ownerID, tenantID uuid.UUID, b *BookingDTO) {
	f.t.Helper()
	ownerID, tenantID = uuid.New(), uuid.New()
	propertyID := f.addProperty(ownerID, 1000)
	b = f.createBooking(propertyID, tenantID, july(1), july(4))
	_, err := f.bookings.ApproveBooking(f.ctx, b.ID, ownerID)
	require.NoError(f.t, err)
	return ownerID, tenantID, b
}

// paidBooking returns an approved booking whose payment has succeeded.
func (f *fixture) paidBooking() (ownerID, tenantID uuid.UUID, b *BookingDTO) {
	f.t.Helper()
	ownerID, tenantID, b = f.approvedBooking()
	_, err := f.bookings.InitiatePayment(f.ctx, b.ID, tenantID)
	require.NoError(f.t, err)

	f.gateway.mu.Lock()
	f.gateway.status = payment.StatusSucceeded
	f.gateway.mu.Unlock()

	f.clock.Advance(time.Minute)
	_, err = f.dispatcher.RunOnce(f.ctx)
	require.NoError(f.t, err)
	return ownerID, tenantID, b
}

func (f *fixture) tasks() []scheduler.TaskModel {
	f.t.Helper()
	var tasks []scheduler.TaskModel
	require.NoError(f.t, f.db.Order("run_at").Order("attempts").Find(&tasks).Error)
	return tasks
}
