//go:build integration

package main_test

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/dailyrent/service-booking/internal/adapter"
	"github.com/dailyrent/service-booking/internal/application"
	"github.com/dailyrent/service-booking/internal/catalog"
	"github.com/dailyrent/service-booking/internal/events"
	"github.com/dailyrent/service-booking/internal/repository"
	"github.com/dailyrent/service-booking/internal/scheduler"
	"github.com/dailyrent/service-booking/pkg/clock"
	"github.com/dailyrent/service-booking/pkg/database"
	"github.com/dailyrent/service-booking/pkg/kafka"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// bookingStack holds the wired-up service components.
type bookingStack struct {
	Bookings      *application.BookingService
	Compensations *application.CompensationService
	Catalog       *catalog.PropertyCatalog
	Consumer      *events.PropertyEventConsumer
	Dispatcher    *scheduler.Dispatcher
	Cleanup       func()
}

// setupContainers starts PostgreSQL and Kafka testcontainers, applies the SQL
// migrations and returns a connected GORM DB.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_booking",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	pgCfg := database.PostgresConfig{
		Host:     pgHost,
		Port:     pgPort.Port(),
		User:     "test",
		Password: "test",
		DBName:   "test_booking",
		SSLMode:  "disable",
	}

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = database.Connect(pgCfg, logger)
		return err == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, database.RunMigrations(pgCfg.DatabaseURL(), "migrations", logger))

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, kafkaBrokers,
		events.TopicBookingEvents,
		events.TopicPaymentEvents,
		events.TopicCompensationEvents,
		events.TopicPropertyEvents,
	)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupBookingStack wires the services the way the server does, with a mock
// gateway, an in-memory blob store and fast polling.
func setupBookingStack(t *testing.T, db *gorm.DB, brokers []string) *bookingStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	clk := clock.System{}

	producer := kafka.NewProducer(brokers, logger)
	publisher := events.NewPublisher(producer, logger)
	tx := database.NewTransactor(db, sql.LevelSerializable)

	blobs, err := adapter.NewFSBlobStore(afero.NewMemMapFs(), "/blobs")
	require.NoError(t, err)

	bookingRepo := repository.NewBookingRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	compensationRepo := repository.NewCompensationRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	propertyCatalog := catalog.NewPropertyCatalog(repository.NewPropertyRepository(db), 100, time.Minute, logger)

	settlement := application.NewSettlementService(paymentRepo, adapter.NewMockPaymentGateway(logger), tx,
		scheduler.NewScheduler(db, clk), publisher, clk, application.SettlementConfig{
			Currency:     "RUB",
			ReturnURL:    "https://dailyrent.test/return",
			InitialDelay: 200 * time.Millisecond,
			PollInterval: 200 * time.Millisecond,
			MaxAttempts:  10,
		}, logger)

	dispatcher := scheduler.NewDispatcher(db, clk, scheduler.DispatcherConfig{
		Tick:  100 * time.Millisecond,
		Batch: 10,
		Lease: time.Minute,
	}, logger)
	dispatcher.Register(application.TaskPollPaymentStatus, settlement.HandlePollTask)

	groupID := fmt.Sprintf("test-booking-%s", uuid.New().String()[:8])

	return &bookingStack{
		Bookings: application.NewBookingService(bookingRepo, paymentRepo, compensationRepo, propertyCatalog,
			settlement, tx, publisher, clk, logger),
		Compensations: application.NewCompensationService(compensationRepo, bookingRepo, paymentRepo,
			propertyCatalog, ledgerRepo, blobs, tx, publisher, clk, logger),
		Catalog:    propertyCatalog,
		Consumer:   events.NewPropertyEventConsumer(brokers, groupID, propertyCatalog, logger),
		Dispatcher: dispatcher,
		Cleanup: func() {
			dispatcher.Stop()
			propertyCatalog.Stop()
			_ = producer.Close()
		},
	}
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, ce)
	require.NoError(t, err, "failed to publish event")
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the
// expected type that satisfies match.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration, match func(kafka.CloudEvent) bool) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType && (match == nil || match(ce)) {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	require.NoError(t, controllerConn.CreateTopics(topicConfigs...), "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
