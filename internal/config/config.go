// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dailyrent/service-booking/pkg/database"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// KafkaConfig holds broker settings.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// GroupID returns the consumer group for a named consumer.
func (k KafkaConfig) GroupID(name string) string {
	return k.GroupPrefix + "." + name
}

// PaymentConfig holds gateway and polling settings.
type PaymentConfig struct {
	BaseURL      string
	ShopID       string
	SecretKey    string
	ReturnURL    string
	Currency     string
	Mock         bool
	PollInterval time.Duration
	InitialDelay time.Duration
	MaxAttempts  int
}

// SchedulerConfig tunes the durable task dispatcher.
type SchedulerConfig struct {
	Tick  time.Duration
	Batch int
	Lease time.Duration
}

// BlobConfig selects and configures the proof photo store.
type BlobConfig struct {
	Driver         string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	LocalDir       string
}

// CatalogConfig sizes the property catalog cache.
type CatalogConfig struct {
	CacheTTL  time.Duration
	CacheSize int64
}

// ServiceConfig holds all configuration for the booking service.
type ServiceConfig struct {
	Port          string
	AppEnv        string
	DBConfig      database.PostgresConfig
	JWTSecret     string
	MigrationsDir string
	Kafka         KafkaConfig
	Payment       PaymentConfig
	Scheduler     SchedulerConfig
	Blob          BlobConfig
	Catalog       CatalogConfig
}

// Load reads .env (when present) and the environment.
func Load() (*ServiceConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("SERVICE_PORT", "8080")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "dailyrent_booking")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_PREFIX", "service-booking")
	v.SetDefault("PAYMENT_BASE_URL", "https://api.yookassa.ru/v3")
	v.SetDefault("PAYMENT_CURRENCY", "RUB")
	v.SetDefault("PAYMENT_MOCK", false)
	v.SetDefault("PAYMENT_POLL_INTERVAL", "5m")
	v.SetDefault("PAYMENT_POLL_INITIAL_DELAY", "1m")
	v.SetDefault("PAYMENT_POLL_MAX_ATTEMPTS", 10)
	v.SetDefault("SCHEDULER_TICK", "5s")
	v.SetDefault("SCHEDULER_BATCH", 50)
	v.SetDefault("SCHEDULER_LEASE", "2m")
	v.SetDefault("BLOB_DRIVER", "minio")
	v.SetDefault("MINIO_BUCKET", "compensation-proofs")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("BLOB_LOCAL_DIR", "data/blobs")
	v.SetDefault("CATALOG_CACHE_TTL", "5m")
	v.SetDefault("CATALOG_CACHE_SIZE", 10000)
	return v
}

// FromViper builds a ServiceConfig from v and validates it.
func FromViper(v *viper.Viper) (*ServiceConfig, error) {
	cfg := &ServiceConfig{
		Port:   v.GetString("SERVICE_PORT"),
		AppEnv: v.GetString("APP_ENV"),
		DBConfig: database.PostgresConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		JWTSecret:     v.GetString("JWT_SECRET"),
		MigrationsDir: v.GetString("MIGRATIONS_DIR"),
		Kafka: KafkaConfig{
			Brokers:     splitList(v.GetString("KAFKA_BROKERS")),
			GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
		},
		Payment: PaymentConfig{
			BaseURL:      strings.TrimRight(v.GetString("PAYMENT_BASE_URL"), "/"),
			ShopID:       v.GetString("PAYMENT_SHOP_ID"),
			SecretKey:    v.GetString("PAYMENT_SECRET_KEY"),
			ReturnURL:    v.GetString("PAYMENT_RETURN_URL"),
			Currency:     strings.ToUpper(v.GetString("PAYMENT_CURRENCY")),
			Mock:         v.GetBool("PAYMENT_MOCK"),
			PollInterval: v.GetDuration("PAYMENT_POLL_INTERVAL"),
			InitialDelay: v.GetDuration("PAYMENT_POLL_INITIAL_DELAY"),
			MaxAttempts:  v.GetInt("PAYMENT_POLL_MAX_ATTEMPTS"),
		},
		Scheduler: SchedulerConfig{
			Tick:  v.GetDuration("SCHEDULER_TICK"),
			Batch: v.GetInt("SCHEDULER_BATCH"),
			Lease: v.GetDuration("SCHEDULER_LEASE"),
		},
		Blob: BlobConfig{
			Driver:         strings.ToLower(v.GetString("BLOB_DRIVER")),
			MinioEndpoint:  v.GetString("MINIO_ENDPOINT"),
			MinioAccessKey: v.GetString("MINIO_ACCESS_KEY"),
			MinioSecretKey: v.GetString("MINIO_SECRET_KEY"),
			MinioBucket:    v.GetString("MINIO_BUCKET"),
			MinioUseSSL:    v.GetBool("MINIO_USE_SSL"),
			LocalDir:       v.GetString("BLOB_LOCAL_DIR"),
		},
		Catalog: CatalogConfig{
			CacheTTL:  v.GetDuration("CATALOG_CACHE_TTL"),
			CacheSize: v.GetInt64("CATALOG_CACHE_SIZE"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ServiceConfig) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if len(c.Kafka.Brokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}
	if !c.Payment.Mock && (c.Payment.ShopID == "" || c.Payment.SecretKey == "") {
		return errors.New("PAYMENT_SHOP_ID and PAYMENT_SECRET_KEY are required unless PAYMENT_MOCK is set")
	}
	if c.Payment.MaxAttempts <= 0 {
		return fmt.Errorf("PAYMENT_POLL_MAX_ATTEMPTS must be positive, got %d", c.Payment.MaxAttempts)
	}
	switch c.Blob.Driver {
	case "minio":
		if c.Blob.MinioEndpoint == "" {
			return errors.New("MINIO_ENDPOINT is required for the minio blob driver")
		}
	case "local":
	default:
		return fmt.Errorf("unknown BLOB_DRIVER %q", c.Blob.Driver)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
