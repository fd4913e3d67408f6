// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is the whole process configuration, read from the environment.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" env-default:":8080"`

	Database  DatabaseConfig
	Queue     QueueConfig
	Auth      AuthConfig
	Vendor    VendorConfig
	Dispatch  DispatchConfig
	Reconcile ReconcileConfig
	Log       LogConfig
}

type DatabaseConfig struct {
	// URL wins over the individual DB_* parts when set.
	URL      string `env:"DATABASE_URL"`
	Host     string `env:"DB_HOST" env-default:"localhost"`
	Port     string `env:"DB_PORT" env-default:"5432"`
	User     string `env:"DB_USER" env-default:"postgres"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME" env-default:"crm"`
	SSLMode  string `env:"DB_SSLMODE" env-default:"disable"`

	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"1h"`
}

// DSN builds a lib/pq connection URL.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

type QueueConfig struct {
	// AMQPURL switches the pipeline to RabbitMQ; empty keeps it in-process.
	AMQPURL    string        `env:"AMQP_URL"`
	Mode       string        `env:"QUEUE_MODE" env-default:"sync"`
	MaxRetries int           `env:"QUEUE_MAX_RETRIES" env-default:"3"`
	RetryDelay time.Duration `env:"QUEUE_RETRY_DELAY" env-default:"500ms"`
	Prefetch   int           `env:"QUEUE_PREFETCH" env-default:"20"`
}

type AuthConfig struct {
	JWTSecret string `env:"AUTH_JWT_SECRET"`
	JWTIssuer string `env:"AUTH_JWT_ISSUER"`
}

type VendorConfig struct {
	Timeout     time.Duration `env:"VENDOR_TIMEOUT" env-default:"3s"`
	SuccessRate float64       `env:"VENDOR_SUCCESS_RATE" env-default:"0.9"`
}

// MaxDispatchBatchSize keeps one multi-row log insert (7 parameters per row)
// under Postgres' 65535 bind parameter limit.
const MaxDispatchBatchSize = 9000

type DispatchConfig struct {
	BatchSize int `env:"DISPATCH_BATCH_SIZE" env-default:"500"`
}

type ReconcileConfig struct {
	Schedule   string        `env:"RECONCILE_SCHEDULE" env-default:"@every 5m"`
	StaleAfter time.Duration `env:"RECONCILE_STALE_AFTER" env-default:"10m"`
	BatchSize  int           `env:"RECONCILE_BATCH_SIZE" env-default:"200"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"text"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, relying on OS environment variables")
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Vendor.SuccessRate < 0 || c.Vendor.SuccessRate > 1 {
		errs = append(errs, fmt.Errorf("VENDOR_SUCCESS_RATE must be within [0,1], got %v", c.Vendor.SuccessRate))
	}
	if c.Vendor.Timeout <= 0 {
		errs = append(errs, errors.New("VENDOR_TIMEOUT must be positive"))
	}
	if c.Dispatch.BatchSize <= 0 || c.Dispatch.BatchSize > MaxDispatchBatchSize {
		errs = append(errs, fmt.Errorf("DISPATCH_BATCH_SIZE must be within [1,%d], got %d", MaxDispatchBatchSize, c.Dispatch.BatchSize))
	}
	if c.Queue.MaxRetries < 0 {
		errs = append(errs, errors.New("QUEUE_MAX_RETRIES must not be negative"))
	}
	switch strings.ToLower(c.Queue.Mode) {
	case "sync", "async":
	default:
		errs = append(errs, fmt.Errorf("QUEUE_MODE must be sync or async, got %q", c.Queue.Mode))
	}
	if c.Reconcile.Schedule != "" && c.Reconcile.StaleAfter <= 0 {
		errs = append(errs, errors.New("RECONCILE_STALE_AFTER must be positive when reconciliation is scheduled"))
	}
	if c.Reconcile.Schedule != "" && c.Reconcile.BatchSize <= 0 {
		errs = append(errs, errors.New("RECONCILE_BATCH_SIZE must be positive when reconciliation is scheduled"))
	}

	return errors.Join(errs...)
}
