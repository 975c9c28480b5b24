package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	StoreDriverBolt   = "bolt"
	StoreDriverRedis  = "redis"
	StoreDriverMemory = "memory"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Store       StoreConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Archive     ArchiveConfig
	NATS        NATSConfig
	Payment     PaymentConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
}

type HTTPConfig struct {
	Host          string
	Port          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	MaxConn       int
	EnablePprof   bool
	EnableMetrics bool
}

// StoreConfig selects where the active transaction lives.
// Strict mode surfaces persistence failures instead of logging them.
type StoreConfig struct {
	Driver string
	Path   string
	Key    string
	Strict bool
}

type DatabaseConfig struct {
	Enabled         bool
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SSLMode         string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

// ArchiveConfig drives the outbox drain of closed transactions into Postgres.
type ArchiveConfig struct {
	Enabled        bool
	SyncInterval   time.Duration
	BatchSize      int
	MaxRetry       int
	RetentionHours int

	// Schedule is a cron spec with seconds; when set it replaces SyncInterval.
	Schedule string
}

type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

type PaymentConfig struct {
	Timeout       time.Duration
	MaxAttempts   int
	BaseBackoff   time.Duration
	MaxBackoff    time.Duration
	StandardPrice decimal.Decimal
	PremiumPrice  decimal.Decimal
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type MigrationsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from environment variables (optionally .env)
// and applies sane defaults so the service can boot in any environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "boatclosers"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:          getString("SERVER_HOST", "0.0.0.0"),
			Port:          getString("SERVER_PORT", "8080"),
			ReadTimeout:   getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:  getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:   getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			MaxConn:       getInt("SERVER_MAX_CONN", 0),
			EnablePprof:   getBool("SERVER_ENABLE_PPROF", false),
			EnableMetrics: getBool("SERVER_ENABLE_METRICS", true),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getString("STORE_DRIVER", StoreDriverBolt)),
			Path:   getString("BOLTDB_PATH", "./data/boatclosers.db"),
			Key:    getString("STORE_KEY", "boatclosers_transaction"),
			Strict: getBool("STORE_STRICT", false),
		},
		Database: DatabaseConfig{
			Enabled:         getBool("DB_ENABLED", false),
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getString("DB_HOST", "localhost"),
			Port:            getString("DB_PORT", "5432"),
			Name:            getString("DB_NAME", "boatclosers"),
			User:            getString("DB_USER", "boatclosers"),
			Password:        os.Getenv("DB_PASSWORD"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 2),
			MaxConnLifetime: getDuration("DB_CONN_LIFETIME", time.Hour),
			SSLMode:         getString("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getString("REDIS_URL", "redis://localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			Issuer: getString("JWT_ISSUER", "boatclosers"),
		},
		Archive: ArchiveConfig{
			Enabled:        getBool("ARCHIVE_ENABLED", false),
			SyncInterval:   getDuration("ARCHIVE_SYNC_INTERVAL", 30*time.Second),
			Schedule:       os.Getenv("ARCHIVE_SCHEDULE"),
			BatchSize:      getInt("ARCHIVE_BATCH_SIZE", 20),
			MaxRetry:       getInt("ARCHIVE_MAX_RETRY", 5),
			RetentionHours: getInt("ARCHIVE_RETENTION_HOURS", 24*7),
		},
		NATS: NATSConfig{
			URL:           os.Getenv("NATS_URL"),
			SubjectPrefix: getString("NATS_SUBJECT_PREFIX", "boatclosers"),
		},
		Payment: PaymentConfig{
			Timeout:       getDuration("PAYMENT_TIMEOUT", 10*time.Second),
			MaxAttempts:   getInt("PAYMENT_MAX_ATTEMPTS", 3),
			BaseBackoff:   getDuration("PAYMENT_BASE_BACKOFF", 200*time.Millisecond),
			MaxBackoff:    getDuration("PAYMENT_MAX_BACKOFF", 5*time.Second),
			StandardPrice: getDecimal("PLAN_STANDARD_PRICE", decimal.NewFromInt(149)),
			PremiumPrice:  getDecimal("PLAN_PREMIUM_PRICE", decimal.NewFromInt(249)),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 5*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Migrations: MigrationsConfig{
			Enabled: getBool("RUN_MIGRATIONS", true),
			Path:    getString("MIGRATIONS_PATH", "./assets/migrations"),
		},
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = buildPostgresURL(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var problems []string

	switch c.Store.Driver {
	case StoreDriverBolt:
		if c.Store.Path == "" {
			problems = append(problems, "BOLTDB_PATH is required for the bolt store")
		}
	case StoreDriverRedis:
		if c.Redis.URL == "" {
			problems = append(problems, "REDIS_URL is required for the redis store")
		}
	case StoreDriverMemory:
	default:
		problems = append(problems, fmt.Sprintf("STORE_DRIVER must be one of %q, %q, %q, got %q",
			StoreDriverBolt, StoreDriverRedis, StoreDriverMemory, c.Store.Driver))
	}
	if c.Store.Key == "" {
		problems = append(problems, "STORE_KEY cannot be empty")
	}
	if !c.Payment.StandardPrice.IsPositive() {
		problems = append(problems, "PLAN_STANDARD_PRICE must be positive")
	}
	if !c.Payment.PremiumPrice.IsPositive() {
		problems = append(problems, "PLAN_PREMIUM_PRICE must be positive")
	}
	if c.Payment.MaxAttempts < 1 {
		problems = append(problems, "PAYMENT_MAX_ATTEMPTS must be at least 1")
	}
	if c.Archive.Enabled && !c.Database.Enabled {
		problems = append(problems, "ARCHIVE_ENABLED requires DB_ENABLED")
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

func buildPostgresURL(cfg *Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func getDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	if val := os.Getenv(key); val != "" {
		if parsed, err := decimal.NewFromString(val); err == nil {
			return parsed
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
