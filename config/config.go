package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

type Config struct {
	DatabaseURL       string        `envconfig:"DATABASE_URL"         required:"true"`
	HTTPPort          string        `envconfig:"HTTP_PORT"            default:":8080"`
	GrpcPort          string        `envconfig:"GRPC_PORT"            default:":50051"` // empty disables the health server
	LogLevel          string        `envconfig:"LOG_LEVEL"            default:"info"`
	LogFormat         string        `envconfig:"LOG_FORMAT"           default:"text"`
	DBConnectTimeout  time.Duration `envconfig:"DB_CONNECT_TIMEOUT"   default:"10s"`
	DBMaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS"    default:"25"`
	DBMaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS"    default:"5"`
	DBConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	DBRunMigrations   bool          `envconfig:"DB_RUN_MIGRATIONS"    default:"true"`

	SessionCookieName string        `envconfig:"SESSION_COOKIE_NAME" default:"chucheritas_session"`
	SessionTTL        time.Duration `envconfig:"SESSION_TTL"         default:"24h"`
	SessionSecure     bool          `envconfig:"SESSION_SECURE"      default:"false"`
	BcryptCost        int           `envconfig:"BCRYPT_COST"         default:"10"`

	LowStockThreshold  int     `envconfig:"LOW_STOCK_THRESHOLD"   default:"10"`
	LoginRatePerSecond float64 `envconfig:"LOGIN_RATE_PER_SECOND" default:"1"`
	LoginBurst         int     `envconfig:"LOGIN_BURST"           default:"5"`

	KafkaBrokers        string        `envconfig:"KAFKA_BROKERS"`
	KafkaOrderTopic     string        `envconfig:"KAFKA_ORDER_TOPIC"     default:"chucheritas.orders"`
	HealthProbeInterval time.Duration `envconfig:"HEALTH_PROBE_INTERVAL" default:"15s"`
}

var (
	config  Config
	loadErr error
	once    sync.Once
)

// Process reads the environment into a fresh Config.
func Process() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration from environment variables: %w", err)
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, fmt.Errorf("configuration error: DATABASE_URL is not set")
	}
	if cfg.DBConnectTimeout <= 0 {
		return nil, fmt.Errorf("configuration error: DB_CONNECT_TIMEOUT must be positive")
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("configuration error: SESSION_TTL must be positive")
	}
	if cfg.LowStockThreshold <= 0 {
		return nil, fmt.Errorf("configuration error: LOW_STOCK_THRESHOLD must be positive")
	}
	return &cfg, nil
}

// LoadConfig loads .env (if present) and the environment once per process.
func LoadConfig(logger *logrus.Logger) (*Config, error) {
	once.Do(func() {
		err := godotenv.Load()
		if err != nil && !os.IsNotExist(err) {
			logger.Warnf("Error loading .env file (but continuing): %v", err)
		} else if err == nil {
			logger.Info("Loaded configuration from .env file")
		}

		cfg, err := Process()
		if err != nil {
			loadErr = err
			return
		}
		config = *cfg

		logger.Infof("Configuration loaded: HTTP Port=%s, GRPC Port=%s, LogLevel=%s", config.HTTPPort, config.GrpcPort, config.LogLevel)
		logger.Info("Configuration loaded: DatabaseURL is set")
		if config.KafkaBrokers == "" {
			logger.Info("Configuration loaded: KAFKA_BROKERS not set, order events disabled")
		}
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return &config, nil
}
