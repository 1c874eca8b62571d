package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	HTTPAddr string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	// Health monitor settings.
	HealthInterval     time.Duration
	HealthProbeTimeout time.Duration

	// Dispatch settings.
	DispatchSendTimeout       time.Duration
	DispatchMaxAttempts       int
	DispatchRetryDelay        time.Duration
	DispatchInterPrinterDelay time.Duration
	DispatchConcurrency       int

	// FallbackPrinterID receives order lines with no matching assignment.
	// Zero means no fallback is configured.
	FallbackPrinterID int64
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "printfan"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		HTTPAddr: getenv("HTTP_ADDR", ":8080"),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "sqlite"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "printfan.db"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 2),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 10),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),

		HealthInterval:     getenvDuration("HEALTH_INTERVAL", 90*time.Second),
		HealthProbeTimeout: getenvDuration("HEALTH_PROBE_TIMEOUT", 3*time.Second),

		DispatchSendTimeout:       getenvDuration("DISPATCH_SEND_TIMEOUT", 12*time.Second),
		DispatchMaxAttempts:       getenvInt("DISPATCH_MAX_ATTEMPTS", 3),
		DispatchRetryDelay:        getenvDuration("DISPATCH_RETRY_DELAY", 500*time.Millisecond),
		DispatchInterPrinterDelay: getenvDuration("DISPATCH_INTER_PRINTER_DELAY", 200*time.Millisecond),
		DispatchConcurrency:       getenvInt("DISPATCH_CONCURRENCY", 1),

		FallbackPrinterID: getenvInt64("FALLBACK_PRINTER_ID", 0),
	}
}

var Module = fx.Module("config",
	fx.Provide(Load),
)

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
