package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	defaultJWTSecret    = "supersecret"
	defaultTicketSecret = "ticketsecret"
)

// DBConfig holds the postgres connection settings.
type DBConfig struct {
	Host     string `validate:"required"`
	Port     string `validate:"required,numeric"`
	User     string `validate:"required"`
	Password string
	Name     string `validate:"required"`
	SSLMode  string `validate:"oneof=disable allow prefer require verify-ca verify-full"`
	TimeZone string
}

// AppConfig is the whole runtime configuration, read from the environment.
type AppConfig struct {
	Addr     string `validate:"required"`
	DB       DBConfig
	LogFile  string `validate:"required"`
	LogLevel string `validate:"oneof=debug info warn error"`

	JWTSecret    string        `validate:"required,min=8"`
	TokenTTL     time.Duration `validate:"gt=0"`
	TicketSecret string        `validate:"required,min=8"`

	LedgerCacheSize int           `validate:"gte=0"`
	LedgerCacheTTL  time.Duration `validate:"gte=0"`

	// Requests per minute per client on the public fare endpoints; 0 disables limiting.
	FareRateLimit      int `validate:"gte=0"`
	CompressionMinSize int `validate:"gte=0"`

	// Proxies whose X-Forwarded-For is believed; empty trusts none.
	TrustedProxies []string `validate:"dive,cidr|ip"`
	// Browser origins allowed to call the API; "*" allows any.
	CORSOrigins []string `validate:"dive,required"`

	OtelMetrics  bool
	OtelTracing  bool
	OtelEndpoint string `validate:"required_if=OtelMetrics true,required_if=OtelTracing true"`
	OtelInsecure bool
}

// Load reads .env (if present) and the environment into an AppConfig and
// validates it.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found – relying on env vars")
	}

	cfg := &AppConfig{
		Addr: getEnv("HTTP_ADDR", "0.0.0.0:8080"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "password"),
			Name:     getEnv("DB_NAME", "bus_ticketing"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			TimeZone: getEnv("DB_TIMEZONE", "UTC"),
		},
		LogFile:  getEnv("LOG_FILE", "./logs/app.log"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		JWTSecret:    getEnv("JWT_SECRET", defaultJWTSecret),
		TokenTTL:     getEnvDuration("JWT_TTL", 72*time.Hour),
		TicketSecret: getEnv("TICKET_SECRET", defaultTicketSecret),

		LedgerCacheSize: getEnvInt("LEDGER_CACHE_SIZE", 1024),
		LedgerCacheTTL:  getEnvDuration("LEDGER_CACHE_TTL", 5*time.Minute),

		FareRateLimit:      getEnvInt("FARE_RATE_LIMIT", 120),
		CompressionMinSize: getEnvInt("COMPRESSION_MIN_SIZE", 1024),

		TrustedProxies: getEnvList("TRUSTED_PROXIES"),
		CORSOrigins:    getEnvList("CORS_ALLOWED_ORIGINS"),

		OtelMetrics:  getEnvBool("OTEL_METRICS_ENABLED", false),
		OtelTracing:  getEnvBool("OTEL_TRACING_ENABLED", false),
		OtelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		OtelInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == defaultJWTSecret || cfg.TicketSecret == defaultTicketSecret {
		logrus.Warn("Using built-in JWT or ticket secret; set JWT_SECRET and TICKET_SECRET in production")
	}
	return cfg, nil
}

// getEnv reads an environment variable or returns the provided default
func getEnv(key, defaultValue string) string {
	if v, exists := os.LookupEnv(key); exists {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logrus.WithField("key", key).Warnf("Ignoring non-integer value %q", v)
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	v, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logrus.WithField("key", key).Warnf("Ignoring non-boolean value %q", v)
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logrus.WithField("key", key).Warnf("Ignoring invalid duration %q", v)
		return defaultValue
	}
	return d
}

// getEnvList splits a comma separated variable, dropping blank entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
