package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// devJWTSecret is only accepted outside production.
const devJWTSecret = "a-very-secret-key-should-be-longer-and-random"

// ErrInsecureJWTSecret is returned when production runs without its own JWT_SECRET.
var ErrInsecureJWTSecret = errors.New("JWT_SECRET must be set to a non-default value in production")

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	Port          string
	IsProduction  bool
	EnableDBCheck bool
	LogFile       string
	LogLevel      string

	// Operator auth. Tokens are minted by the external identity provider.
	JWTSecret string
	JWTIssuer string
	AdminRole string
	// bcrypt hash of the token used by the settlement worker
	ServiceTokenHash string

	CORSAllowedOrigins []string
	RateLimit          string // ulule/limiter format, e.g. "20-M"

	QuoteValidity time.Duration
	SweepInterval time.Duration

	PriceFeedURL       string
	PriceFeedAPIKey    string
	PriceFeedTimeout   time.Duration
	PriceFeedRPS       float64
	PriceCacheTTL      time.Duration
	PriceCacheMaxStale time.Duration
	PriceWarmInterval  time.Duration

	// OpenTelemetry trace export over OTLP/HTTP
	ServiceName      string
	TracingEnabled   bool
	OTLPEndpoint     string
	OTLPInsecure     bool
	OTLPHeaders      string
	TraceSampleRatio float64

	// Symbol -> price feed id, and symbol -> deposit address
	PriceIDs         map[string]string
	DepositAddresses map[string]string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("LOG_FILE", "")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("JWT_ISSUER", "")
	viper.SetDefault("ADMIN_ROLE", "admin")
	viper.SetDefault("SERVICE_TOKEN_HASH", "")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("RATE_LIMIT", "30-M")
	viper.SetDefault("QUOTE_VALIDITY", "10m")
	viper.SetDefault("SWEEP_INTERVAL", "1m")
	viper.SetDefault("PRICE_FEED_URL", "https://api.coingecko.com/api/v3")
	viper.SetDefault("PRICE_FEED_API_KEY", "")
	viper.SetDefault("PRICE_FEED_TIMEOUT", "5s")
	viper.SetDefault("PRICE_FEED_RPS", 0.5)
	viper.SetDefault("PRICE_CACHE_TTL", "60s")
	viper.SetDefault("PRICE_CACHE_MAX_STALE", "15m")
	viper.SetDefault("PRICE_WARM_INTERVAL", "45s")
	viper.SetDefault("PRICE_ID_OVERRIDES", "")
	viper.SetDefault("OTEL_SERVICE_NAME", "swap-backend")
	viper.SetDefault("OTEL_TRACES_ENABLED", false)
	viper.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	viper.SetDefault("OTEL_EXPORTER_OTLP_HEADERS", "")
	viper.SetDefault("OTEL_TRACES_SAMPLE_RATIO", 1.0)

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080" // Default port
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")
	cfg.LogFile = viper.GetString("LOG_FILE")
	cfg.LogLevel = strings.ToLower(viper.GetString("LOG_LEVEL"))

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.IsProduction && (cfg.JWTSecret == "" || cfg.JWTSecret == devJWTSecret) {
		return nil, ErrInsecureJWTSecret
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = devJWTSecret
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")
	cfg.AdminRole = viper.GetString("ADMIN_ROLE")
	cfg.ServiceTokenHash = viper.GetString("SERVICE_TOKEN_HASH")
	if cfg.ServiceTokenHash == "" {
		log.Println("Warning: SERVICE_TOKEN_HASH not set. Settlement signals will be rejected.")
	}

	cfg.CORSAllowedOrigins = splitList(viper.GetString("CORS_ALLOWED_ORIGINS"))
	cfg.RateLimit = viper.GetString("RATE_LIMIT")

	cfg.QuoteValidity = parseDuration("QUOTE_VALIDITY", 10*time.Minute)
	cfg.SweepInterval = parseDuration("SWEEP_INTERVAL", time.Minute)

	cfg.PriceFeedURL = strings.TrimRight(viper.GetString("PRICE_FEED_URL"), "/")
	cfg.PriceFeedAPIKey = viper.GetString("PRICE_FEED_API_KEY")
	cfg.PriceFeedTimeout = parseDuration("PRICE_FEED_TIMEOUT", 5*time.Second)
	cfg.PriceFeedRPS = viper.GetFloat64("PRICE_FEED_RPS")
	if cfg.PriceFeedRPS <= 0 {
		log.Printf("Warning: Invalid value for PRICE_FEED_RPS (%v). Defaulting to 0.5.\n", cfg.PriceFeedRPS)
		cfg.PriceFeedRPS = 0.5
	}
	cfg.PriceCacheTTL = parseDuration("PRICE_CACHE_TTL", 60*time.Second)
	cfg.PriceCacheMaxStale = parseDuration("PRICE_CACHE_MAX_STALE", 15*time.Minute)
	if cfg.PriceCacheMaxStale < cfg.PriceCacheTTL {
		cfg.PriceCacheMaxStale = cfg.PriceCacheTTL
	}
	cfg.PriceWarmInterval = parseDuration("PRICE_WARM_INTERVAL", 45*time.Second)

	cfg.ServiceName = viper.GetString("OTEL_SERVICE_NAME")
	cfg.TracingEnabled = viper.GetBool("OTEL_TRACES_ENABLED")
	cfg.OTLPEndpoint = viper.GetString("OTEL_EXPORTER_OTLP_ENDPOINT")
	cfg.OTLPInsecure = viper.GetBool("OTEL_EXPORTER_OTLP_INSECURE")
	cfg.OTLPHeaders = viper.GetString("OTEL_EXPORTER_OTLP_HEADERS")
	cfg.TraceSampleRatio = viper.GetFloat64("OTEL_TRACES_SAMPLE_RATIO")
	if cfg.TraceSampleRatio <= 0 || cfg.TraceSampleRatio > 1 {
		log.Printf("Warning: Invalid value for OTEL_TRACES_SAMPLE_RATIO (%v). Defaulting to 1.\n", cfg.TraceSampleRatio)
		cfg.TraceSampleRatio = 1
	}

	cfg.PriceIDs = priceIDs(viper.GetString("PRICE_ID_OVERRIDES"))
	cfg.DepositAddresses = depositAddresses(cfg.PriceIDs)

	return cfg, nil
}

// Environment names the deployment for telemetry resources.
func (c *Config) Environment() string {
	if c.IsProduction {
		return "production"
	}
	return "development"
}

// parseDuration reads key as a Go duration, falling back to def with a warning.
// A literal "0" disables the feature that uses it.
func parseDuration(key string, def time.Duration) time.Duration {
	raw := viper.GetString(key)
	if raw == "0" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, def.String())
		}
		return def
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
