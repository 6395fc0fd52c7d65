// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/text/currency"
)

type StoreKind string

const (
	StoreMongo  StoreKind = "mongo"
	StoreMemory StoreKind = "memory"
)

// CartClearPolicy decides when a placed order empties the user's cart.
type CartClearPolicy string

const (
	ClearOnPlace CartClearPolicy = "on_place"
	ClearOnPaid  CartClearPolicy = "on_paid"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"foodorder"`
	Env         string `env:"ENV" envDefault:"dev"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile     string `env:"LOG_FILE"`

	Store         StoreKind `env:"STORE" envDefault:"mongo"`
	MongoURI      string    `env:"MONGO_URI"`
	MongoDatabase string    `env:"MONGO_DATABASE" envDefault:"food"`

	JWTSecret   string        `env:"JWT_SECRET"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"1h"`
	BcryptCost  int           `env:"BCRYPT_COST" envDefault:"10"`
	AdminAPIKey string        `env:"ADMIN_API_KEY"`

	StripeSecretKey  string          `env:"STRIPE_SECRET_KEY"`
	PaymentCurrency  string          `env:"PAYMENT_CURRENCY" envDefault:"inr"`
	DeliveryFeeMinor int64           `env:"DELIVERY_FEE_MINOR" envDefault:"200"`
	FrontendURL      string          `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	CartClearPolicy  CartClearPolicy `env:"CART_CLEAR_POLICY" envDefault:"on_place"`

	UploadDir    string        `env:"UPLOAD_DIR" envDefault:"uploads"`
	RedisURL     string        `env:"REDIS_URL"`
	MenuCacheTTL time.Duration `env:"MENU_CACHE_TTL" envDefault:"5m"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	OTelExporterEndpoint string        `env:"OTEL_EXPORTER_ENDPOINT"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads an optional .env file, parses the environment and validates the result.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the process environment without touching .env files.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	cfg.PaymentCurrency = strings.ToLower(strings.TrimSpace(cfg.PaymentCurrency))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.Store {
	case StoreMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required when STORE=mongo"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE must be %q or %q, got %q", StoreMongo, StoreMemory, c.Store))
	}
	switch c.CartClearPolicy {
	case ClearOnPlace, ClearOnPaid:
	default:
		errs = append(errs, fmt.Errorf("CART_CLEAR_POLICY must be %q or %q, got %q", ClearOnPlace, ClearOnPaid, c.CartClearPolicy))
	}
	if _, err := currency.ParseISO(strings.ToUpper(c.PaymentCurrency)); err != nil {
		errs = append(errs, fmt.Errorf("PAYMENT_CURRENCY %q is not an ISO 4217 code", c.PaymentCurrency))
	}
	if c.DeliveryFeeMinor < 0 {
		errs = append(errs, errors.New("DELIVERY_FEE_MINOR must not be negative"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address derived from Port.
func (c Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
