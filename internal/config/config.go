// Package config reads the service configuration from the environment.
// Binaries load a .env file first (godotenv autoload).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"conekta-checkout/internal/domain"

	"github.com/go-playground/validator/v10"
)

const (
	MinExpirationDays = 1
	MaxExpirationDays = 30
)

type Config struct {
	HTTPAddr        string             `validate:"required"`
	CORSOrigins     []string           `validate:"dive,url"`
	LogLevel        string             `validate:"oneof=debug info warn error"`
	PlatformVersion string             `validate:"required"`
	PaidStatus      domain.OrderStatus `validate:"oneof=processing completed"`

	Processor ProcessorConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Reconcile ReconcileConfig

	Cash GatewaySettings
	BNPL GatewaySettings
}

type ProcessorConfig struct {
	BaseURL string        `validate:"required,url"`
	Timeout time.Duration `validate:"gt=0"`
	Locale  string        `validate:"required"`
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		d.Username, d.Password, d.Host, d.Port, d.Database, d.Schema,
	)
}

// Addr empty disables the webhook delivery guard.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int `validate:"gte=0"`
}

// URL empty disables status event publishing.
type NATSConfig struct {
	URL     string
	Subject string
}

// Interval zero disables the reconciliation worker.
type ReconcileConfig struct {
	Interval   time.Duration `validate:"gte=0"`
	StaleAfter time.Duration `validate:"gte=0"`
}

// GatewaySettings is what an administrator configures per gateway.
type GatewaySettings struct {
	Kind              domain.GatewayKind `validate:"oneof=cash bnpl"`
	ID                string             `validate:"required"`
	Name              string             `validate:"required"`
	Enabled           bool
	Title             string `validate:"required"`
	Description       string
	APIKey            string
	WebhookURL        string `validate:"omitempty,url"`
	ExpirationDays    int    `validate:"min=1,max=30"`
	AlternateImageURL string `validate:"omitempty,url"`
	// Instructions is shown to cash customers next to their reference.
	Instructions string
	Icon         string
}

// Available reports whether the gateway may be offered for an order in the
// given currency.
func (g GatewaySettings) Available(currency string) bool {
	return g.Enabled && g.APIKey != "" && g.Kind.SupportsCurrency(strings.ToUpper(currency))
}

// Problems lists why a gateway would disable itself, ignoring currency.
func (g GatewaySettings) Problems() []*domain.ConfigurationError {
	var errs []*domain.ConfigurationError
	if !g.Enabled {
		errs = append(errs, &domain.ConfigurationError{Gateway: g.ID, Reason: "disabled"})
	}
	if g.APIKey == "" {
		errs = append(errs, &domain.ConfigurationError{Gateway: g.ID, Reason: "missing api key"})
	}
	return errs
}

// IconURL prefers the alternate image when one is configured.
func (g GatewaySettings) IconURL() string {
	if g.AlternateImageURL != "" {
		return g.AlternateImageURL
	}
	return g.Icon
}

// ClampExpirationDays keeps the order expiration inside what the processor accepts.
func ClampExpirationDays(days int) int {
	if days < MinExpirationDays {
		return MinExpirationDays
	}
	if days > MaxExpirationDays {
		return MaxExpirationDays
	}
	return days
}

func Load() (*Config, error) {
	sharedKey := os.Getenv("CONEKTA_API_KEY")

	cfg := &Config{
		HTTPAddr:        envOr("HTTP_ADDR", ":8080"),
		CORSOrigins:     splitList(os.Getenv("CORS_ORIGINS")),
		LogLevel:        strings.ToLower(envOr("LOG_LEVEL", "info")),
		PlatformVersion: envOr("PLATFORM_VERSION", "8.0.0"),
		PaidStatus:      domain.OrderStatus(envOr("PAID_STATUS", string(domain.OrderProcessing))),
		Processor: ProcessorConfig{
			BaseURL: envOr("PROCESSOR_BASE_URL", "https://api.conekta.io"),
			Timeout: envDuration("PROCESSOR_TIMEOUT", 30*time.Second),
			Locale:  envOr("PROCESSOR_LOCALE", "es"),
		},
		Database: DatabaseConfig{
			Host:     os.Getenv("BLUEPRINT_DB_HOST"),
			Port:     envOr("BLUEPRINT_DB_PORT", "5432"),
			Database: os.Getenv("BLUEPRINT_DB_DATABASE"),
			Username: os.Getenv("BLUEPRINT_DB_USERNAME"),
			Password: os.Getenv("BLUEPRINT_DB_PASSWORD"),
			Schema:   envOr("BLUEPRINT_DB_SCHEMA", "public"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envInt("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			URL:     os.Getenv("NATS_URL"),
			Subject: envOr("NATS_SUBJECT", "orders.status"),
		},
		Reconcile: ReconcileConfig{
			Interval:   envDuration("RECONCILE_INTERVAL", 0),
			StaleAfter: envDuration("RECONCILE_STALE_AFTER", 15*time.Minute),
		},
		Cash: GatewaySettings{
			Kind:              domain.GatewayCash,
			ID:                domain.CashGatewayID,
			Name:              domain.CashGatewayName,
			Enabled:           envBool("CASH_ENABLED", true),
			Title:             envOr("CASH_TITLE", "Efectivo"),
			Description:       envOr("CASH_DESCRIPTION", "Paga con efectivo en más de 10 mil puntos de venta"),
			APIKey:            envOr("CASH_API_KEY", sharedKey),
			WebhookURL:        os.Getenv("CASH_WEBHOOK_URL"),
			ExpirationDays:    ClampExpirationDays(envInt("CASH_ORDER_EXPIRATION", 1)),
			AlternateImageURL: os.Getenv("CASH_ALTERNATE_IMAGE_URL"),
			Instructions:      envOr("CASH_INSTRUCTIONS", "Por favor realiza el pago en la tienda más cercana utilizando la referencia que se encuentra a continuación."),
			Icon:              "/images/cash.png",
		},
		BNPL: GatewaySettings{
			Kind:              domain.GatewayBNPL,
			ID:                domain.BNPLGatewayID,
			Name:              domain.BNPLGatewayName,
			Enabled:           envBool("BNPL_ENABLED", true),
			Title:             envOr("BNPL_TITLE", "Pago en Plazos"),
			Description:       envOr("BNPL_DESCRIPTION", "Paga en Plazos con Conekta"),
			APIKey:            envOr("BNPL_API_KEY", sharedKey),
			WebhookURL:        os.Getenv("BNPL_WEBHOOK_URL"),
			ExpirationDays:    ClampExpirationDays(envInt("BNPL_ORDER_EXPIRATION", 2)),
			AlternateImageURL: os.Getenv("BNPL_ALTERNATE_IMAGE_URL"),
			Icon:              "/images/credits.png",
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Gateways returns the settings of every gateway in a stable order.
func (c *Config) Gateways() []GatewaySettings {
	return []GatewaySettings{c.Cash, c.BNPL}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
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
