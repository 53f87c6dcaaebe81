package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile             = ".env"
	defaultPort                = "8080"
	defaultReadTimeout         = 15 * time.Second
	defaultWriteTimeout        = 30 * time.Second
	defaultIdleTimeout         = 120 * time.Second
	defaultStrapiTimeout       = 15 * time.Second
	defaultWooTimeout          = 15 * time.Second
	defaultWooWriteTimeout     = 30 * time.Second
	defaultShipitTimeout       = 20 * time.Second
	defaultOpenFacturaTimeout  = 20 * time.Second
	defaultTaxRatePercent      = 19.0
	defaultSessionTTL          = 12 * time.Hour
	defaultReceiptBusinessName = "Andes Gear"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Strapi      StrapiConfig
	WooCommerce WooCommerceConfig
	Shipit      ShipitConfig
	OpenFactura OpenFacturaConfig
	POS         POSConfig
	Features    FeatureFlags
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// StrapiConfig stores connection settings for the content store.
type StrapiConfig struct {
	BaseURL  string
	APIToken string
	Timeout  time.Duration
}

// WooCommerceConfig stores connection settings for the storefront REST API.
type WooCommerceConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	Timeout        time.Duration
	WriteTimeout   time.Duration
}

// ShipitConfig stores courier API credentials.
type ShipitConfig struct {
	BaseURL string
	Email   string
	Token   string
	Timeout time.Duration
}

// OpenFacturaConfig stores electronic invoicing credentials.
type OpenFacturaConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// POSConfig groups point-of-sale behaviour knobs.
type POSConfig struct {
	TaxRatePercent float64
	SessionTTL     time.Duration
	BusinessName   string
	BusinessRUT    string
	StoreAddress   string
}

// FeatureFlags toggle optional behaviour without redeploying.
type FeatureFlags struct {
	EnableShipments bool
	EnableInvoicing bool
	EnableReceipts  bool
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env overrides,
// and environment variables.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}

	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "POS_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "POS_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "POS_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "POS_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Strapi: StrapiConfig{
			BaseURL:  stringWithDefault(lookup, "POS_STRAPI_BASE_URL", ""),
			APIToken: stringWithDefault(lookup, "POS_STRAPI_API_TOKEN", ""),
			Timeout:  durationWithDefault(lookup, "POS_STRAPI_TIMEOUT", defaultStrapiTimeout),
		},
		WooCommerce: WooCommerceConfig{
			BaseURL:        stringWithDefault(lookup, "POS_WOO_BASE_URL", ""),
			ConsumerKey:    stringWithDefault(lookup, "POS_WOO_CONSUMER_KEY", ""),
			ConsumerSecret: stringWithDefault(lookup, "POS_WOO_CONSUMER_SECRET", ""),
			Timeout:        durationWithDefault(lookup, "POS_WOO_TIMEOUT", defaultWooTimeout),
			WriteTimeout:   durationWithDefault(lookup, "POS_WOO_WRITE_TIMEOUT", defaultWooWriteTimeout),
		},
		Shipit: ShipitConfig{
			BaseURL: stringWithDefault(lookup, "POS_SHIPIT_BASE_URL", ""),
			Email:   stringWithDefault(lookup, "POS_SHIPIT_EMAIL", ""),
			Token:   stringWithDefault(lookup, "POS_SHIPIT_TOKEN", ""),
			Timeout: durationWithDefault(lookup, "POS_SHIPIT_TIMEOUT", defaultShipitTimeout),
		},
		OpenFactura: OpenFacturaConfig{
			BaseURL: stringWithDefault(lookup, "POS_OPENFACTURA_BASE_URL", ""),
			APIKey:  stringWithDefault(lookup, "POS_OPENFACTURA_API_KEY", ""),
			Timeout: durationWithDefault(lookup, "POS_OPENFACTURA_TIMEOUT", defaultOpenFacturaTimeout),
		},
		POS: POSConfig{
			TaxRatePercent: floatWithDefault(lookup, "POS_TAX_RATE_PERCENT", defaultTaxRatePercent),
			SessionTTL:     durationWithDefault(lookup, "POS_SESSION_TTL", defaultSessionTTL),
			BusinessName:   stringWithDefault(lookup, "POS_BUSINESS_NAME", defaultReceiptBusinessName),
			BusinessRUT:    stringWithDefault(lookup, "POS_BUSINESS_RUT", ""),
			StoreAddress:   stringWithDefault(lookup, "POS_STORE_ADDRESS", ""),
		},
		Features: FeatureFlags{
			EnableShipments: boolWithDefault(lookup, "POS_FEATURE_SHIPMENTS", true),
			EnableInvoicing: boolWithDefault(lookup, "POS_FEATURE_INVOICING", false),
			EnableReceipts:  boolWithDefault(lookup, "POS_FEATURE_RECEIPTS", true),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Strapi.BaseURL == "" {
		missing = append(missing, "Strapi.BaseURL")
	}
	if cfg.WooCommerce.BaseURL == "" {
		missing = append(missing, "WooCommerce.BaseURL")
	}
	if cfg.POS.TaxRatePercent < 0 || cfg.POS.TaxRatePercent > 100 {
		missing = append(missing, "POS.TaxRatePercent")
	}
	if cfg.POS.SessionTTL <= 0 {
		missing = append(missing, "POS.SessionTTL")
	}
	if cfg.Features.EnableShipments && cfg.Shipit.BaseURL == "" {
		missing = append(missing, "Shipit.BaseURL")
	}
	if cfg.Features.EnableInvoicing && cfg.OpenFactura.BaseURL == "" {
		missing = append(missing, "OpenFactura.BaseURL")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func floatWithDefault(lookup func(string) (string, bool), key string, fallback float64) float64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
