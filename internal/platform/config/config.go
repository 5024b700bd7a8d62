package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile        = ".env"
	defaultPort           = "8080"
	defaultReadTimeout    = 15 * time.Second
	defaultWriteTimeout   = 30 * time.Second
	defaultIdleTimeout    = 120 * time.Second
	defaultShutdown       = 10 * time.Second
	defaultCatalogSource  = "products.json"
	defaultCatalogTimeout = 10 * time.Second
	defaultPublicDir      = "public"
	defaultSettingsFile   = "store.yaml"
	defaultPhone          = "977XXXXXXXXX"
	defaultPayPalAccount  = "YourPayPalName"
	defaultCurrencyLabel  = "Rs"
	defaultLocale         = "en"
	defaultCookieMaxAge   = 30 * 24 * time.Hour

	defaultSecretsFallback = ".secrets.local"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server   ServerConfig
	Catalog  CatalogConfig
	Cart     CartConfig
	Checkout CheckoutConfig
	Display  DisplayConfig
	Storage  StorageConfig
	Cloud    CloudConfig
	Shop     ShopSettings
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	PublicDir       string
}

// CatalogConfig locates the product list.
type CatalogConfig struct {
	Source  string
	Watch   bool
	Timeout time.Duration
}

// CartConfig controls the cart cookie.
type CartConfig struct {
	Secret       string
	CookieMaxAge time.Duration
	SecureCookie bool
}

// CheckoutConfig holds merchant contact details for checkout links.
type CheckoutConfig struct {
	Phone         string
	PayPalAccount string
}

// DisplayConfig controls price formatting.
type DisplayConfig struct {
	CurrencyLabel string
	Locale        string
}

// StorageConfig configures the Cloud Storage client used for gs:// catalogs.
type StorageConfig struct {
	Anonymous bool
	Endpoint  string
}

// CloudConfig enables the optional Google Cloud integrations: checkout
// events on Pub/Sub and secret:// references resolved from Secret Manager.
type CloudConfig struct {
	Project         string
	HandoffTopic    string
	SecretsFallback string
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

// Option customises how configuration is loaded.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	settingsFile *string
}

// WithEnvFile overrides the .env file path. An empty path disables it.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap supplies values that take precedence over the process environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv ignores the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSettingsFile overrides STORE_SETTINGS_FILE. An empty path disables it.
func WithSettingsFile(path string) Option {
	return func(o *loaderOptions) {
		o.settingsFile = &path
	}
}

// Load resolves configuration from explicit values, the process environment
// and the .env file, in that order, then layers it over the shop settings file.
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

	settingsPath := stringWithDefault(lookup, "STORE_SETTINGS_FILE", defaultSettingsFile)
	if options.settingsFile != nil {
		settingsPath = *options.settingsFile
	}
	settings, err := LoadSettings(settingsPath)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            stringWithDefault(lookup, "STORE_SERVER_PORT", defaultPort),
			ReadTimeout:     durationWithDefault(lookup, "STORE_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    durationWithDefault(lookup, "STORE_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     durationWithDefault(lookup, "STORE_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout: durationWithDefault(lookup, "STORE_SERVER_SHUTDOWN_TIMEOUT", defaultShutdown),
			PublicDir:       stringWithDefault(lookup, "STORE_PUBLIC_DIR", defaultPublicDir),
		},
		Catalog: CatalogConfig{
			Source:  stringWithDefault(lookup, "STORE_CATALOG_SOURCE", defaultCatalogSource),
			Watch:   boolWithDefault(lookup, "STORE_CATALOG_WATCH", true),
			Timeout: durationWithDefault(lookup, "STORE_CATALOG_TIMEOUT", defaultCatalogTimeout),
		},
		Cart: CartConfig{
			Secret:       stringWithDefault(lookup, "STORE_CART_SECRET", ""),
			CookieMaxAge: durationWithDefault(lookup, "STORE_CART_COOKIE_MAX_AGE", defaultCookieMaxAge),
			SecureCookie: boolWithDefault(lookup, "STORE_CART_SECURE_COOKIE", false),
		},
		Checkout: CheckoutConfig{
			Phone:         stringWithDefault(lookup, "STORE_CHECKOUT_PHONE", firstNonEmpty(settings.Checkout.Phone, defaultPhone)),
			PayPalAccount: stringWithDefault(lookup, "STORE_PAYPAL_ACCOUNT", firstNonEmpty(settings.Checkout.PayPalAccount, defaultPayPalAccount)),
		},
		Display: DisplayConfig{
			CurrencyLabel: stringWithDefault(lookup, "STORE_CURRENCY_LABEL", firstNonEmpty(settings.Display.CurrencyLabel, defaultCurrencyLabel)),
			Locale:        stringWithDefault(lookup, "STORE_LOCALE", firstNonEmpty(settings.Display.Locale, defaultLocale)),
		},
		Storage: StorageConfig{
			Anonymous: boolWithDefault(lookup, "STORE_GCS_ANONYMOUS", false),
			Endpoint:  stringWithDefault(lookup, "STORE_GCS_ENDPOINT", ""),
		},
		Cloud: CloudConfig{
			Project:         stringWithDefault(lookup, "STORE_GCP_PROJECT", ""),
			HandoffTopic:    stringWithDefault(lookup, "STORE_PUBSUB_HANDOFF_TOPIC", ""),
			SecretsFallback: stringWithDefault(lookup, "STORE_SECRETS_FALLBACK_FILE", defaultSecretsFallback),
		},
		Shop: settings,
	}
	cfg.Shop.Checkout = ShopCheckout{Phone: cfg.Checkout.Phone, PayPalAccount: cfg.Checkout.PayPalAccount}
	cfg.Shop.Display = ShopDisplay{CurrencyLabel: cfg.Display.CurrencyLabel, Locale: cfg.Display.Locale}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if strings.TrimSpace(cfg.Server.Port) == "" {
		missing = append(missing, "Server.Port")
	}
	if _, err := strconv.Atoi(cfg.Server.Port); err != nil {
		missing = append(missing, "Server.Port")
	}
	if strings.TrimSpace(cfg.Catalog.Source) == "" {
		missing = append(missing, "Catalog.Source")
	}
	if cfg.Catalog.Timeout <= 0 {
		missing = append(missing, "Catalog.Timeout")
	}
	if cfg.Cart.CookieMaxAge <= 0 {
		missing = append(missing, "Cart.CookieMaxAge")
	}
	if strings.ContainsAny(cfg.Checkout.Phone, " +/?") {
		missing = append(missing, "Checkout.Phone")
	}
	if strings.ContainsAny(cfg.Checkout.PayPalAccount, " /?") {
		missing = append(missing, "Checkout.PayPalAccount")
	}

	if strings.TrimSpace(cfg.Cloud.HandoffTopic) != "" && strings.TrimSpace(cfg.Cloud.Project) == "" {
		missing = append(missing, "Cloud.Project")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: dedupe(missing)}
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
	if _, err := os.Stat(absPath); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	values, err := godotenv.Read(absPath)
	if err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
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

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func dedupe(fields []string) []string {
	seen := make(map[string]struct{}, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
