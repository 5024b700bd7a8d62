package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""), WithSettingsFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Catalog.Source != "products.json" {
		t.Errorf("expected default catalog source, got %s", cfg.Catalog.Source)
	}
	if !cfg.Catalog.Watch {
		t.Errorf("expected catalog watch enabled by default")
	}
	if cfg.Checkout.Phone != defaultPhone {
		t.Errorf("expected placeholder phone, got %s", cfg.Checkout.Phone)
	}
	if cfg.Checkout.PayPalAccount != defaultPayPalAccount {
		t.Errorf("expected placeholder paypal account, got %s", cfg.Checkout.PayPalAccount)
	}
	if cfg.Display.CurrencyLabel != "Rs" || cfg.Display.Locale != "en" {
		t.Errorf("unexpected display config: %+v", cfg.Display)
	}
	if cfg.Shop.Name != defaultShopName || cfg.Shop.FeaturedLimit != 6 {
		t.Errorf("unexpected shop defaults: %+v", cfg.Shop)
	}
	if cfg.Cart.Secret != "" {
		t.Errorf("expected no cart secret by default")
	}
}

func TestLoadWithOverrides(t *testing.T) {
	env := map[string]string{
		"STORE_SERVER_PORT":         "9090",
		"STORE_SERVER_READ_TIMEOUT": "20s",
		"STORE_CATALOG_SOURCE":      "gs://moonsun/products.json",
		"STORE_CATALOG_WATCH":       "off",
		"STORE_CATALOG_TIMEOUT":     "3s",
		"STORE_CART_SECRET":         "s3cret",
		"STORE_CHECKOUT_PHONE":      "9779800000000",
		"STORE_PAYPAL_ACCOUNT":      "moonsun",
		"STORE_CURRENCY_LABEL":      "NPR",
		"STORE_GCS_ANONYMOUS":       "true",
	}

	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSettingsFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Server.ReadTimeout != 20*time.Second {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Catalog.Watch {
		t.Errorf("expected catalog watch disabled")
	}
	if cfg.Catalog.Timeout != 3*time.Second {
		t.Errorf("unexpected catalog timeout: %s", cfg.Catalog.Timeout)
	}
	if cfg.Cart.Secret != "s3cret" {
		t.Errorf("unexpected cart secret")
	}
	if cfg.Checkout.Phone != "9779800000000" || cfg.Checkout.PayPalAccount != "moonsun" {
		t.Errorf("unexpected checkout config: %+v", cfg.Checkout)
	}
	if cfg.Display.CurrencyLabel != "NPR" {
		t.Errorf("unexpected currency label: %s", cfg.Display.CurrencyLabel)
	}
	if !cfg.Storage.Anonymous {
		t.Errorf("expected anonymous storage")
	}
}

func TestLoadReadsDotEnvAndSettings(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("# local\nexport STORE_SERVER_PORT=7070\nSTORE_CHECKOUT_PHONE=\"9771111111111\"\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	settingsPath := filepath.Join(dir, "store.yaml")
	settings := "name: Moonsun Crafts\ntagline: Handmade jewellery\nfeatured_limit: 3\ncheckout:\n  phone: \"9772222222222\"\n  paypal_account: moonsuncrafts\n"
	if err := os.WriteFile(settingsPath, []byte(settings), 0o600); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	cfg, err := Load(WithoutSystemEnv(), WithEnvFile(envPath), WithSettingsFile(settingsPath))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("expected port from .env, got %s", cfg.Server.Port)
	}
	if cfg.Checkout.Phone != "9771111111111" {
		t.Errorf("expected .env phone to win over settings, got %s", cfg.Checkout.Phone)
	}
	if cfg.Checkout.PayPalAccount != "moonsuncrafts" {
		t.Errorf("expected settings paypal account, got %s", cfg.Checkout.PayPalAccount)
	}
	if cfg.Shop.Name != "Moonsun Crafts" || cfg.Shop.Tagline != "Handmade jewellery" || cfg.Shop.FeaturedLimit != 3 {
		t.Errorf("unexpected shop settings: %+v", cfg.Shop)
	}
}

func TestLoadEnvMapOverridesDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("STORE_SERVER_PORT=7070\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	cfg, err := Load(WithEnvMap(map[string]string{"STORE_SERVER_PORT": "6060"}), WithoutSystemEnv(), WithEnvFile(envPath), WithSettingsFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "6060" {
		t.Errorf("expected env map to win, got %s", cfg.Server.Port)
	}
}

func TestLoadValidation(t *testing.T) {
	env := map[string]string{
		"STORE_SERVER_PORT":    "http",
		"STORE_CHECKOUT_PHONE": "+977 980",
	}
	_, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSettingsFile(""))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	fields := vErr.Fields()
	if len(fields) != 2 || fields[0] != "Server.Port" || fields[1] != "Checkout.Phone" {
		t.Errorf("unexpected fields: %v", fields)
	}
}

func TestLoadSettingsRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.yaml")
	if err := os.WriteFile(path, []byte("name: x\ncolour: blue\n"), 0o600); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	if _, err := LoadSettings(path); err == nil {
		t.Fatalf("expected unknown key error")
	}

	settings, err := LoadSettings(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing settings should not fail: %v", err)
	}
	if settings.Name != defaultShopName {
		t.Errorf("unexpected default name %q", settings.Name)
	}

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	if _, err := LoadSettings(empty); err != nil {
		t.Fatalf("empty settings should not fail: %v", err)
	}
}

func TestLoadCloudSettings(t *testing.T) {
	cfg, err := Load(WithEnvMap(map[string]string{
		"STORE_GCP_PROJECT":          "moonsun-prod",
		"STORE_PUBSUB_HANDOFF_TOPIC": "checkout-handoffs",
		"STORE_CART_SECRET":          "secret://cart-cookie-key",
	}), WithoutSystemEnv(), WithEnvFile(""), WithSettingsFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Cloud.Project != "moonsun-prod" || cfg.Cloud.HandoffTopic != "checkout-handoffs" {
		t.Errorf("unexpected cloud config: %+v", cfg.Cloud)
	}
	if cfg.Cloud.SecretsFallback != ".secrets.local" {
		t.Errorf("expected default secrets fallback, got %q", cfg.Cloud.SecretsFallback)
	}
	if cfg.Cart.Secret != "secret://cart-cookie-key" {
		t.Errorf("expected secret reference to be kept verbatim, got %q", cfg.Cart.Secret)
	}

	_, err = Load(WithEnvMap(map[string]string{
		"STORE_PUBSUB_HANDOFF_TOPIC": "checkout-handoffs",
	}), WithoutSystemEnv(), WithEnvFile(""), WithSettingsFile(""))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := vErr.Fields(); len(got) != 1 || got[0] != "Cloud.Project" {
		t.Errorf("unexpected fields: %v", got)
	}
}
