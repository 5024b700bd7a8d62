package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultShopName      = "Moonsun Store"
	defaultFeaturedLimit = 6
)

// ShopSettings is the optional branding file. Environment values win over it.
type ShopSettings struct {
	Name          string       `yaml:"name"`
	Tagline       string       `yaml:"tagline"`
	FeaturedLimit int          `yaml:"featured_limit"`
	Checkout      ShopCheckout `yaml:"checkout"`
	Display       ShopDisplay  `yaml:"display"`
}

// ShopCheckout mirrors the checkout keys that may live in the settings file.
type ShopCheckout struct {
	Phone         string `yaml:"phone"`
	PayPalAccount string `yaml:"paypal_account"`
}

// ShopDisplay mirrors the display keys that may live in the settings file.
type ShopDisplay struct {
	CurrencyLabel string `yaml:"currency_label"`
	Locale        string `yaml:"locale"`
}

// DefaultSettings returns the branding used when no settings file exists.
func DefaultSettings() ShopSettings {
	return ShopSettings{
		Name:          defaultShopName,
		FeaturedLimit: defaultFeaturedLimit,
	}
}

// LoadSettings reads the YAML settings file at path. A missing file or empty
// path yields DefaultSettings; unknown keys are rejected.
func LoadSettings(path string) (ShopSettings, error) {
	settings := DefaultSettings()
	if strings.TrimSpace(path) == "" {
		return settings, nil
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return settings, nil
	}
	if err != nil {
		return ShopSettings{}, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&settings); err != nil && !errors.Is(err, io.EOF) {
		return ShopSettings{}, fmt.Errorf("config: failed parsing %s: %w", path, err)
	}

	settings.Name = strings.TrimSpace(settings.Name)
	if settings.Name == "" {
		settings.Name = defaultShopName
	}
	if settings.FeaturedLimit <= 0 {
		settings.FeaturedLimit = defaultFeaturedLimit
	}
	return settings, nil
}
