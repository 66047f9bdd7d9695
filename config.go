package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultGeocoderURL     = "https://maps.google.com/maps/geo"
	defaultGeocoderTimeout = 10 * time.Second
)

// Config holds everything the tagger needs. It is built once at startup
// from the settings file and command line flags.
type Config struct {
	APIKey           string         `yaml:"api_key"`
	APISecret        string         `yaml:"api_secret"`
	OAuthToken       string         `yaml:"oauth_token"`
	OAuthTokenSecret string         `yaml:"oauth_token_secret"`
	UserID           string         `yaml:"user_id,omitempty"`
	Geocoder         GeocoderConfig `yaml:"geocoder,omitempty"`
	Verbose          bool           `yaml:"-"`
	DryRun           bool           `yaml:"-"`
}

type GeocoderConfig struct {
	URL     string        `yaml:"url,omitempty"`
	APIKey  string        `yaml:"api_key,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

func saveConfig(filename string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	err = os.WriteFile(filename, data, 0600) // Secure permissions
	if err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	return nil
}

func loadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}

	return &cfg, nil
}

// Merge fills every empty field of c from the settings file values.
// Flags win over the file.
func (c *Config) Merge(file *Config) {
	if file == nil {
		return
	}
	if c.APIKey == "" {
		c.APIKey = file.APIKey
	}
	if c.APISecret == "" {
		c.APISecret = file.APISecret
	}
	if c.OAuthToken == "" {
		c.OAuthToken = file.OAuthToken
	}
	if c.OAuthTokenSecret == "" {
		c.OAuthTokenSecret = file.OAuthTokenSecret
	}
	if c.UserID == "" {
		c.UserID = file.UserID
	}
	if c.Geocoder.URL == "" {
		c.Geocoder.URL = file.Geocoder.URL
	}
	if c.Geocoder.APIKey == "" {
		c.Geocoder.APIKey = file.Geocoder.APIKey
	}
	if c.Geocoder.Timeout == 0 {
		c.Geocoder.Timeout = file.Geocoder.Timeout
	}
}

func (c *Config) applyDefaults() {
	if c.Geocoder.URL == "" {
		c.Geocoder.URL = defaultGeocoderURL
	}
	if c.Geocoder.Timeout <= 0 {
		c.Geocoder.Timeout = defaultGeocoderTimeout
	}
}

// ValidateApp checks the settings needed to talk to Flickr at all.
func (c *Config) ValidateApp() error {
	if c.APIKey == "" || c.APISecret == "" {
		return errors.New("both API key and API secret are required")
	}
	return nil
}

// Validate checks the settings needed for authenticated Flickr calls.
func (c *Config) Validate() error {
	if err := c.ValidateApp(); err != nil {
		return err
	}
	if c.OAuthToken == "" || c.OAuthTokenSecret == "" {
		return errors.New("OAuth tokens are required, run 'flickr-tagger auth' first to authenticate")
	}
	return nil
}

// resolveConfig merges the flag values with the settings file, if any, and
// applies defaults.
func resolveConfig(flags Config, settingsFile string) (*Config, error) {
	cfg := flags
	if settingsFile != "" {
		file, err := loadConfig(settingsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load settings: %w", err)
		}
		cfg.Merge(file)
	}
	cfg.applyDefaults()
	return &cfg, nil
}
