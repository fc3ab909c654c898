// Package config manages server configuration stored in config.yaml.
package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultMasterEmail is the agency operator address promoted to admin
// when no master email is configured.
const DefaultMasterEmail = "wgouldie.business@gmail.com"

// Config stores all server-wide configuration.
// Loaded from config.yaml, created with defaults if missing.
type Config struct {
	// MasterEmail is the address whose profile is provisioned as admin.
	MasterEmail string `yaml:"master_email"`

	// JWTSecret signs access tokens. Auto-generated if empty on first
	// load, base64-encoded in the file.
	JWTSecret string `yaml:"jwt_secret"`

	// GenAIAPIKey enables promo text generation. Empty disables it; the
	// copywriter then serves its fixed fallback.
	GenAIAPIKey string `yaml:"genai_api_key,omitempty"`

	// GeoDB is the path to a MaxMind MMDB file for tagging public leads
	// with a country code. Empty disables geolocation.
	GeoDB string `yaml:"geo_db,omitempty"`

	// RemoteURL points at a real backend. When set together with
	// RemoteKey, data operations are delegated over HTTP instead of the
	// local document store.
	RemoteURL string `yaml:"remote_url,omitempty"`
	RemoteKey string `yaml:"remote_key,omitempty"`

	// ServiceKey authorizes incoming query delegation, letting this
	// instance serve as the remote backend for another one. Empty keeps
	// the endpoint disabled.
	ServiceKey string `yaml:"service_key,omitempty"`

	// RateLimits defines rate limiting configuration.
	RateLimits RateLimits `yaml:"rate_limits"`
}

// RateLimits defines rate limiting configuration (requests per minute).
// 0 means unlimited.
type RateLimits struct {
	AuthRatePerMin       int `yaml:"auth_rate_per_min"`
	WriteRatePerMin      int `yaml:"write_rate_per_min"`
	ReadAuthRatePerMin   int `yaml:"read_auth_rate_per_min"`
	ReadUnauthRatePerMin int `yaml:"read_unauth_rate_per_min"`
}

// Validate checks that rate limit values are non-negative.
func (r *RateLimits) Validate() error {
	if r.AuthRatePerMin < 0 {
		return errors.New("auth_rate_per_min must be non-negative")
	}
	if r.WriteRatePerMin < 0 {
		return errors.New("write_rate_per_min must be non-negative")
	}
	if r.ReadAuthRatePerMin < 0 {
		return errors.New("read_auth_rate_per_min must be non-negative")
	}
	if r.ReadUnauthRatePerMin < 0 {
		return errors.New("read_unauth_rate_per_min must be non-negative")
	}
	return nil
}

// DefaultRateLimits returns the default rate limits.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		AuthRatePerMin:       5,
		WriteRatePerMin:      60,
		ReadAuthRatePerMin:   30000,
		ReadUnauthRatePerMin: 6000,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.MasterEmail == "" {
		return errors.New("master_email is required")
	}
	if secret, err := c.Secret(); err != nil {
		return err
	} else if len(secret) < 32 {
		return errors.New("jwt_secret must be at least 32 bytes")
	}
	if (c.RemoteURL == "") != (c.RemoteKey == "") {
		return errors.New("remote_url and remote_key must both be set or both be empty")
	}
	if err := c.RateLimits.Validate(); err != nil {
		return fmt.Errorf("rate_limits: %w", err)
	}
	return nil
}

// Secret decodes the signing secret.
func (c *Config) Secret() ([]byte, error) {
	secret, err := base64.StdEncoding.DecodeString(c.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("jwt_secret is not valid base64: %w", err)
	}
	return secret, nil
}

// Load reads configuration from dataDir/config.yaml.
// Creates the file with defaults if it doesn't exist.
// Auto-generates JWTSecret if empty.
func Load(dataDir string) (*Config, error) {
	path := filepath.Join(dataDir, "config.yaml")

	cfg := Config{MasterEmail: DefaultMasterEmail, RateLimits: DefaultRateLimits()}

	data, readErr := os.ReadFile(path)
	if readErr != nil {
		if !os.IsNotExist(readErr) {
			return nil, fmt.Errorf("failed to read config.yaml: %w", readErr)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config.yaml: %w", err)
		}
	}

	modified := false
	if cfg.MasterEmail == "" {
		cfg.MasterEmail = DefaultMasterEmail
		modified = true
	}
	if cfg.JWTSecret == "" {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		cfg.JWTSecret = base64.StdEncoding.EncodeToString(secret)
		modified = true
	}

	if modified || os.IsNotExist(readErr) {
		if err := cfg.Save(dataDir); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config.yaml: %w", err)
	}
	return &cfg, nil
}

// Save writes configuration to dataDir/config.yaml.
func (c *Config) Save(dataDir string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "config.yaml"), data, 0o600); err != nil {
		return fmt.Errorf("failed to write config.yaml: %w", err)
	}
	return nil
}
