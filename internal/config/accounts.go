package config

import (
	"fmt"
	"time"
)

// AccountsConfig contains settings for the account metadata service client.
type AccountsConfig struct {
	BaseURL string        `envconfig:"BASE_URL"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"5s"`

	// DefaultLineOfBusiness is returned when the metadata service cannot
	// classify an account.
	DefaultLineOfBusiness string `envconfig:"DEFAULT_LOB" default:"RETAIL"`
}

// Validate checks if the accounts configuration is valid.
// An empty base URL is valid: the enquiry pipeline falls back to the
// default line of business for every account.
func (c *AccountsConfig) Validate() error {
	if c.BaseURL != "" {
		if _, err := parseAndValidateURL(c.BaseURL, []string{"http", "https"}); err != nil {
			return fmt.Errorf("invalid accounts base URL: %w", err)
		}
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("accounts timeout must be positive, got %s", c.Timeout)
	}
	if c.DefaultLineOfBusiness == "" {
		return fmt.Errorf("accounts default line of business must not be empty")
	}
	return nil
}

// IsConfigured returns true if the metadata service client can be built.
func (c *AccountsConfig) IsConfigured() bool {
	return c.BaseURL != ""
}
