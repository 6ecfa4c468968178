package config

import (
	"fmt"
	"time"
)

// EnquiryConfig contains settings for the document enquiry pipeline.
type EnquiryConfig struct {
	// Deadline bounds a whole enquiry, including data extraction fan-out.
	Deadline time.Duration `envconfig:"DEADLINE" default:"10s"`

	DefaultPageSize int `envconfig:"DEFAULT_PAGE_SIZE" default:"20" validate:"min=1"`
	MaxPageSize     int `envconfig:"MAX_PAGE_SIZE" default:"100" validate:"min=1"`

	// LinkExpiration is how long generated document links stay valid.
	LinkExpiration time.Duration `envconfig:"LINK_EXPIRATION" default:"10m"`
}

// Validate checks if the enquiry configuration is valid.
func (c *EnquiryConfig) Validate() error {
	if c.Deadline <= 0 {
		return fmt.Errorf("enquiry deadline must be positive, got %s", c.Deadline)
	}
	if c.DefaultPageSize < 1 {
		return fmt.Errorf("enquiry default page size must be at least 1, got %d", c.DefaultPageSize)
	}
	if c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("enquiry max page size (%d) must be >= default page size (%d)", c.MaxPageSize, c.DefaultPageSize)
	}
	if c.LinkExpiration <= 0 {
		return fmt.Errorf("enquiry link expiration must be positive, got %s", c.LinkExpiration)
	}
	return nil
}
