package config

import (
	"fmt"
	"time"
)

// TemplateCacheConfig contains settings for the in-memory template cache.
type TemplateCacheConfig struct {
	Capacity int           `envconfig:"CAPACITY" default:"500" validate:"min=1"`
	TTL      time.Duration `envconfig:"TTL" default:"15m"`
}

// Validate checks if the template cache configuration is valid.
func (c *TemplateCacheConfig) Validate() error {
	if c.Capacity < 1 {
		return fmt.Errorf("template cache capacity must be at least 1, got %d", c.Capacity)
	}
	if c.TTL <= 0 {
		return fmt.Errorf("template cache TTL must be positive, got %s", c.TTL)
	}
	return nil
}
