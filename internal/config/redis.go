package config

import (
	"time"
)

// RedisConfig contains Redis connection settings.
// Redis backs the optional per-data-source response cache used by the
// extraction executor; the service runs without it when not configured.
type RedisConfig struct {
	Host     string `envconfig:"HOST"`
	Port     string `envconfig:"PORT" default:"6379"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0" validate:"min=0,max=15"`

	TLSEnabled bool `envconfig:"TLS_ENABLED" default:"false"`

	// Timeouts
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`

	// Connection Pool
	PoolSize     int           `envconfig:"POOL_SIZE" default:"10" validate:"min=1"`
	MinIdleConns int           `envconfig:"MIN_IDLE_CONNS" default:"2" validate:"min=0"`
	PoolTimeout  time.Duration `envconfig:"POOL_TIMEOUT" default:"4s"`

	// Command retries
	MaxRetries      int           `envconfig:"MAX_RETRIES" default:"3" validate:"min=0"`
	MinRetryBackoff time.Duration `envconfig:"MIN_RETRY_BACKOFF" default:"8ms"`
	MaxRetryBackoff time.Duration `envconfig:"MAX_RETRY_BACKOFF" default:"512ms"`

	// Startup connectivity check
	PingMaxRetries int           `envconfig:"PING_MAX_RETRIES" default:"3" validate:"min=1"`
	PingBackoff    time.Duration `envconfig:"PING_BACKOFF" default:"1s"`
}

// Address returns the Redis address in host:port form.
func (c *RedisConfig) Address() string {
	return c.Host + ":" + c.Port
}

// Validate checks if the Redis configuration is valid.
// An unconfigured Redis (empty host) is valid: the response cache is optional.
func (c *RedisConfig) Validate(environment string) error {
	if !c.IsConfigured() {
		return nil
	}

	if err := validateHost(c.Host, "redis"); err != nil {
		return err
	}
	if err := validatePort(c.Port, "redis"); err != nil {
		return err
	}

	if environment == EnvironmentProduction {
		if err := validatePasswordStrength(c.Password, "redis", environment); err != nil {
			return err
		}
	}

	return nil
}

// IsConfigured returns true if Redis has the required configuration to connect.
func (c *RedisConfig) IsConfigured() bool {
	return c.Host != ""
}
