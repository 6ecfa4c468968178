// Package extraction builds and executes dependency-ordered data fetch plans
// from declarative per-template configuration. Each configured data source is
// an HTTP endpoint plus a mapping from its JSON response into named context
// fields; sources may depend on fields produced by other sources.
package extraction

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Mode selects how a plan's sources are scheduled.
type Mode int

const (
	// ModeSequential executes dependency levels strictly in order,
	// fanning out within each level.
	ModeSequential Mode = iota
	// ModeParallel fires every source at once. Only legal when no source
	// declares dependencies.
	ModeParallel
)

func (m Mode) String() string {
	if m == ModeParallel {
		return "parallel"
	}
	return "sequential"
}

// DataType declares how a mapped response field is coerced before it enters
// the context.
type DataType int

const (
	TypeString DataType = iota
	TypeInteger
	TypeDecimal
	TypeBoolean
	TypeDate
)

var dataTypeValues = map[string]DataType{
	"STRING":  TypeString,
	"INTEGER": TypeInteger,
	"DECIMAL": TypeDecimal,
	"BOOLEAN": TypeBoolean,
	"DATE":    TypeDate,
}

// ParseDataType maps a configuration string to a DataType.
// Unrecognized or empty strings default to STRING.
func ParseDataType(s string) DataType {
	if t, ok := dataTypeValues[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return t
	}
	return TypeString
}

// DependencyRef declares that a source needs a field produced by another
// source before it can run.
type DependencyRef struct {
	SourceID string `json:"sourceId" yaml:"sourceId"`
	Field    string `json:"field" yaml:"field"`
}

// FieldMapping maps one JSON path of a source's response body to a named
// context field of a declared type.
type FieldMapping struct {
	JSONPath  string `json:"jsonPath" yaml:"jsonPath"`
	FieldName string `json:"fieldName" yaml:"fieldName"`
	DataType  string `json:"dataType" yaml:"dataType"`
}

// CacheSpec enables caching of a source's raw response body.
type CacheSpec struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	TTLSeconds int    `json:"ttlSeconds" yaml:"ttlSeconds"`
	KeyPattern string `json:"keyPattern" yaml:"keyPattern"`
}

// SourceSpec is the declarative description of one external data source.
// Immutable once parsed.
type SourceSpec struct {
	ID              string          `json:"id" yaml:"id"`
	Name            string          `json:"name" yaml:"name"`
	BaseURL         string          `json:"baseUrl" yaml:"baseUrl"`
	Endpoint        string          `json:"endpoint" yaml:"endpoint"`
	Method          string          `json:"method" yaml:"method"`
	TimeoutMs       int             `json:"timeoutMs" yaml:"timeoutMs"`
	RetryCount      int             `json:"retryCount" yaml:"retryCount"`
	DependsOn       []DependencyRef `json:"dependsOn" yaml:"dependsOn"`
	ResponseMapping []FieldMapping  `json:"responseMapping" yaml:"responseMapping"`
	Cache           *CacheSpec      `json:"cache" yaml:"cache"`
}

// Config is a template's full data extraction configuration.
type Config struct {
	Sources []SourceSpec
	Mode    Mode
}

type rawConfig struct {
	Sources []SourceSpec `json:"sources" yaml:"sources"`
	Mode    string       `json:"mode" yaml:"mode"`
}

// ParseConfig decodes an extraction configuration from JSON or YAML.
// The format is sniffed from the first non-space byte.
func ParseConfig(data []byte) (*Config, error) {
	var raw rawConfig
	if looksLikeJSON(data) {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse extraction config: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse extraction config: %w", err)
		}
	}

	cfg := &Config{Sources: raw.Sources}

	switch strings.ToLower(strings.TrimSpace(raw.Mode)) {
	case "", "sequential":
		cfg.Mode = ModeSequential
	case "parallel":
		cfg.Mode = ModeParallel
	default:
		return nil, fmt.Errorf("unknown extraction mode %q", raw.Mode)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	seen := make(map[string]struct{}, len(c.Sources))
	for _, src := range c.Sources {
		if src.ID == "" {
			return fmt.Errorf("data source is missing an id")
		}
		if _, dup := seen[src.ID]; dup {
			return fmt.Errorf("duplicate data source id %q", src.ID)
		}
		seen[src.ID] = struct{}{}

		if src.Endpoint == "" {
			return fmt.Errorf("data source %q is missing an endpoint", src.ID)
		}
		if c.Mode == ModeParallel && len(src.DependsOn) > 0 {
			return fmt.Errorf("parallel mode is invalid: data source %q declares dependencies", src.ID)
		}
	}
	return nil
}

func looksLikeJSON(data []byte) bool {
	for _, b := range data {
		if unicode.IsSpace(rune(b)) {
			continue
		}
		return b == '{' || b == '['
	}
	return false
}
