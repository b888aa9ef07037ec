package kgstore

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds manager-level settings: persistence, cache behavior, and
// access control defaults. Zero values are filled by applyDefaults, so a
// partial YAML file (or none at all) yields a working configuration.
type Config struct {
	// Persistence controls whether and where the graph is written after
	// each mutation.
	Persistence PersistenceConfig `yaml:"persistence"`

	// Cache configures the query-result cache.
	Cache CacheConfig `yaml:"cache"`

	// Security configures roles and the audit log.
	Security SecurityConfig `yaml:"security"`

	// Versioning controls version history retention.
	Versioning VersioningConfig `yaml:"versioning"`
}

// VersioningConfig controls automatic version history truncation.
type VersioningConfig struct {
	// KeepRecent, when positive, truncates the version history down to this
	// many entries after each mutation. Zero keeps everything.
	KeepRecent int `yaml:"keep_recent,omitempty"`
}

// PersistenceConfig controls graph serialization to stable storage.
type PersistenceConfig struct {
	// Enabled turns on per-mutation serialization to Path.
	Enabled bool `yaml:"enabled"`

	// Path is the file the serialized graph is written to and reloaded
	// from on Initialize.
	Path string `yaml:"path,omitempty"`
}

// CacheConfig selects and tunes the query-result cache backend.
type CacheConfig struct {
	// Backend is "memory" or "redis".
	Backend string `yaml:"backend,omitempty"`

	// TTL is how long a cached result set stays servable.
	// Format: Go duration string (e.g., "5m", "30s").
	TTL string `yaml:"ttl,omitempty"`

	// RedisURL is the connection URL for the redis backend
	// (e.g., "redis://localhost:6379/0"). Required when Backend is "redis".
	RedisURL string `yaml:"redis_url,omitempty"`
}

// SecurityConfig configures role handling and audit retention.
type SecurityConfig struct {
	// DefaultRole is assumed when a mutation passes an empty role.
	DefaultRole string `yaml:"default_role,omitempty"`

	// AdminRole bypasses access rule evaluation.
	AdminRole string `yaml:"admin_role,omitempty"`

	// AuditLimit caps the in-memory audit log; oldest entries are dropped
	// beyond it.
	AuditLimit int `yaml:"audit_limit,omitempty"`
}

// Cache backend names accepted by CacheConfig.Backend.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

const defaultCacheTTL = 5 * time.Minute

// DefaultConfig returns a configuration with all defaults applied:
// in-memory cache with a five minute TTL, persistence disabled, admin
// default role.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads a YAML configuration file, applies defaults for any
// omitted fields, and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheBackendMemory
	}
	if c.Cache.TTL == "" {
		c.Cache.TTL = defaultCacheTTL.String()
	}
	if c.Security.DefaultRole == "" {
		c.Security.DefaultRole = "admin"
	}
	if c.Security.AdminRole == "" {
		c.Security.AdminRole = "admin"
	}
	if c.Security.AuditLimit <= 0 {
		c.Security.AuditLimit = 1000
	}
}

// Validate checks the configuration for internal consistency. All errors
// wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		return fmt.Errorf("%w: unknown cache backend %q", ErrInvalidConfig, c.Cache.Backend)
	}
	if c.Cache.Backend == CacheBackendRedis && c.Cache.RedisURL == "" {
		return fmt.Errorf("%w: cache.redis_url is required for the redis backend", ErrInvalidConfig)
	}
	if _, err := c.cacheTTL(); err != nil {
		return fmt.Errorf("%w: bad cache.ttl: %v", ErrInvalidConfig, err)
	}
	if c.Persistence.Enabled && c.Persistence.Path == "" {
		return fmt.Errorf("%w: persistence.path is required when persistence is enabled", ErrInvalidConfig)
	}
	return nil
}

// cacheTTL parses the TTL string, falling back to the default when unset.
func (c *Config) cacheTTL() (time.Duration, error) {
	if c.Cache.TTL == "" {
		return defaultCacheTTL, nil
	}
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("ttl must be positive, got %s", d)
	}
	return d, nil
}
