package config

import (
	"fmt"
	"time"
)

// DatabaseConfig configures the relational store connection pool.
type DatabaseConfig struct {
	// URL is the Postgres connection string. Supports ${DATABASE_URL}.
	URL string `yaml:"url,omitempty" json:"url,omitempty"`

	// PoolMin is the minimum number of pooled connections.
	PoolMin int32 `yaml:"pool_min,omitempty" json:"pool_min,omitempty"`

	// PoolMax is the maximum number of pooled connections.
	PoolMax int32 `yaml:"pool_max,omitempty" json:"pool_max,omitempty"`

	// PoolAcquireTimeout bounds how long a request waits for a connection.
	PoolAcquireTimeout time.Duration `yaml:"pool_acquire_timeout,omitempty" json:"pool_acquire_timeout,omitempty"`

	// StatementTimeout is applied server-side to every query.
	StatementTimeout time.Duration `yaml:"statement_timeout,omitempty" json:"statement_timeout,omitempty"`
}

// SetDefaults applies default values.
func (c *DatabaseConfig) SetDefaults() {
	if c.PoolMin == 0 {
		c.PoolMin = 2
	}
	if c.PoolMax == 0 {
		c.PoolMax = 10
	}
	if c.PoolAcquireTimeout == 0 {
		c.PoolAcquireTimeout = 5 * time.Second
	}
	if c.StatementTimeout == 0 {
		c.StatementTimeout = 30 * time.Second
	}
}

// Validate checks the database configuration.
func (c *DatabaseConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("database url is required (set DATABASE_URL)")
	}
	if c.PoolMin > c.PoolMax {
		return fmt.Errorf("pool_min (%d) cannot exceed pool_max (%d)", c.PoolMin, c.PoolMax)
	}
	return nil
}
