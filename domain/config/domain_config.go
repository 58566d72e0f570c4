package config

import (
	"errors"
	"time"
)

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Graph constraints
	MaxNodesPerGraph int

	// Session constraints
	MaxSessions    int
	SessionTimeout time.Duration

	// Resolution settings
	DefaultBlankNodeDepth int
	MaxBlankNodeDepth     int

	// Expansion settings
	DefaultExpansionConcurrency int
	MaxExpansionConcurrency     int
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MaxNodesPerGraph: 10000,

		MaxSessions:    1000,
		SessionTimeout: 2 * time.Hour,

		DefaultBlankNodeDepth: 1,
		MaxBlankNodeDepth:     4,

		DefaultExpansionConcurrency: 1,
		MaxExpansionConcurrency:     16,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// Tighter limits keep a single lambda's memory bounded
	config.MaxNodesPerGraph = 5000
	config.MaxSessions = 500
	config.SessionTimeout = 30 * time.Minute
	config.MaxExpansionConcurrency = 8

	return config
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	config.MaxNodesPerGraph = 100000
	config.SessionTimeout = 24 * time.Hour

	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	if c.MaxNodesPerGraph <= 0 {
		return errors.New("max nodes per graph must be positive")
	}
	if c.MaxSessions <= 0 {
		return errors.New("max sessions must be positive")
	}
	if c.DefaultBlankNodeDepth < 1 || c.DefaultBlankNodeDepth > c.MaxBlankNodeDepth {
		return errors.New("default blank node depth must be between 1 and the maximum")
	}
	if c.DefaultExpansionConcurrency < 1 || c.DefaultExpansionConcurrency > c.MaxExpansionConcurrency {
		return errors.New("default expansion concurrency must be between 1 and the maximum")
	}
	return nil
}

// BlankNodeDepth bounds a requested blank node depth. Non-positive values
// select the default.
func (c *DomainConfig) BlankNodeDepth(requested int) int {
	if requested < 1 {
		return c.DefaultBlankNodeDepth
	}
	return min(requested, c.MaxBlankNodeDepth)
}

// ExpansionConcurrency bounds a requested worker count. Non-positive values
// select the default.
func (c *DomainConfig) ExpansionConcurrency(requested int) int {
	if requested < 1 {
		return c.DefaultExpansionConcurrency
	}
	return min(requested, c.MaxExpansionConcurrency)
}
